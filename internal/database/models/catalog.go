package models

import "github.com/google/uuid"

type CostCode struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_cost_codes_org_code" json:"organization_id"`
	Code           string    `gorm:"not null;uniqueIndex:idx_cost_codes_org_code" json:"code"`
	Label          string    `gorm:"not null" json:"label"`
	Category       string    `json:"category,omitempty"`
}

func (CostCode) TableName() string {
	return "cost_codes"
}

// Vendor is the normalized vendor record a request can reference in
// addition to its free-text vendor name.
type Vendor struct {
	Base
	OrganizationID uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string    `gorm:"not null" json:"name"`
	Active         bool      `gorm:"not null" json:"active"`
}

func (Vendor) TableName() string {
	return "vendors"
}
