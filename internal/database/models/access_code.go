package models

import (
	"time"

	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

type AccessCodeStatus string

const (
	AccessCodeActive   AccessCodeStatus = "active"
	AccessCodeDisabled AccessCodeStatus = "disabled"
)

// AccessCode is a bounded-use invitation that grants an organization role and,
// optionally, a project role to whoever redeems it.
type AccessCode struct {
	Base
	OrganizationID uuid.UUID        `gorm:"type:uuid;index;not null" json:"organization_id"`
	Code           string           `gorm:"uniqueIndex;not null;size:32" json:"code"`
	IssuedBy       uuid.UUID        `gorm:"type:uuid;index;not null" json:"issued_by"`
	OrgRole        rbac.OrgRole     `gorm:"not null" json:"org_role"`
	ProjectID      *uuid.UUID       `gorm:"type:uuid;index" json:"project_id,omitempty"`
	ProjectRole    rbac.ProjectRole `json:"project_role,omitempty"`
	MaxUses        int              `gorm:"not null;default:1" json:"max_uses"`
	UsesCount      int              `gorm:"not null;default:0" json:"uses_count"`
	ExpiresAt      *time.Time       `gorm:"index" json:"expires_at,omitempty"`
	Status         AccessCodeStatus `gorm:"not null;default:'active';index" json:"status"`

	// Relationships
	Organization *Organization `gorm:"foreignKey:OrganizationID" json:"-"`
	Project      *Project      `gorm:"foreignKey:ProjectID" json:"-"`
}

func (AccessCode) TableName() string {
	return "access_codes"
}

// HasProjectGrant reports whether redeeming the code also binds a project role.
func (c *AccessCode) HasProjectGrant() bool {
	return c.ProjectID != nil && c.ProjectRole != ""
}

// Expired reports whether the code carries an expiry at or before now.
func (c *AccessCode) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// Exhausted reports whether every use has been consumed.
func (c *AccessCode) Exhausted() bool {
	return c.UsesCount >= c.MaxUses
}

// Redeemable reports whether a claim at now could succeed.
func (c *AccessCode) Redeemable(now time.Time) bool {
	return c.Status == AccessCodeActive && !c.Exhausted() && !c.Expired(now)
}
