package models

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusOnHold    ProjectStatus = "on-hold"
)

type ProjectPhase string

const (
	PhasePreconstruction ProjectPhase = "preconstruction"
	PhaseFoundation      ProjectPhase = "foundation"
	PhaseStructural      ProjectPhase = "structural"
	PhaseFraming         ProjectPhase = "framing"
	PhaseMEP             ProjectPhase = "mep"
	PhaseFinishes        ProjectPhase = "finishes"
	PhaseCloseout        ProjectPhase = "closeout"
)

type Project struct {
	Base
	OrganizationID uuid.UUID     `gorm:"type:uuid;index;not null" json:"organization_id"`
	Name           string        `gorm:"not null" json:"name"`
	JobNumber      string        `gorm:"index" json:"job_number"`
	Address        string        `json:"address,omitempty"`
	MonthlyBudget  float64       `gorm:"not null;default:0" json:"monthly_budget"`
	Status         ProjectStatus `gorm:"not null;default:'active'" json:"status"`
	Phase          ProjectPhase  `gorm:"not null;default:'preconstruction'" json:"phase"`

	// Relationships
	Organization    *Organization           `gorm:"foreignKey:OrganizationID" json:"-"`
	FinanceSettings *ProjectFinanceSettings `gorm:"foreignKey:ProjectID" json:"finance_settings,omitempty"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectFinanceSettings lists which financial fields an approved request on
// the project must carry. A project without a row requires nothing.
type ProjectFinanceSettings struct {
	ProjectID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"project_id"`
	OrganizationID           uuid.UUID `gorm:"type:uuid;index;not null" json:"organization_id"`
	RequireCostCode          bool      `gorm:"not null;default:false" json:"require_cost_code"`
	RequireVendor            bool      `gorm:"not null;default:false" json:"require_vendor"`
	RequirePONumber          bool      `gorm:"not null;default:false" json:"require_po_number"`
	RequireReceiptAttachment bool      `gorm:"not null;default:false" json:"require_receipt_attachment"`
	RequireDescription       bool      `gorm:"not null;default:false" json:"require_description"`
	UpdatedAt                time.Time `json:"updated_at"`
}

func (ProjectFinanceSettings) TableName() string {
	return "project_finance_settings"
}
