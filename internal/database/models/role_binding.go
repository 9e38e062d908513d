package models

import (
	"time"

	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

// OrgRoleBinding is keyed by user: a user holds exactly one organization role
// while they are a member.
type OrgRoleBinding struct {
	UserID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"user_id"`
	OrganizationID uuid.UUID    `gorm:"type:uuid;index;not null" json:"organization_id"`
	Role           rbac.OrgRole `gorm:"not null;default:'member'" json:"role"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (OrgRoleBinding) TableName() string {
	return "org_role_bindings"
}

// ProjectRoleBinding holds at most one role per (user, project); writes upsert
// on the composite key.
type ProjectRoleBinding struct {
	UserID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"user_id"`
	ProjectID      uuid.UUID        `gorm:"type:uuid;primaryKey;index" json:"project_id"`
	OrganizationID uuid.UUID        `gorm:"type:uuid;index;not null" json:"organization_id"`
	Role           rbac.ProjectRole `gorm:"not null" json:"role"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (ProjectRoleBinding) TableName() string {
	return "project_role_bindings"
}
