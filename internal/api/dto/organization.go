package dto

import (
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/api/validation"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

type IssueCodeRequest struct {
	OrgRole       string     `json:"org_role"`
	MaxUses       int        `json:"max_uses"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ExpiresInDays int        `json:"expires_in_days,omitempty"`
	ProjectID     *uuid.UUID `json:"project_id,omitempty"`
	ProjectRole   string     `json:"project_role,omitempty"`
}

func (r IssueCodeRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if _, err := rbac.ParseOrgRole(r.OrgRole); err != nil {
		errors["org_role"] = "Unknown organization role"
	}
	if r.ProjectRole != "" {
		if _, err := rbac.ParseProjectRole(r.ProjectRole); err != nil {
			errors["project_role"] = "Unknown project role"
		}
	}
	return errors
}

func (r IssueCodeRequest) Input() accesscode.IssueInput {
	return accesscode.IssueInput{
		OrgRole:       rbac.OrgRole(r.OrgRole),
		MaxUses:       r.MaxUses,
		ExpiresAt:     r.ExpiresAt,
		ExpiresInDays: r.ExpiresInDays,
		ProjectID:     r.ProjectID,
		ProjectRole:   rbac.ProjectRole(r.ProjectRole),
	}
}

type ClaimCodeRequest struct {
	Code string `json:"code"`
}

func (r ClaimCodeRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidAccessCode(validation.NormalizeAccessCode(r.Code)) {
		errors["code"] = "Access code must be 8 letters and digits"
	}
	return errors
}

type RoleRequest struct {
	Role string `json:"role"`
}

type SetDisabledRequest struct {
	Disabled bool `json:"disabled"`
}

type CreateProjectRequest struct {
	Name          string  `json:"name"`
	JobNumber     string  `json:"job_number,omitempty"`
	Address       string  `json:"address,omitempty"`
	MonthlyBudget float64 `json:"monthly_budget"`
	Phase         string  `json:"phase,omitempty"`
}

func (r CreateProjectRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	} else if len(r.Name) > validation.MaxNameLength {
		errors["name"] = "Name is too long"
	}
	if !validation.IsValidAmount(r.MonthlyBudget) {
		errors["monthly_budget"] = "Monthly budget must be a non-negative amount"
	}
	return errors
}

func (r CreateProjectRequest) Input() projects.CreateInput {
	return projects.CreateInput{
		Name:          validation.CleanText(r.Name, validation.MaxNameLength),
		JobNumber:     validation.CleanText(r.JobNumber, validation.MaxNameLength),
		Address:       validation.CleanText(r.Address, validation.MaxTextLength),
		MonthlyBudget: r.MonthlyBudget,
		Phase:         models.ProjectPhase(r.Phase),
	}
}

type SetBudgetRequest struct {
	MonthlyBudget *float64 `json:"monthly_budget"`
}

func (r SetBudgetRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.MonthlyBudget == nil {
		errors["monthly_budget"] = "Monthly budget is required"
	} else if !validation.IsValidAmount(*r.MonthlyBudget) {
		errors["monthly_budget"] = "Monthly budget must be a non-negative amount"
	}
	return errors
}

type CostCodeRequest struct {
	Code     string `json:"code"`
	Label    string `json:"label"`
	Category string `json:"category,omitempty"`
}

type VendorRequest struct {
	Name string `json:"name"`
}

// RoleDTO describes one role of the catalog.
type RoleDTO struct {
	ID          string            `json:"id"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	Permissions []rbac.Permission `json:"permissions"`
}

type RoleCatalogResponse struct {
	OrgRoles     []RoleDTO `json:"org_roles"`
	ProjectRoles []RoleDTO `json:"project_roles"`
}
