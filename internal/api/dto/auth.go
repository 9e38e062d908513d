package dto

import (
	"strings"

	"github.com/cmclain4200/approcure/internal/api/validation"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	OrgName  string `json:"org_name,omitempty"`
}

func (r RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	} else if !validation.IsValidEmail(strings.TrimSpace(r.Email)) {
		errors["email"] = "Email is invalid"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if ok, msg := validation.IsValidPassword(r.Password); !ok {
		errors["password"] = msg
	}
	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if len(r.OrgName) > validation.MaxNameLength {
		errors["org_name"] = "Organization name is too long"
	}

	return errors
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

type CreateOrganizationRequest struct {
	Name string `json:"name"`
}

func (r CreateOrganizationRequest) Validate() map[string]string {
	errors := make(map[string]string)
	name := strings.TrimSpace(r.Name)
	if name == "" {
		errors["name"] = "Name is required"
	} else if len(name) > validation.MaxNameLength {
		errors["name"] = "Name is too long"
	}
	return errors
}

type AuthResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type UserDTO struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	Name           string `json:"name"`
	OrganizationID string `json:"organization_id,omitempty"`
	OrgName        string `json:"org_name,omitempty"`
	Onboarded      bool   `json:"onboarded"`
	Disabled       bool   `json:"disabled,omitempty"`
}

func NewUserDTO(u *models.User) UserDTO {
	out := UserDTO{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		Onboarded: u.Onboarded,
		Disabled:  u.Disabled,
	}
	if u.OrganizationID != nil {
		out.OrganizationID = u.OrganizationID.String()
	}
	if u.Organization != nil {
		out.OrgName = u.Organization.Name
	}
	return out
}

// MeResponse describes the caller together with the grants resolved for this
// request.
type MeResponse struct {
	User         UserDTO                        `json:"user"`
	OrgRole      rbac.OrgRole                   `json:"org_role,omitempty"`
	ProjectRoles map[uuid.UUID]rbac.ProjectRole `json:"project_roles"`
	Permissions  []rbac.Permission              `json:"permissions"`
	Assignable   []rbac.OrgRole                 `json:"assignable_org_roles"`
}
