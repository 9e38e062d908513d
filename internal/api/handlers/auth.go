package handlers

import (
	"errors"
	"net/http"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/api/middleware"
	"github.com/cmclain4200/approcure/internal/auth"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/google/uuid"
)

type AuthHandler struct {
	authService auth.Authenticator
}

func NewAuthHandler(authService auth.Authenticator) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		OrgName:  req.OrgName,
	})
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.NewUserDTO(resp.User),
	})
}

// Me handles GET /api/v1/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	id := identity(r)
	resp := dto.MeResponse{
		User:         dto.NewUserDTO(user),
		ProjectRoles: map[uuid.UUID]rbac.ProjectRole{},
		Permissions:  access.EffectivePermissions(id, nil).Sorted(),
		Assignable:   []rbac.OrgRole{},
	}
	if id.Active() {
		resp.OrgRole = id.OrgRole
		resp.ProjectRoles = id.ProjectBindings
		if roles := rbac.AssignableOrgRoles(id.OrgRole); roles != nil {
			resp.Assignable = roles
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateOrganization handles POST /api/v1/organizations
func (h *AuthHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrganizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeValidation(w, errors)
		return
	}

	org, err := h.authService.CreateOrganization(r.Context(), middleware.GetUserID(r.Context()), req.Name)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{Error: "User already exists", Kind: "conflict"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials", Kind: "unauthorized"})
	case errors.Is(err, auth.ErrInactiveUser):
		writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "Account is inactive", Kind: "forbidden"})
	case errors.Is(err, auth.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "User not found", Kind: "not_found"})
	default:
		writeError(w, r, err)
	}
}
