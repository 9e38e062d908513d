package handlers

import (
	"net/http"

	"github.com/cmclain4200/approcure/internal/api/dto"
	"github.com/cmclain4200/approcure/internal/membership"
	"github.com/cmclain4200/approcure/internal/rbac"
)

type MemberHandler struct {
	members *membership.Service
}

func NewMemberHandler(members *membership.Service) *MemberHandler {
	return &MemberHandler{members: members}
}

// List handles GET /api/v1/members
func (h *MemberHandler) List(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(members))
}

// Leave handles POST /api/v1/members/leave
func (h *MemberHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if err := h.members.Leave(r.Context(), identity(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Left organization"})
}

// SetOrgRole handles PUT /api/v1/members/{userID}/role
func (h *MemberHandler) SetOrgRole(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userID", "user")
	if !ok {
		return
	}

	var req dto.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := rbac.ParseOrgRole(req.Role)
	if err != nil {
		writeValidation(w, map[string]string{"role": "Unknown organization role"})
		return
	}

	if err := h.members.SetOrgRole(r.Context(), identity(r), userID, role); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Role updated"})
}

// SetDisabled handles PUT /api/v1/members/{userID}/disabled
func (h *MemberHandler) SetDisabled(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseID(w, r, "userID", "user")
	if !ok {
		return
	}

	var req dto.SetDisabledRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.members.SetDisabled(r.Context(), identity(r), userID, req.Disabled); err != nil {
		writeError(w, r, err)
		return
	}
	msg := "User enabled"
	if req.Disabled {
		msg = "User disabled"
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: msg})
}

// AssignProjectRole handles PUT /api/v1/projects/{id}/members/{userID}
func (h *MemberHandler) AssignProjectRole(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}
	userID, ok := parseID(w, r, "userID", "user")
	if !ok {
		return
	}

	var req dto.RoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	role, err := rbac.ParseProjectRole(req.Role)
	if err != nil {
		writeValidation(w, map[string]string{"role": "Unknown project role"})
		return
	}

	if err := h.members.AssignProjectRole(r.Context(), identity(r), userID, projectID, role); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Project role assigned"})
}

// RemoveProjectRole handles DELETE /api/v1/projects/{id}/members/{userID}
func (h *MemberHandler) RemoveProjectRole(w http.ResponseWriter, r *http.Request) {
	projectID, ok := parseID(w, r, "id", "project")
	if !ok {
		return
	}
	userID, ok := parseID(w, r, "userID", "user")
	if !ok {
		return
	}

	if err := h.members.RemoveProjectRole(r.Context(), identity(r), userID, projectID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Project role removed"})
}

// Roles handles GET /api/v1/roles
func Roles(w http.ResponseWriter, r *http.Request) {
	resp := dto.RoleCatalogResponse{}
	for _, role := range rbac.OrgRoles() {
		resp.OrgRoles = append(resp.OrgRoles, dto.RoleDTO{
			ID:          string(role),
			Label:       role.Label(),
			Description: role.Description(),
			Permissions: rbac.PermissionsOfOrgRole(role).Sorted(),
		})
	}
	for _, role := range rbac.ProjectRoles() {
		resp.ProjectRoles = append(resp.ProjectRoles, dto.RoleDTO{
			ID:          string(role),
			Label:       role.Label(),
			Description: role.Description(),
			Permissions: rbac.PermissionsOfProjectRole(role).Sorted(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
