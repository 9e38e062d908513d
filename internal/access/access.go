// Package access resolves who a caller is into the permissions they hold.
//
// Effective permissions are the union of the caller's organization role
// permissions and their project role permissions: the binding for one project
// when a scope is given, every binding when it is not. Disabled callers and
// callers outside any organization hold nothing. Identities are built fresh
// from the store for every request and never cached.
package access

import (
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/google/uuid"
)

// Identity is a resolved caller.
type Identity struct {
	UserID          uuid.UUID
	OrganizationID  uuid.UUID
	OrgRole         rbac.OrgRole
	ProjectBindings map[uuid.UUID]rbac.ProjectRole
	Disabled        bool
}

// Active reports whether the identity may hold any permission at all.
func (id *Identity) Active() bool {
	return id != nil && !id.Disabled && id.OrganizationID != uuid.Nil
}

// ProjectRole returns the caller's role on project, if bound.
func (id *Identity) ProjectRole(project uuid.UUID) (rbac.ProjectRole, bool) {
	if id == nil {
		return "", false
	}
	role, ok := id.ProjectBindings[project]
	return role, ok
}

// IsOrgAdmin reports whether the caller is an owner or org_admin.
func (id *Identity) IsOrgAdmin() bool {
	return id.Active() && (id.OrgRole == rbac.OrgRoleOwner || id.OrgRole == rbac.OrgRoleOrgAdmin)
}

// EffectivePermissions computes the caller's permissions. A nil scope unions
// every project binding; a non-nil scope unions only that project's binding.
func EffectivePermissions(id *Identity, scope *uuid.UUID) rbac.PermissionSet {
	perms := rbac.NewPermissionSet()
	if !id.Active() {
		return perms
	}

	perms.Add(rbac.PermissionsOfOrgRole(id.OrgRole))

	if scope != nil {
		if role, ok := id.ProjectBindings[*scope]; ok {
			perms.Add(rbac.PermissionsOfProjectRole(role))
		}
		return perms
	}

	for _, role := range id.ProjectBindings {
		perms.Add(rbac.PermissionsOfProjectRole(role))
	}
	return perms
}

// Has reports whether the caller holds p, or a legacy alias of p, in scope.
func Has(id *Identity, p rbac.Permission, scope *uuid.UUID) bool {
	return EffectivePermissions(id, scope).Allows(p)
}

// Require is Has as an error: Forbidden names the missing permission.
func Require(id *Identity, p rbac.Permission, scope *uuid.UUID) error {
	if Has(id, p, scope) {
		return nil
	}
	metrics.RecordDenial(string(p))
	if id != nil && id.Disabled {
		return apperr.New(apperr.Forbidden, "account is disabled")
	}
	return apperr.Newf(apperr.Forbidden, "missing permission %s", p)
}

// Scope is shorthand for a project scope.
func Scope(projectID uuid.UUID) *uuid.UUID {
	return &projectID
}

// ProjectsWith lists the bound projects on which the caller holds p through
// their project role. Org-role grants of project permissions do not exist in
// the catalog, so bindings are the only source.
func ProjectsWith(id *Identity, p rbac.Permission) []uuid.UUID {
	if !id.Active() {
		return nil
	}
	var out []uuid.UUID
	for project := range id.ProjectBindings {
		if Has(id, p, Scope(project)) {
			out = append(out, project)
		}
	}
	return out
}
