package rbac

import "fmt"

// OrgRole is an organization-wide role. Every member of an organization holds
// exactly one.
type OrgRole string

const (
	OrgRoleOwner           OrgRole = "owner"
	OrgRoleOrgAdmin        OrgRole = "org_admin"
	OrgRoleAccountingAdmin OrgRole = "accounting_admin"
	OrgRoleReadOnlyAuditor OrgRole = "read_only_auditor"
	OrgRoleMember          OrgRole = "member"
)

// ProjectRole is a role bound to a single project.
type ProjectRole string

const (
	ProjectRoleAdmin                   ProjectRole = "project_admin"
	ProjectRoleManager                 ProjectRole = "project_manager"
	ProjectRoleEngineer                ProjectRole = "project_engineer"
	ProjectRoleSuperintendent          ProjectRole = "superintendent"
	ProjectRoleAssistantSuperintendent ProjectRole = "assistant_superintendent"
	ProjectRoleForeman                 ProjectRole = "foreman"
	ProjectRoleFieldWorker             ProjectRole = "field_worker"
	ProjectRoleAccounting              ProjectRole = "accounting_project"
	ProjectRoleViewer                  ProjectRole = "viewer"
)

// orgHierarchy is ordered from most to least privileged. The index is the rank.
var orgHierarchy = []OrgRole{
	OrgRoleOwner,
	OrgRoleOrgAdmin,
	OrgRoleAccountingAdmin,
	OrgRoleReadOnlyAuditor,
	OrgRoleMember,
}

// projectDisplayOrder is for presentation only; capability comes from the
// permission sets.
var projectDisplayOrder = []ProjectRole{
	ProjectRoleAdmin,
	ProjectRoleManager,
	ProjectRoleSuperintendent,
	ProjectRoleEngineer,
	ProjectRoleAssistantSuperintendent,
	ProjectRoleForeman,
	ProjectRoleAccounting,
	ProjectRoleFieldWorker,
	ProjectRoleViewer,
}

var orgRolePermissions = map[OrgRole]PermissionSet{
	OrgRoleOwner: NewPermissionSet(orgPermissions...),
	OrgRoleOrgAdmin: NewPermissionSet(
		OrgManageSettings, OrgManageAccessCodes, OrgManageUsers,
		OrgViewAuditTrail, OrgViewAuditLog, OrgExportAll, OrgManageIntegrations,
		FinanceManageCostCodes, FinanceManageVendors, FinanceImportCostCodes, FinanceImportVendors,
	),
	OrgRoleAccountingAdmin: NewPermissionSet(
		OrgViewAuditTrail, OrgViewAuditLog, OrgExportAll, OrgManageIntegrations,
		OrgManageAccessCodes, FinanceManageCostCodes, FinanceManageVendors,
		FinanceImportCostCodes, FinanceImportVendors,
	),
	OrgRoleReadOnlyAuditor: NewPermissionSet(OrgViewAuditTrail, OrgViewAuditLog, OrgExportAll),
	OrgRoleMember:          NewPermissionSet(),
}

var projectRolePermissions = map[ProjectRole]PermissionSet{
	ProjectRoleAdmin: NewPermissionSet(projectPermissions...),
	ProjectRoleManager: NewPermissionSet(
		ProjectView, ProjectManageSettings, ProjectViewBudget,
		ProposalCreate, ProposalApprove, ProposalFinalize,
		ProposalViewAll, ExportProject, AuditViewProject,
		FinanceEditProposalCoding, RequestApprove, POMarkOrdered,
	),
	ProjectRoleEngineer: NewPermissionSet(
		ProjectView, ProjectViewBudget, ProposalCreate, ProposalViewAll,
	),
	ProjectRoleSuperintendent: NewPermissionSet(
		ProjectView, ProjectViewBudget,
		ProposalCreate, ProposalApprove, ProposalViewAll,
		FinanceEditProposalCoding, RequestApprove,
	),
	ProjectRoleAssistantSuperintendent: NewPermissionSet(ProjectView, ProposalCreate, ProposalViewAll),
	ProjectRoleForeman:                 NewPermissionSet(ProjectView, ProposalCreate, ProposalViewAll),
	ProjectRoleFieldWorker:             NewPermissionSet(ProjectView, ProposalCreate, ProposalViewOwnOnly),
	ProjectRoleAccounting: NewPermissionSet(
		ProjectView, ProjectViewBudget,
		ProposalViewAll, ProposalFinalize,
		ExportProject, IntegrationRetrySync, AuditViewProject,
		FinanceEditProposalCoding, POMarkOrdered,
	),
	ProjectRoleViewer: NewPermissionSet(ProjectView, ProposalViewAll, ProjectViewBudget),
}

var orgRoleLabels = map[OrgRole]string{
	OrgRoleOwner:           "Owner",
	OrgRoleOrgAdmin:        "Org Admin",
	OrgRoleAccountingAdmin: "Accounting Admin",
	OrgRoleReadOnlyAuditor: "Read-Only Auditor",
	OrgRoleMember:          "Member",
}

var orgRoleDescriptions = map[OrgRole]string{
	OrgRoleOwner:           "Full access to all organization settings, billing, and data",
	OrgRoleOrgAdmin:        "Manages users, access codes, and settings (everything except billing)",
	OrgRoleAccountingAdmin: "Audit trail, exports, integrations, and access codes",
	OrgRoleReadOnlyAuditor: "View-only access to audit trail and exports",
	OrgRoleMember:          "Basic membership with no org-level permissions",
}

var projectRoleLabels = map[ProjectRole]string{
	ProjectRoleAdmin:                   "Project Admin",
	ProjectRoleManager:                 "Project Manager",
	ProjectRoleEngineer:                "Project Engineer",
	ProjectRoleSuperintendent:          "Superintendent",
	ProjectRoleAssistantSuperintendent: "Assistant Superintendent",
	ProjectRoleForeman:                 "Foreman",
	ProjectRoleFieldWorker:             "Field Worker",
	ProjectRoleAccounting:              "Project Accounting",
	ProjectRoleViewer:                  "Viewer",
}

var projectRoleDescriptions = map[ProjectRole]string{
	ProjectRoleAdmin:                   "Full project control including settings, members, and all proposals",
	ProjectRoleManager:                 "Manages settings, approves, finalizes, exports",
	ProjectRoleEngineer:                "Creates proposals, views budget and all proposals",
	ProjectRoleSuperintendent:          "Approves proposals, views budget",
	ProjectRoleAssistantSuperintendent: "Creates proposals, views all proposals",
	ProjectRoleForeman:                 "Creates proposals, views all proposals",
	ProjectRoleFieldWorker:             "Creates proposals, views only own proposals",
	ProjectRoleAccounting:              "Finalizes, exports, manages integration syncs",
	ProjectRoleViewer:                  "Read-only access to project data and budget",
}

// ParseOrgRole validates s as an organization role.
func ParseOrgRole(s string) (OrgRole, error) {
	r := OrgRole(s)
	if _, ok := orgRolePermissions[r]; !ok {
		return "", fmt.Errorf("unknown organization role %q", s)
	}
	return r, nil
}

// ParseProjectRole validates s as a project role.
func ParseProjectRole(s string) (ProjectRole, error) {
	r := ProjectRole(s)
	if _, ok := projectRolePermissions[r]; !ok {
		return "", fmt.Errorf("unknown project role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the five organization roles.
func (r OrgRole) Valid() bool {
	_, ok := orgRolePermissions[r]
	return ok
}

// Valid reports whether r is one of the nine project roles.
func (r ProjectRole) Valid() bool {
	_, ok := projectRolePermissions[r]
	return ok
}

func (r OrgRole) Label() string { return orgRoleLabels[r] }
func (r OrgRole) Description() string { return orgRoleDescriptions[r] }

func (r ProjectRole) Label() string { return projectRoleLabels[r] }
func (r ProjectRole) Description() string { return projectRoleDescriptions[r] }

// Rank returns the position of r in the organization hierarchy, 0 being the
// most privileged. Unknown roles rank below member.
func Rank(r OrgRole) int {
	for i, role := range orgHierarchy {
		if role == r {
			return i
		}
	}
	return len(orgHierarchy)
}

// Outranks reports whether a is strictly more privileged than b.
func Outranks(a, b OrgRole) bool {
	return Rank(a) < Rank(b)
}

// CanGrantOrgRole reports whether an issuer holding issuer may hand out target.
// Members grant nothing; everyone else may grant their own rank or below.
func CanGrantOrgRole(issuer, target OrgRole) bool {
	if !issuer.Valid() || !target.Valid() || issuer == OrgRoleMember {
		return false
	}
	return Rank(target) >= Rank(issuer)
}

// AssignableOrgRoles lists the roles issuer may grant, most privileged first.
func AssignableOrgRoles(issuer OrgRole) []OrgRole {
	var out []OrgRole
	for _, r := range orgHierarchy {
		if CanGrantOrgRole(issuer, r) {
			out = append(out, r)
		}
	}
	return out
}

// OrgRoles returns the organization roles, most privileged first.
func OrgRoles() []OrgRole {
	out := make([]OrgRole, len(orgHierarchy))
	copy(out, orgHierarchy)
	return out
}

// ProjectRoles returns the project roles in display order.
func ProjectRoles() []ProjectRole {
	out := make([]ProjectRole, len(projectDisplayOrder))
	copy(out, projectDisplayOrder)
	return out
}

// DisplayOrder is the nominal position of r in role pickers.
func DisplayOrder(r ProjectRole) int {
	for i, role := range projectDisplayOrder {
		if role == r {
			return i
		}
	}
	return len(projectDisplayOrder)
}

// PermissionsOfOrgRole returns a copy of the permissions granted by r.
func PermissionsOfOrgRole(r OrgRole) PermissionSet {
	out := NewPermissionSet()
	out.Add(orgRolePermissions[r])
	return out
}

// PermissionsOfProjectRole returns a copy of the permissions granted by r.
func PermissionsOfProjectRole(r ProjectRole) PermissionSet {
	out := NewPermissionSet()
	out.Add(projectRolePermissions[r])
	return out
}
