// Package rbac holds the fixed permission catalog: every permission
// identifier, the permission set each organization and project role grants,
// and the legacy alias table. The tables are built once at package init and
// never mutated; organizations cannot define their own roles.
package rbac

// Permission is an atomic capability identifier such as "proposal.approve".
type Permission string

// Organization-scoped permissions.
const (
	OrgManageSettings      Permission = "org.manage_settings"
	OrgManageBilling       Permission = "org.manage_billing"
	OrgManageAccessCodes   Permission = "org.manage_access_codes"
	OrgManageUsers         Permission = "org.manage_users"
	OrgViewAuditTrail      Permission = "org.view_audit_trail"
	OrgViewAuditLog        Permission = "org.view_audit_log"
	OrgExportAll           Permission = "org.export_all"
	OrgManageIntegrations  Permission = "org.manage_integrations"
	FinanceManageCostCodes Permission = "finance.manage_cost_codes"
	FinanceManageVendors   Permission = "finance.manage_vendors"
	FinanceImportCostCodes Permission = "finance.import_cost_codes"
	FinanceImportVendors   Permission = "finance.import_vendors"
)

// Project-scoped permissions.
const (
	ProjectView               Permission = "project.view"
	ProjectManageSettings     Permission = "project.manage_settings"
	ProjectManageMembers      Permission = "project.manage_members"
	ProjectViewBudget         Permission = "project.view_budget"
	ProjectEditBudget         Permission = "project.edit_budget"
	ProposalCreate            Permission = "proposal.create"
	ProposalApprove           Permission = "proposal.approve"
	ProposalOverrideApproval  Permission = "proposal.override_approval"
	ProposalFinalize          Permission = "proposal.finalize"
	ProposalEditOthers        Permission = "proposal.edit_others"
	ProposalDelete            Permission = "proposal.delete"
	ProposalViewAll           Permission = "proposal.view_all"
	ProposalViewOwnOnly       Permission = "proposal.view_own_only"
	ExportProject             Permission = "export.project"
	IntegrationRetrySync      Permission = "integration.retry_sync"
	AuditViewProject          Permission = "audit.view_project"
	FinanceEditProposalCoding Permission = "finance.edit_proposal_coding"
	FinanceRequirementsManage Permission = "finance.requirements_manage"

	// Legacy keys still present on older bindings.
	RequestApprove Permission = "request.approve"
	RequestDeny    Permission = "request.deny"
	RequestCreate  Permission = "request.create"
	POMarkOrdered  Permission = "po.mark_ordered"
)

var orgPermissions = []Permission{
	OrgManageSettings,
	OrgManageBilling,
	OrgManageAccessCodes,
	OrgManageUsers,
	OrgViewAuditTrail,
	OrgViewAuditLog,
	OrgExportAll,
	OrgManageIntegrations,
	FinanceManageCostCodes,
	FinanceManageVendors,
	FinanceImportCostCodes,
	FinanceImportVendors,
}

var projectPermissions = []Permission{
	ProjectView,
	ProjectManageSettings,
	ProjectManageMembers,
	ProjectViewBudget,
	ProjectEditBudget,
	ProposalCreate,
	ProposalApprove,
	ProposalOverrideApproval,
	ProposalFinalize,
	ProposalEditOthers,
	ProposalDelete,
	ProposalViewAll,
	ProposalViewOwnOnly,
	ExportProject,
	IntegrationRetrySync,
	AuditViewProject,
	FinanceEditProposalCoding,
	FinanceRequirementsManage,
	RequestApprove,
	RequestDeny,
	RequestCreate,
	POMarkOrdered,
}

// aliases maps a current permission to the legacy keys that satisfy it.
// This is the only place legacy names are interpreted.
var aliases = map[Permission][]Permission{
	ProposalApprove:  {RequestApprove},
	ProposalCreate:   {RequestCreate},
	ProposalFinalize: {POMarkOrdered},
}

// AliasesOf returns the legacy permissions accepted in place of p.
func AliasesOf(p Permission) []Permission {
	legacy := aliases[p]
	out := make([]Permission, len(legacy))
	copy(out, legacy)
	return out
}

// OrgPermissions lists every organization-scoped permission.
func OrgPermissions() []Permission {
	out := make([]Permission, len(orgPermissions))
	copy(out, orgPermissions)
	return out
}

// ProjectPermissions lists every project-scoped permission, legacy keys included.
func ProjectPermissions() []Permission {
	out := make([]Permission, len(projectPermissions))
	copy(out, projectPermissions)
	return out
}

// IsKnown reports whether p is part of the catalog.
func IsKnown(p Permission) bool {
	for _, known := range orgPermissions {
		if known == p {
			return true
		}
	}
	for _, known := range projectPermissions {
		if known == p {
			return true
		}
	}
	return false
}
