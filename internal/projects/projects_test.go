package projects_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/projects"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	*testutil.TestSetup
	svc      *projects.Service
	resolver *access.Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ts := testutil.NewTestContext(t)
	return &fixture{
		TestSetup: ts,
		svc:       projects.NewService(ts.Store, slog.New(slog.NewTextHandler(io.Discard, nil))),
		resolver:  access.NewResolver(ts.Store),
	}
}

func (f *fixture) identity(t *testing.T, user *models.User) *access.Identity {
	t.Helper()
	id, err := f.resolver.Resolve(testutil.TestContext(t), user.ID)
	require.NoError(t, err)
	return id
}

func TestCreate_BindsCreatorAsAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	project, err := f.svc.Create(ctx, f.identity(t, f.User), projects.CreateInput{
		Name:          "  Riverside Clinic ",
		JobNumber:     "J-2041",
		MonthlyBudget: 25000.456,
	})
	require.NoError(t, err)
	assert.Equal(t, "Riverside Clinic", project.Name)
	assert.Equal(t, 25000.46, project.MonthlyBudget)
	assert.Equal(t, models.PhasePreconstruction, project.Phase)

	owner := f.identity(t, f.User)
	role, ok := owner.ProjectRole(project.ID)
	require.True(t, ok)
	assert.Equal(t, rbac.ProjectRoleAdmin, role)
	assert.True(t, access.Has(owner, rbac.ProposalApprove, access.Scope(project.ID)))
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	owner := f.identity(t, f.User)

	_, err := f.svc.Create(ctx, owner, projects.CreateInput{Name: " "})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Create(ctx, owner, projects.CreateInput{Name: "A", MonthlyBudget: -5})
	assert.True(t, apperr.Is(err, apperr.Validation))

	_, err = f.svc.Create(ctx, owner, projects.CreateInput{Name: "A", Phase: "demolition"})
	assert.True(t, apperr.Is(err, apperr.Validation))

	auditor := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleReadOnlyAuditor)
	_, err = f.svc.Create(ctx, f.identity(t, auditor), projects.CreateInput{Name: "A"})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestList_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	a := testutil.CreateTestProject(t, f.DB, f.Org.ID, 100)
	testutil.CreateTestProject(t, f.DB, f.Org.ID, 100)
	testutil.CreateTestProject(t, f.DB, testutil.CreateTestOrg(t, f.DB).ID, 100)

	all, err := f.svc.List(ctx, f.identity(t, f.User))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	foreman := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, foreman, a, rbac.ProjectRoleForeman)
	mine, err := f.svc.List(ctx, f.identity(t, foreman))
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, a.ID, mine[0].ID)
}

func TestSetMonthlyBudget(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	project := testutil.CreateTestProject(t, f.DB, f.Org.ID, 100)

	manager := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, manager, project, rbac.ProjectRoleManager)
	_, err := f.svc.SetMonthlyBudget(ctx, f.identity(t, manager), project.ID, 500)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	admin := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, admin, project, rbac.ProjectRoleAdmin)
	updated, err := f.svc.SetMonthlyBudget(ctx, f.identity(t, admin), project.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, 500.0, updated.MonthlyBudget)
}

func TestFinanceRequirements(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	project := testutil.CreateTestProject(t, f.DB, f.Org.ID, 100)
	admin := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, admin, project, rbac.ProjectRoleAdmin)
	id := f.identity(t, admin)

	current, err := f.svc.FinanceRequirements(ctx, id, project.ID)
	require.NoError(t, err)
	assert.Equal(t, projects.FinanceRequirements{}, *current)

	_, err = f.svc.SetFinanceRequirements(ctx, id, project.ID, projects.FinanceRequirements{
		RequireCostCode: true,
		RequirePONumber: true,
	})
	require.NoError(t, err)

	_, err = f.svc.SetFinanceRequirements(ctx, id, project.ID, projects.FinanceRequirements{
		RequireCostCode: true,
		RequireVendor:   true,
	})
	require.NoError(t, err)

	current, err = f.svc.FinanceRequirements(ctx, id, project.ID)
	require.NoError(t, err)
	assert.True(t, current.RequireCostCode)
	assert.True(t, current.RequireVendor)
	assert.False(t, current.RequirePONumber)

	accounting := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, accounting, project, rbac.ProjectRoleAccounting)
	_, err = f.svc.SetFinanceRequirements(ctx, f.identity(t, accounting), project.ID, projects.FinanceRequirements{})
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestCostCodesAndVendors(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	accounting := f.identity(t, testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleAccountingAdmin))

	cc, err := f.svc.CreateCostCode(ctx, accounting, "03-300", "Cast-in-place concrete", "Concrete")
	require.NoError(t, err)
	assert.Equal(t, "03-300", cc.Code)

	_, err = f.svc.CreateCostCode(ctx, accounting, "03-300", "Again", "")
	assert.ErrorIs(t, err, projects.ErrDuplicateCostCode)

	_, err = f.svc.CreateCostCode(ctx, accounting, "", "No code", "")
	assert.True(t, apperr.Is(err, apperr.Validation))

	v, err := f.svc.CreateVendor(ctx, accounting, "Ferguson")
	require.NoError(t, err)
	assert.True(t, v.Active)

	member := f.identity(t, testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember))
	_, err = f.svc.CreateVendor(ctx, member, "Nope")
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	codes, err := f.svc.CostCodes(ctx, member)
	require.NoError(t, err)
	assert.Len(t, codes, 1)

	vendors, err := f.svc.Vendors(ctx, member)
	require.NoError(t, err)
	assert.Len(t, vendors, 1)
}
