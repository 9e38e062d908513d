package requests_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/cmclain4200/approcure/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) snapshot() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Event(nil), p.events...)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, events.Event) error {
	return errors.New("broker down")
}

type fixture struct {
	*testutil.TestSetup
	mgr      *requests.Manager
	resolver *access.Resolver
	pub      *recordingPublisher
	project  *models.Project

	requester *models.User
	approver  *models.User
	finance   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ts := testutil.NewTestContext(t)
	pub := &recordingPublisher{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		TestSetup: ts,
		mgr:       requests.NewManager(ts.Store, pub, logger),
		resolver:  access.NewResolver(ts.Store),
		pub:       pub,
		project:   testutil.CreateTestProject(t, ts.DB, ts.Org.ID, 10000),
	}

	f.requester = testutil.CreateTestUser(t, ts.DB, ts.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, ts.DB, f.requester, f.project, rbac.ProjectRoleForeman)

	f.approver = testutil.CreateTestUser(t, ts.DB, ts.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, ts.DB, f.approver, f.project, rbac.ProjectRoleManager)

	f.finance = testutil.CreateTestUser(t, ts.DB, ts.Org, rbac.OrgRoleAccountingAdmin)
	testutil.BindProjectRole(t, ts.DB, f.finance, f.project, rbac.ProjectRoleAccounting)
	return f
}

func (f *fixture) identity(t *testing.T, user *models.User) *access.Identity {
	t.Helper()
	id, err := f.resolver.Resolve(testutil.TestContext(t), user.ID)
	require.NoError(t, err)
	return id
}

func (f *fixture) createInput() requests.CreateInput {
	return requests.CreateInput{
		ProjectID:      f.project.ID,
		Vendor:         "Ferguson Supply",
		Category:       models.CategoryMaterials,
		NeedBy:         models.NeedByTomorrow,
		DeliveryMethod: models.DeliveryPickup,
		LineItems: []requests.LineItemInput{
			{Name: "2x4 stud", Quantity: 100, Unit: "ea", EstimatedUnitCost: 4.25},
			{Name: "Joist hanger", Quantity: 20, Unit: "ea", EstimatedUnitCost: 1.5},
		},
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	id := f.identity(t, f.requester)

	first, err := f.mgr.Create(ctx, id, f.createInput())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusDraft, first.Status)
	assert.Equal(t, "PO-1001", first.PONumber)
	assert.Equal(t, 455.0, first.EstimatedTotal)
	assert.Equal(t, models.UrgencyNormal, first.Urgency)
	assert.Equal(t, f.requester.ID, first.RequesterID)

	in := f.createInput()
	in.Submit = true
	second, err := f.mgr.Create(ctx, id, in)
	require.NoError(t, err)
	assert.Equal(t, "PO-1002", second.PONumber)
	assert.Equal(t, models.RequestStatusPending, second.Status)
	assert.NotNil(t, second.SubmittedAt)

	history, err := f.mgr.History(ctx, id, second.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, models.AuditCreated, history[0].Action)
	assert.Equal(t, models.AuditSubmitted, history[1].Action)
	assert.Equal(t, "PO-1002 submitted for Ferguson Supply – $455.00", history[1].Details)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	id := f.identity(t, f.requester)

	tests := []struct {
		name   string
		modify func(in *requests.CreateInput)
	}{
		{"missing vendor", func(in *requests.CreateInput) { in.Vendor = "  " }},
		{"unknown category", func(in *requests.CreateInput) { in.Category = "snacks" }},
		{"unknown need by", func(in *requests.CreateInput) { in.NeedBy = "someday" }},
		{"delivery without address", func(in *requests.CreateInput) { in.DeliveryMethod = models.DeliveryDelivery }},
		{"no line items", func(in *requests.CreateInput) { in.LineItems = nil }},
		{"unnamed item", func(in *requests.CreateInput) { in.LineItems[0].Name = "" }},
		{"zero quantity", func(in *requests.CreateInput) { in.LineItems[0].Quantity = 0 }},
		{"negative cost", func(in *requests.CreateInput) { in.LineItems[1].EstimatedUnitCost = -1 }},
		{"foreign cost code", func(in *requests.CreateInput) {
			cc := uuid.New()
			in.CostCodeID = &cc
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := f.createInput()
			tt.modify(&in)
			_, err := f.mgr.Create(ctx, id, in)
			assert.True(t, apperr.Is(err, apperr.Validation), "got %v", err)
		})
	}
}

func TestCreate_RequiresProposalCreate(t *testing.T) {
	f := newFixture(t)
	viewer := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, viewer, f.project, rbac.ProjectRoleViewer)

	_, err := f.mgr.Create(testutil.TestContext(t), f.identity(t, viewer), f.createInput())
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestSubmit_OnlyRequester(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	draft := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusDraft, 300)

	_, err := f.mgr.Submit(ctx, f.identity(t, f.approver), draft.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	submitted, err := f.mgr.Submit(ctx, f.identity(t, f.requester), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, submitted.Status)

	_, err = f.mgr.Submit(ctx, f.identity(t, f.requester), draft.ID)
	assert.True(t, apperr.Is(err, apperr.InvalidTransition))
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 7000)
	pending := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 2000)
	cc := testutil.CreateTestCostCode(t, f.DB, f.Org.ID, "03-100")

	result, err := f.mgr.Approve(ctx, f.identity(t, f.approver), pending.ID, &cc.ID)
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusApproved, result.Request.Status)
	assert.Equal(t, 70, result.Impact.CurrentPct)
	assert.Equal(t, 90, result.Impact.AfterPct)
	assert.True(t, result.Impact.AtRisk)

	stored, err := f.Store.GetRequest(ctx, f.Org.ID, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusApproved, stored.Status)
	require.NotNil(t, stored.CostCodeID)
	assert.Equal(t, cc.ID, *stored.CostCodeID)
	require.NotNil(t, stored.ApprovedBy)
	assert.Equal(t, f.approver.ID, *stored.ApprovedBy)

	evs := f.pub.snapshot()
	require.Len(t, evs, 1)
	assert.Equal(t, events.TypeRequestStatusChanged, evs[0].Type)
	assert.Equal(t, "pending", evs[0].From)
	assert.Equal(t, "approved", evs[0].To)
	assert.Equal(t, pending.PONumber, evs[0].Reference)

	audit, err := f.Store.ListAudit(ctx, f.Org.ID, models.AuditTargetRequest, pending.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, pending.PONumber+" approved – $2,000.00", audit[0].Details)
}

func TestApprove_Denied(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	pending := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 100)

	t.Run("foreman cannot approve", func(t *testing.T) {
		_, err := f.mgr.Approve(ctx, f.identity(t, f.requester), pending.ID, nil)
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("owner without a binding cannot approve", func(t *testing.T) {
		_, err := f.mgr.Approve(ctx, f.identity(t, f.User), pending.ID, nil)
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("approval on another project does not carry over", func(t *testing.T) {
		other := testutil.CreateTestProject(t, f.DB, f.Org.ID, 5000)
		approver := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
		testutil.BindProjectRole(t, f.DB, approver, other, rbac.ProjectRoleManager)

		_, err := f.mgr.Approve(ctx, f.identity(t, approver), pending.ID, nil)
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("other organization sees nothing", func(t *testing.T) {
		org := testutil.CreateTestOrg(t, f.DB)
		outsider := testutil.CreateTestUser(t, f.DB, org, rbac.OrgRoleOwner)

		_, err := f.mgr.Approve(ctx, f.identity(t, outsider), pending.ID, nil)
		assert.True(t, apperr.Is(err, apperr.NotFound))
	})

	t.Run("superintendent can approve", func(t *testing.T) {
		super := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
		testutil.BindProjectRole(t, f.DB, super, f.project, rbac.ProjectRoleSuperintendent)
		_, err := f.mgr.Approve(ctx, f.identity(t, super), pending.ID, nil)
		assert.NoError(t, err)
	})
}

func TestApproveReject_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	pending := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 500)
	approver := f.identity(t, f.approver)

	var (
		wg        sync.WaitGroup
		approveErr error
		rejectErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = f.mgr.Approve(ctx, approver, pending.ID, nil)
	}()
	go func() {
		defer wg.Done()
		_, rejectErr = f.mgr.Reject(ctx, approver, pending.ID, "duplicate order")
	}()
	wg.Wait()

	require.True(t, (approveErr == nil) != (rejectErr == nil), "approve=%v reject=%v", approveErr, rejectErr)
	loser := approveErr
	if loser == nil {
		loser = rejectErr
	}
	assert.True(t, apperr.Is(loser, apperr.InvalidTransition))

	stored, err := f.Store.GetRequest(ctx, f.Org.ID, pending.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.RequestStatus{models.RequestStatusApproved, models.RequestStatusRejected}, stored.Status)

	audit, err := f.Store.ListAudit(ctx, f.Org.ID, models.AuditTargetRequest, pending.ID)
	require.NoError(t, err)
	assert.Len(t, audit, 1)
	assert.Len(t, f.pub.snapshot(), 1)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	pending := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 500)

	t.Run("blank reason fails before permission", func(t *testing.T) {
		for _, actor := range []*models.User{f.requester, f.approver} {
			_, err := f.mgr.Reject(ctx, f.identity(t, actor), pending.ID, "")
			assert.True(t, apperr.Is(err, apperr.Validation))
			_, err = f.mgr.Reject(ctx, f.identity(t, actor), pending.ID, "   ")
			assert.True(t, apperr.Is(err, apperr.Validation))
		}
		_, err := f.mgr.Reject(ctx, nil, uuid.New(), "")
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("rejects with reason", func(t *testing.T) {
		rejected, err := f.mgr.Reject(ctx, f.identity(t, f.approver), pending.ID, "  over quoted  ")
		require.NoError(t, err)
		assert.Equal(t, models.RequestStatusRejected, rejected.Status)
		assert.Equal(t, "over quoted", rejected.RejectionReason)

		audit, err := f.Store.ListAudit(ctx, f.Org.ID, models.AuditTargetRequest, pending.ID)
		require.NoError(t, err)
		require.Len(t, audit, 1)
		assert.Equal(t, "Rejected: over quoted", audit[0].Details)
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		_, err := f.mgr.Approve(ctx, f.identity(t, f.approver), pending.ID, nil)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.InvalidTransition))
		assert.Contains(t, apperr.Message(err), "is rejected, expected pending")
	})
}

func TestMarkPurchased(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	approved := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 1000)
	finance := f.identity(t, f.finance)

	for _, total := range []float64{-1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := f.mgr.MarkPurchased(ctx, finance, approved.ID, requests.PurchaseInput{FinalTotal: total})
		assert.True(t, apperr.Is(err, apperr.Validation), "final total %v", total)
	}

	notes := "coded by AP"
	_, err := f.mgr.UpdateCoding(ctx, finance, approved.ID, requests.CodingInput{AccountingNotes: &notes})
	require.NoError(t, err)

	_, err = f.mgr.MarkPurchased(ctx, f.identity(t, f.requester), approved.ID, requests.PurchaseInput{FinalTotal: 1200})
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	purchased, err := f.mgr.MarkPurchased(ctx, finance, approved.ID, requests.PurchaseInput{
		FinalTotal: 1200,
		ReceiptRef: "receipts/po-1.pdf",
		Notes:      "paid by card",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPurchased, purchased.Status)

	stored, err := f.Store.GetRequest(ctx, f.Org.ID, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, stored.EstimatedTotal)
	require.NotNil(t, stored.FinalTotal)
	assert.Equal(t, 1200.0, *stored.FinalTotal)
	assert.Equal(t, models.StringList{"receipts/po-1.pdf"}, stored.ReceiptAttachments)
	assert.Equal(t, "coded by AP\npaid by card", stored.AccountingNotes)
	assert.Equal(t, stored.AccountingNotes, purchased.AccountingNotes)

	audit, err := f.Store.ListAudit(ctx, f.Org.ID, models.AuditTargetRequest, approved.ID)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, "Marked purchased – $1,200.00", audit[len(audit)-1].Details)

	_, err = f.mgr.MarkPurchased(ctx, finance, approved.ID, requests.PurchaseInput{FinalTotal: 1})
	assert.True(t, apperr.Is(err, apperr.InvalidTransition))
}

func TestUpdateCoding(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	finance := f.identity(t, f.finance)
	cc := testutil.CreateTestCostCode(t, f.DB, f.Org.ID, "05-200")
	vendor := testutil.CreateTestVendor(t, f.DB, f.Org.ID, "Ferguson")
	po := "4500-17"

	purchased := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPurchased, 250)
	updated, err := f.mgr.UpdateCoding(ctx, finance, purchased.ID, requests.CodingInput{
		CostCodeID:  &cc.ID,
		VendorID:    &vendor.ID,
		POReference: &po,
	})
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPurchased, updated.Status)
	assert.Equal(t, "4500-17", updated.POReference)
	require.NotNil(t, updated.VendorID)
	assert.Equal(t, vendor.ID, *updated.VendorID)

	audit, err := f.Store.ListAudit(ctx, f.Org.ID, models.AuditTargetRequest, purchased.ID)
	require.NoError(t, err)
	require.Len(t, audit, 1)
	assert.Equal(t, models.AuditUpdated, audit[0].Action)
	assert.Contains(t, audit[0].Details, "cost code, vendor, PO reference")

	t.Run("draft and rejected cannot be coded", func(t *testing.T) {
		for _, status := range []models.RequestStatus{models.RequestStatusDraft, models.RequestStatusRejected} {
			req := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, status, 10)
			_, err := f.mgr.UpdateCoding(ctx, finance, req.ID, requests.CodingInput{POReference: &po})
			assert.True(t, apperr.Is(err, apperr.InvalidTransition), "status %s", status)
		}
	})

	t.Run("foreign vendor is rejected", func(t *testing.T) {
		otherOrg := testutil.CreateTestOrg(t, f.DB)
		foreign := testutil.CreateTestVendor(t, f.DB, otherOrg.ID, "Elsewhere")
		_, err := f.mgr.UpdateCoding(ctx, finance, purchased.ID, requests.CodingInput{VendorID: &foreign.ID})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})

	t.Run("foreman cannot code", func(t *testing.T) {
		_, err := f.mgr.UpdateCoding(ctx, f.identity(t, f.requester), purchased.ID, requests.CodingInput{POReference: &po})
		assert.True(t, apperr.Is(err, apperr.Forbidden))
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := f.mgr.UpdateCoding(ctx, finance, purchased.ID, requests.CodingInput{})
		assert.True(t, apperr.Is(err, apperr.Validation))
	})
}

func TestMissingFields(t *testing.T) {
	cc := uuid.New()
	req := &models.PurchaseRequest{CostCodeID: &cc, Status: models.RequestStatusApproved}

	missing := requests.MissingFields(req, models.ProjectFinanceSettings{
		RequireCostCode: true,
		RequirePONumber: true,
	})
	assert.Equal(t, []string{"PO #"}, missing)

	all := requests.MissingFields(&models.PurchaseRequest{Notes: "  "}, models.ProjectFinanceSettings{
		RequireCostCode:          true,
		RequireVendor:            true,
		RequirePONumber:          true,
		RequireReceiptAttachment: true,
		RequireDescription:       true,
	})
	assert.Equal(t, []string{"Cost Code", "Vendor", "PO #", "Receipt", "Description"}, all)

	assert.Empty(t, requests.MissingFields(&models.PurchaseRequest{}, models.ProjectFinanceSettings{}))
}

func TestNeedsAttention(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	cc := testutil.CreateTestCostCode(t, f.DB, f.Org.ID, "01-000")

	require.NoError(t, f.Store.UpsertFinanceSettings(ctx, &models.ProjectFinanceSettings{
		ProjectID:       f.project.ID,
		OrganizationID:  f.Org.ID,
		RequireCostCode: true,
		RequirePONumber: true,
	}))

	coded := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 100)
	require.NoError(t, f.DB.Model(coded).Update("cost_code_id", cc.ID).Error)

	complete := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 100)
	require.NoError(t, f.DB.Model(complete).Updates(map[string]interface{}{
		"cost_code_id": cc.ID,
		"po_reference": "4500-1",
	}).Error)

	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 100)

	items, err := f.mgr.NeedsAttention(ctx, f.identity(t, f.finance))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, coded.ID, items[0].Request.ID)
	assert.Equal(t, []string{"PO #"}, items[0].Missing)

	_, err = f.mgr.NeedsAttention(ctx, f.identity(t, f.User))
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	worker := testutil.CreateTestUser(t, f.DB, f.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, f.DB, worker, f.project, rbac.ProjectRoleFieldWorker)

	own := testutil.CreateTestRequest(t, f.DB, f.project, worker, models.RequestStatusPending, 50)
	theirs := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 75)

	workerID := f.identity(t, worker)

	_, err := f.mgr.Get(ctx, workerID, own.ID)
	assert.NoError(t, err)
	_, err = f.mgr.Get(ctx, workerID, theirs.ID)
	assert.True(t, apperr.Is(err, apperr.Forbidden))

	list, err := f.mgr.List(ctx, workerID, requests.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, own.ID, list[0].ID)

	all, err := f.mgr.List(ctx, f.identity(t, f.approver), requests.Filter{ProjectID: &f.project.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	other := uuid.New()
	none, err := f.mgr.List(ctx, f.identity(t, f.approver), requests.Filter{ProjectID: &other})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestPendingQueue(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)

	older := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 10)
	newer := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 20)
	urgent := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 30)
	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 40)

	base := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.DB.Model(older).Update("created_at", base).Error)
	require.NoError(t, f.DB.Model(newer).Update("created_at", base.Add(10*time.Minute)).Error)
	require.NoError(t, f.DB.Model(urgent).Updates(map[string]interface{}{
		"created_at": base.Add(-10 * time.Minute),
		"urgency":    models.UrgencyUrgent,
	}).Error)

	queue, err := f.mgr.PendingQueue(ctx, f.identity(t, f.approver))
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, urgent.ID, queue[0].ID)
	assert.Equal(t, newer.ID, queue[1].ID)
	assert.Equal(t, older.ID, queue[2].ID)

	_, err = f.mgr.PendingQueue(ctx, f.identity(t, f.requester))
	assert.True(t, apperr.Is(err, apperr.Forbidden))
}

func TestVendorPOCount(t *testing.T) {
	f := newFixture(t)
	ctx := testutil.TestContext(t)
	id := f.identity(t, f.requester)

	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPending, 10)
	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusPurchased, 10)
	testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusRejected, 10)
	old := testutil.CreateTestRequest(t, f.DB, f.project, f.requester, models.RequestStatusApproved, 10)
	require.NoError(t, f.DB.Model(old).Update("created_at", time.Now().UTC().AddDate(0, 0, -45)).Error)

	n, err := f.mgr.VendorPOCount(ctx, id, "home depot", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = f.mgr.VendorPOCount(ctx, id, " ", time.Now().UTC())
	assert.True(t, apperr.Is(err, apperr.Validation))
}

func TestTransition_PublishFailureIsNotReturned(t *testing.T) {
	ts := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := requests.NewManager(ts.Store, failingPublisher{}, logger)

	project := testutil.CreateTestProject(t, ts.DB, ts.Org.ID, 1000)
	approver := testutil.CreateTestUser(t, ts.DB, ts.Org, rbac.OrgRoleMember)
	testutil.BindProjectRole(t, ts.DB, approver, project, rbac.ProjectRoleManager)
	pending := testutil.CreateTestRequest(t, ts.DB, project, approver, models.RequestStatusPending, 10)

	id, err := access.NewResolver(ts.Store).Resolve(testutil.TestContext(t), approver.ID)
	require.NoError(t, err)

	_, err = mgr.Approve(testutil.TestContext(t), id, pending.ID, nil)
	assert.NoError(t, err)
}
