// Package requests runs the purchase request state machine:
//
//	draft -> pending -> approved -> purchased
//	            \-> rejected
//
// Rejected and purchased are terminal. Every transition is a single guarded
// store update paired with its audit entry, followed by an event once the
// change has committed.
package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/budget"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/google/uuid"
)

// RequirementsSource supplies the financial fields a project demands of its
// approved requests.
type RequirementsSource interface {
	GetFinanceSettings(ctx context.Context, orgID, projectID uuid.UUID) (models.ProjectFinanceSettings, error)
}

type Manager struct {
	store        *store.Store
	requirements RequirementsSource
	publisher    events.Publisher
	logger       *slog.Logger
	now          func() time.Time
}

func NewManager(st *store.Store, publisher events.Publisher, logger *slog.Logger) *Manager {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Manager{
		store:        st,
		requirements: st,
		publisher:    publisher,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithRequirements replaces the source of finance requirements.
func (m *Manager) WithRequirements(src RequirementsSource) *Manager {
	m.requirements = src
	return m
}

type LineItemInput struct {
	Name              string  `json:"name"`
	Quantity          float64 `json:"quantity"`
	Unit              string  `json:"unit"`
	EstimatedUnitCost float64 `json:"estimated_unit_cost"`
}

// CreateInput describes a new request. Submit sends it for approval in the
// same call.
type CreateInput struct {
	ProjectID       uuid.UUID
	Vendor          string
	VendorID        *uuid.UUID
	Category        models.RequestCategory
	CostCodeID      *uuid.UUID
	LineItems       []LineItemInput
	Urgency         models.Urgency
	NeedBy          models.NeedBy
	DeliveryMethod  models.DeliveryMethod
	DeliveryAddress string
	Notes           string
	Attachments     []string
	Submit          bool
}

// ApproveResult carries the approved request and the budget impact computed
// from the project state just before approval.
type ApproveResult struct {
	Request *models.PurchaseRequest `json:"request"`
	Impact  budget.Impact           `json:"impact"`
}

type PurchaseInput struct {
	FinalTotal float64
	ReceiptRef string
	Notes      string
}

// CodingInput holds the financial coding fields. Nil fields are left as they are.
type CodingInput struct {
	CostCodeID      *uuid.UUID
	VendorID        *uuid.UUID
	POReference     *string
	AccountingNotes *string
}

// Create stores a new draft on behalf of actor, allocating the next PO number
// of the organization.
func (m *Manager) Create(ctx context.Context, actor *access.Identity, in CreateInput) (*models.PurchaseRequest, error) {
	if err := access.Require(actor, rbac.ProposalCreate, access.Scope(in.ProjectID)); err != nil {
		return nil, err
	}
	items, err := validateCreate(&in)
	if err != nil {
		return nil, err
	}

	if _, err := m.store.GetProject(ctx, actor.OrganizationID, in.ProjectID); err != nil {
		return nil, err
	}
	if err := m.checkReferences(ctx, actor.OrganizationID, in.CostCodeID, in.VendorID); err != nil {
		return nil, err
	}

	req := &models.PurchaseRequest{
		OrganizationID:  actor.OrganizationID,
		ProjectID:       in.ProjectID,
		RequesterID:     actor.UserID,
		Vendor:          strings.TrimSpace(in.Vendor),
		VendorID:        in.VendorID,
		Category:        in.Category,
		CostCodeID:      in.CostCodeID,
		LineItems:       items,
		EstimatedTotal:  models.SumLineItems(items),
		Urgency:         in.Urgency,
		NeedBy:          in.NeedBy,
		DeliveryMethod:  in.DeliveryMethod,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Notes:           strings.TrimSpace(in.Notes),
		Attachments:     models.StringList(in.Attachments),
		Status:          models.RequestStatusDraft,
	}

	err = m.store.Tx(ctx, func(tx *store.Store) error {
		po, err := tx.NextPONumber(ctx, actor.OrganizationID)
		if err != nil {
			return err
		}
		req.PONumber = po
		if err := tx.CreateRequest(ctx, req); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, &models.AuditEntry{
			OrganizationID: req.OrganizationID,
			TargetType:     models.AuditTargetRequest,
			TargetID:       req.ID,
			Action:         models.AuditCreated,
			ActorID:        actor.UserID,
			Details:        fmt.Sprintf("%s created for %s", req.PONumber, req.Vendor),
		})
	})
	if err != nil {
		return nil, err
	}

	m.logger.Info("purchase request created",
		"org_id", req.OrganizationID,
		"request_id", req.ID,
		"po_number", req.PONumber,
		"estimated_total", req.EstimatedTotal,
	)

	if in.Submit {
		return m.Submit(ctx, actor, req.ID)
	}
	return req, nil
}

// Submit sends a draft for approval. Only the requester may submit, and the
// estimated total is recomputed from the line items and frozen.
func (m *Manager) Submit(ctx context.Context, actor *access.Identity, id uuid.UUID) (*models.PurchaseRequest, error) {
	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, rbac.ProposalCreate, access.Scope(req.ProjectID)); err != nil {
		return nil, err
	}
	if req.RequesterID != actor.UserID {
		return nil, apperr.New(apperr.Forbidden, "only the requester can submit a request")
	}
	if len(req.LineItems) == 0 {
		return nil, apperr.New(apperr.Validation, "a request needs at least one line item")
	}

	now := m.now()
	total := models.SumLineItems(req.LineItems)
	err = m.transition(ctx, actor, req, models.RequestStatusDraft, models.RequestStatusPending,
		map[string]interface{}{
			"estimated_total": total,
			"submitted_at":    now,
		},
		models.AuditSubmitted,
		fmt.Sprintf("%s submitted for %s – %s", req.PONumber, req.Vendor, formatMoney(total)),
	)
	if err != nil {
		return nil, err
	}

	req.EstimatedTotal = total
	req.SubmittedAt = &now
	return req, nil
}

// Approve moves a pending request to approved. costCodeOverride, when set,
// corrects the request's cost code in the same update.
func (m *Manager) Approve(ctx context.Context, actor *access.Identity, id uuid.UUID, costCodeOverride *uuid.UUID) (*ApproveResult, error) {
	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, rbac.ProposalApprove, access.Scope(req.ProjectID)); err != nil {
		return nil, err
	}
	if err := expectStatus(req, models.RequestStatusPending); err != nil {
		return nil, err
	}
	if err := m.checkReferences(ctx, actor.OrganizationID, costCodeOverride, nil); err != nil {
		return nil, err
	}

	project, err := m.store.GetProject(ctx, actor.OrganizationID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	projectReqs, err := m.store.ProjectRequests(ctx, actor.OrganizationID, req.ProjectID)
	if err != nil {
		return nil, err
	}
	impact := budget.NewSnapshot(project, projectReqs).Impact(req.EstimatedTotal)

	now := m.now()
	updates := map[string]interface{}{
		"approved_at": now,
		"approved_by": actor.UserID,
	}
	if costCodeOverride != nil {
		updates["cost_code_id"] = *costCodeOverride
	}

	err = m.transition(ctx, actor, req, models.RequestStatusPending, models.RequestStatusApproved,
		updates,
		models.AuditApproved,
		fmt.Sprintf("%s approved – %s", req.PONumber, formatMoney(req.EstimatedTotal)),
	)
	if err != nil {
		return nil, err
	}

	if impact.OverBudget {
		m.logger.Warn("approved request exceeds project budget",
			"org_id", req.OrganizationID,
			"project_id", req.ProjectID,
			"request_id", req.ID,
			"after_pct", impact.AfterPct,
		)
	}

	req.ApprovedAt = &now
	req.ApprovedBy = &actor.UserID
	if costCodeOverride != nil {
		req.CostCodeID = costCodeOverride
	}
	return &ApproveResult{Request: req, Impact: impact}, nil
}

// Reject moves a pending request to rejected. A blank reason fails before
// anything else is checked.
func (m *Manager) Reject(ctx context.Context, actor *access.Identity, id uuid.UUID, reason string) (*models.PurchaseRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.New(apperr.Validation, "a rejection reason is required")
	}

	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, rbac.ProposalApprove, access.Scope(req.ProjectID)); err != nil {
		return nil, err
	}
	if err := expectStatus(req, models.RequestStatusPending); err != nil {
		return nil, err
	}

	now := m.now()
	err = m.transition(ctx, actor, req, models.RequestStatusPending, models.RequestStatusRejected,
		map[string]interface{}{
			"rejected_at":      now,
			"rejected_by":      actor.UserID,
			"rejection_reason": reason,
		},
		models.AuditRejected,
		"Rejected: "+reason,
	)
	if err != nil {
		return nil, err
	}

	req.RejectedAt = &now
	req.RejectedBy = &actor.UserID
	req.RejectionReason = reason
	return req, nil
}

// MarkPurchased records the purchase of an approved request. The estimate is
// kept; the final total is stored beside it.
func (m *Manager) MarkPurchased(ctx context.Context, actor *access.Identity, id uuid.UUID, in PurchaseInput) (*models.PurchaseRequest, error) {
	if !models.ValidAmount(in.FinalTotal) {
		return nil, apperr.New(apperr.Validation, "final total must be a non-negative amount")
	}

	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, rbac.ProposalFinalize, access.Scope(req.ProjectID)); err != nil {
		return nil, err
	}
	if err := expectStatus(req, models.RequestStatusApproved); err != nil {
		return nil, err
	}

	now := m.now()
	final := models.RoundCents(in.FinalTotal)
	ref := strings.TrimSpace(in.ReceiptRef)
	note := strings.TrimSpace(in.Notes)

	var receipts models.StringList
	var notes string
	err = m.transitionFrom(ctx, actor, req, models.RequestStatusApproved, models.RequestStatusPurchased,
		func(current *models.PurchaseRequest) map[string]interface{} {
			receipts, notes = current.ReceiptAttachments, current.AccountingNotes
			updates := map[string]interface{}{
				"final_total":  final,
				"purchased_at": now,
				"purchased_by": actor.UserID,
			}
			if ref != "" {
				receipts = append(append(models.StringList{}, receipts...), ref)
				updates["receipt_attachments"] = receipts
			}
			if note != "" {
				notes = appendNote(notes, note)
				updates["accounting_notes"] = notes
			}
			return updates
		},
		models.AuditPurchased,
		"Marked purchased – "+formatMoney(final),
	)
	if err != nil {
		return nil, err
	}

	req.FinalTotal = &final
	req.PurchasedAt = &now
	req.PurchasedBy = &actor.UserID
	req.ReceiptAttachments = receipts
	req.AccountingNotes = notes
	return req, nil
}

// codingStatuses are the states whose coding may still be corrected.
var codingStatuses = []models.RequestStatus{
	models.RequestStatusPending,
	models.RequestStatusApproved,
	models.RequestStatusPurchased,
}

// UpdateCoding corrects the financial coding of a request without changing
// its status.
func (m *Manager) UpdateCoding(ctx context.Context, actor *access.Identity, id uuid.UUID, in CodingInput) (*models.PurchaseRequest, error) {
	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := access.Require(actor, rbac.FinanceEditProposalCoding, access.Scope(req.ProjectID)); err != nil {
		return nil, err
	}
	if !codingAllowed(req.Status) {
		return nil, apperr.Newf(apperr.InvalidTransition, "%s is %s, coding cannot change", req.PONumber, req.Status)
	}
	if err := m.checkReferences(ctx, actor.OrganizationID, in.CostCodeID, in.VendorID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	var changed []string
	if in.CostCodeID != nil {
		updates["cost_code_id"] = *in.CostCodeID
		changed = append(changed, "cost code")
	}
	if in.VendorID != nil {
		updates["vendor_id"] = *in.VendorID
		changed = append(changed, "vendor")
	}
	if in.POReference != nil {
		updates["po_reference"] = strings.TrimSpace(*in.POReference)
		changed = append(changed, "PO reference")
	}
	if in.AccountingNotes != nil {
		updates["accounting_notes"] = strings.TrimSpace(*in.AccountingNotes)
		changed = append(changed, "accounting notes")
	}
	if len(updates) == 0 {
		return nil, apperr.New(apperr.Validation, "no coding fields given")
	}

	audit := &models.AuditEntry{
		OrganizationID: req.OrganizationID,
		TargetType:     models.AuditTargetRequest,
		TargetID:       req.ID,
		Action:         models.AuditUpdated,
		ActorID:        actor.UserID,
		Details:        fmt.Sprintf("%s coding updated: %s", req.PONumber, strings.Join(changed, ", ")),
	}
	err = m.store.UpdateRequest(ctx, req.OrganizationID, req.ID, codingStatuses, updates, audit)
	if errors.Is(err, store.ErrNotApplied) {
		return nil, m.staleError(ctx, req, "")
	}
	if err != nil {
		return nil, err
	}

	return m.store.GetRequest(ctx, req.OrganizationID, req.ID)
}

// transition applies from -> to as one guarded update with its audit entry,
// then publishes the change.
func (m *Manager) transition(
	ctx context.Context,
	actor *access.Identity,
	req *models.PurchaseRequest,
	from, to models.RequestStatus,
	updates map[string]interface{},
	action, details string,
) error {
	audit := transitionAudit(actor, req, action, details)
	err := m.store.TransitionRequest(ctx, req.OrganizationID, req.ID, from, to, updates, audit)
	return m.settle(ctx, actor, req, from, to, err)
}

// transitionFrom is transition with updates computed from the row as locked
// inside the store transaction.
func (m *Manager) transitionFrom(
	ctx context.Context,
	actor *access.Identity,
	req *models.PurchaseRequest,
	from, to models.RequestStatus,
	build func(current *models.PurchaseRequest) map[string]interface{},
	action, details string,
) error {
	audit := transitionAudit(actor, req, action, details)
	err := m.store.TransitionRequestFrom(ctx, req.OrganizationID, req.ID, from, to, build, audit)
	return m.settle(ctx, actor, req, from, to, err)
}

func transitionAudit(actor *access.Identity, req *models.PurchaseRequest, action, details string) *models.AuditEntry {
	return &models.AuditEntry{
		OrganizationID: req.OrganizationID,
		TargetType:     models.AuditTargetRequest,
		TargetID:       req.ID,
		Action:         action,
		ActorID:        actor.UserID,
		Details:        details,
	}
}

// settle records the outcome of a guarded transition and publishes it when
// it applied.
func (m *Manager) settle(ctx context.Context, actor *access.Identity, req *models.PurchaseRequest, from, to models.RequestStatus, err error) error {
	if errors.Is(err, store.ErrNotApplied) {
		metrics.RecordTransition(string(to), "conflict")
		return m.staleError(ctx, req, from)
	}
	if err != nil {
		metrics.RecordTransition(string(to), "error")
		return err
	}
	metrics.RecordTransition(string(to), "ok")

	m.logger.Info("purchase request transitioned",
		"org_id", req.OrganizationID,
		"request_id", req.ID,
		"po_number", req.PONumber,
		"from", from,
		"to", to,
		"actor_id", actor.UserID,
	)

	req.Status = to
	events.Emit(ctx, m.publisher, m.logger, events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: req.OrganizationID,
		TargetID:       req.ID,
		ActorID:        actor.UserID,
		From:           string(from),
		To:             string(to),
		Reference:      req.PONumber,
	})
	return nil
}

// staleError re-reads a request whose guarded update matched nothing and
// explains why. An empty expected status means the coding guard failed.
func (m *Manager) staleError(ctx context.Context, req *models.PurchaseRequest, expected models.RequestStatus) error {
	current, err := m.store.GetRequest(ctx, req.OrganizationID, req.ID)
	if err != nil {
		return err
	}
	if expected == "" {
		return apperr.Newf(apperr.InvalidTransition, "%s is %s, coding cannot change", current.PONumber, current.Status)
	}
	return apperr.Newf(apperr.InvalidTransition, "%s is %s, expected %s", current.PONumber, current.Status, expected)
}

// load reads a request inside actor's organization.
func (m *Manager) load(ctx context.Context, actor *access.Identity, id uuid.UUID) (*models.PurchaseRequest, error) {
	if !actor.Active() {
		if actor != nil && actor.Disabled {
			return nil, apperr.New(apperr.Forbidden, "account is disabled")
		}
		return nil, apperr.New(apperr.Forbidden, "not an active organization member")
	}
	return m.store.GetRequest(ctx, actor.OrganizationID, id)
}

// checkReferences makes sure a cost code and vendor belong to orgID.
func (m *Manager) checkReferences(ctx context.Context, orgID uuid.UUID, costCodeID, vendorID *uuid.UUID) error {
	if costCodeID != nil {
		if _, err := m.store.GetCostCode(ctx, orgID, *costCodeID); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.New(apperr.Validation, "cost code does not belong to this organization")
			}
			return err
		}
	}
	if vendorID != nil {
		if _, err := m.store.GetVendor(ctx, orgID, *vendorID); err != nil {
			if apperr.Is(err, apperr.NotFound) {
				return apperr.New(apperr.Validation, "vendor does not belong to this organization")
			}
			return err
		}
	}
	return nil
}

func expectStatus(req *models.PurchaseRequest, want models.RequestStatus) error {
	if req.Status == want {
		return nil
	}
	return apperr.Newf(apperr.InvalidTransition, "%s is %s, expected %s", req.PONumber, req.Status, want)
}

func codingAllowed(s models.RequestStatus) bool {
	for _, allowed := range codingStatuses {
		if s == allowed {
			return true
		}
	}
	return false
}

func appendNote(existing, note string) string {
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
