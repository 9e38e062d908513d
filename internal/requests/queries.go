package requests

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/access"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/google/uuid"
)

// Missing-field labels, in the order they are reported.
const (
	MissingCostCode    = "Cost Code"
	MissingVendor      = "Vendor"
	MissingPONumber    = "PO #"
	MissingReceipt     = "Receipt"
	MissingDescription = "Description"
)

const vendorWindow = 30 * 24 * time.Hour

// Filter narrows List. Zero fields do not filter.
type Filter struct {
	ProjectID *uuid.UUID
	Statuses  []models.RequestStatus
}

// Attention is an approved request still missing required financial fields.
type Attention struct {
	Request *models.PurchaseRequest `json:"request"`
	Missing []string                `json:"missing"`
}

// MissingFields lists the fields settings require that req lacks.
func MissingFields(req *models.PurchaseRequest, settings models.ProjectFinanceSettings) []string {
	missing := []string{}
	if settings.RequireCostCode && req.CostCodeID == nil {
		missing = append(missing, MissingCostCode)
	}
	if settings.RequireVendor && req.VendorID == nil {
		missing = append(missing, MissingVendor)
	}
	if settings.RequirePONumber && strings.TrimSpace(req.POReference) == "" {
		missing = append(missing, MissingPONumber)
	}
	if settings.RequireReceiptAttachment && len(req.ReceiptAttachments) == 0 {
		missing = append(missing, MissingReceipt)
	}
	if settings.RequireDescription && strings.TrimSpace(req.Notes) == "" {
		missing = append(missing, MissingDescription)
	}
	return missing
}

// NeedsAttention returns the approved requests, on projects whose proposals
// actor may see, that lack a field their project requires.
func (m *Manager) NeedsAttention(ctx context.Context, actor *access.Identity) ([]Attention, error) {
	projects := access.ProjectsWith(actor, rbac.ProposalViewAll)
	if err := m.requireAny(actor, projects, rbac.ProposalViewAll); err != nil {
		return nil, err
	}

	reqs, err := m.store.ListRequests(ctx, actor.OrganizationID, store.RequestFilter{
		ProjectIDs: projects,
		Statuses:   []models.RequestStatus{models.RequestStatusApproved},
	})
	if err != nil {
		return nil, err
	}

	settings := map[uuid.UUID]models.ProjectFinanceSettings{}
	out := []Attention{}
	for i := range reqs {
		req := &reqs[i]
		s, ok := settings[req.ProjectID]
		if !ok {
			s, err = m.requirements.GetFinanceSettings(ctx, actor.OrganizationID, req.ProjectID)
			if err != nil {
				return nil, err
			}
			settings[req.ProjectID] = s
		}
		if missing := MissingFields(req, s); len(missing) > 0 {
			out = append(out, Attention{Request: req, Missing: missing})
		}
	}
	return out, nil
}

// Get returns a request actor may see: any request on a project where they
// hold proposal.view_all, or their own where they hold proposal.view_own_only.
func (m *Manager) Get(ctx context.Context, actor *access.Identity, id uuid.UUID) (*models.PurchaseRequest, error) {
	req, err := m.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, req) {
		return nil, access.Require(actor, rbac.ProposalViewAll, access.Scope(req.ProjectID))
	}
	return req, nil
}

// List returns the requests actor may see, newest first.
func (m *Manager) List(ctx context.Context, actor *access.Identity, f Filter) ([]models.PurchaseRequest, error) {
	if !actor.Active() {
		return nil, access.Require(actor, rbac.ProposalViewAll, nil)
	}

	all := access.ProjectsWith(actor, rbac.ProposalViewAll)
	own := access.ProjectsWith(actor, rbac.ProposalViewOwnOnly)
	projects := append(append([]uuid.UUID{}, all...), own...)
	if f.ProjectID != nil {
		projects = intersect(projects, *f.ProjectID)
	}

	reqs, err := m.store.ListRequests(ctx, actor.OrganizationID, store.RequestFilter{
		ProjectIDs: projects,
		Statuses:   f.Statuses,
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.PurchaseRequest, 0, len(reqs))
	for i := range reqs {
		if canView(actor, &reqs[i]) {
			out = append(out, reqs[i])
		}
	}
	return out, nil
}

// PendingQueue returns the pending requests actor may decide on, urgent
// first, then newest first.
func (m *Manager) PendingQueue(ctx context.Context, actor *access.Identity) ([]models.PurchaseRequest, error) {
	projects := access.ProjectsWith(actor, rbac.ProposalApprove)
	if err := m.requireAny(actor, projects, rbac.ProposalApprove); err != nil {
		return nil, err
	}

	reqs, err := m.store.ListRequests(ctx, actor.OrganizationID, store.RequestFilter{
		ProjectIDs: projects,
		Statuses:   []models.RequestStatus{models.RequestStatusPending},
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		ui := reqs[i].Urgency == models.UrgencyUrgent
		uj := reqs[j].Urgency == models.UrgencyUrgent
		if ui != uj {
			return ui
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

// VendorPOCount counts the organization's non-rejected requests for vendor
// created in the thirty days before now.
func (m *Manager) VendorPOCount(ctx context.Context, actor *access.Identity, vendor string, now time.Time) (int64, error) {
	if !actor.Active() {
		return 0, access.Require(actor, rbac.ProposalCreate, nil)
	}
	if strings.TrimSpace(vendor) == "" {
		return 0, apperr.New(apperr.Validation, "vendor is required")
	}
	return m.store.CountVendorRequests(ctx, actor.OrganizationID, vendor, now.Add(-vendorWindow))
}

// History returns the audit trail of a request, oldest first.
func (m *Manager) History(ctx context.Context, actor *access.Identity, id uuid.UUID) ([]models.AuditEntry, error) {
	req, err := m.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return m.store.ListAudit(ctx, req.OrganizationID, models.AuditTargetRequest, req.ID)
}

// requireAny fails with Forbidden when actor holds p on no project.
func (m *Manager) requireAny(actor *access.Identity, projects []uuid.UUID, p rbac.Permission) error {
	if actor.Active() && len(projects) > 0 {
		return nil
	}
	return access.Require(actor, p, access.Scope(uuid.Nil))
}

func canView(actor *access.Identity, req *models.PurchaseRequest) bool {
	scope := access.Scope(req.ProjectID)
	if access.Has(actor, rbac.ProposalViewAll, scope) {
		return true
	}
	return req.RequesterID == actor.UserID && access.Has(actor, rbac.ProposalViewOwnOnly, scope)
}

func intersect(projects []uuid.UUID, want uuid.UUID) []uuid.UUID {
	for _, p := range projects {
		if p == want {
			return []uuid.UUID{want}
		}
	}
	return []uuid.UUID{}
}
