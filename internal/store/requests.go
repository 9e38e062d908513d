package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows ListRequests. Zero fields do not filter.
type RequestFilter struct {
	ProjectID   *uuid.UUID
	ProjectIDs  []uuid.UUID
	RequesterID *uuid.UUID
	Statuses    []models.RequestStatus
	Vendor      string
	Since       time.Time
}

// CreateRequest inserts req with its line items.
func (s *Store) CreateRequest(ctx context.Context, req *models.PurchaseRequest) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(req).Error, "purchase request")
}

func (s *Store) GetRequest(ctx context.Context, orgID, id uuid.UUID) (*models.PurchaseRequest, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var req models.PurchaseRequest
	err := db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Where("id = ? AND organization_id = ?", id, orgID).First(&req).Error
	if err != nil {
		return nil, classify(err, "purchase request")
	}
	return &req, nil
}

func (s *Store) ListRequests(ctx context.Context, orgID uuid.UUID, f RequestFilter) ([]models.PurchaseRequest, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	q := db.Preload("LineItems", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC")
	}).Where("organization_id = ?", orgID)

	if f.ProjectID != nil {
		q = q.Where("project_id = ?", *f.ProjectID)
	}
	if f.ProjectIDs != nil {
		if len(f.ProjectIDs) == 0 {
			return nil, nil
		}
		q = q.Where("project_id IN ?", f.ProjectIDs)
	}
	if f.RequesterID != nil {
		q = q.Where("requester_id = ?", *f.RequesterID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}
	if f.Vendor != "" {
		q = q.Where("LOWER(vendor) = ?", strings.ToLower(f.Vendor))
	}
	if !f.Since.IsZero() {
		q = q.Where("created_at >= ?", f.Since.UTC())
	}

	var reqs []models.PurchaseRequest
	if err := q.Order("created_at DESC").Find(&reqs).Error; err != nil {
		return nil, classify(err, "purchase requests")
	}
	return reqs, nil
}

// ProjectRequests returns every request on a project, for budget folds.
func (s *Store) ProjectRequests(ctx context.Context, orgID, projectID uuid.UUID) ([]models.PurchaseRequest, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var reqs []models.PurchaseRequest
	err := db.Where("organization_id = ? AND project_id = ?", orgID, projectID).Find(&reqs).Error
	if err != nil {
		return nil, classify(err, "purchase requests")
	}
	return reqs, nil
}

// CountVendorRequests counts non-rejected requests for vendor created at or
// after since. Vendor names match case-insensitively.
func (s *Store) CountVendorRequests(ctx context.Context, orgID uuid.UUID, vendor string, since time.Time) (int64, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var n int64
	err := db.Model(&models.PurchaseRequest{}).
		Where("organization_id = ? AND LOWER(vendor) = ? AND status <> ? AND created_at >= ?",
			orgID, strings.ToLower(strings.TrimSpace(vendor)), models.RequestStatusRejected, since.UTC()).
		Count(&n).Error
	return n, classify(err, "purchase requests")
}

// TransitionRequest moves a request from one status to another and appends
// audit in the same transaction. The status guard is part of the UPDATE, so
// of two racing transitions out of the same state exactly one applies; the
// other gets ErrNotApplied and nothing is written.
func (s *Store) TransitionRequest(
	ctx context.Context,
	orgID, id uuid.UUID,
	from, to models.RequestStatus,
	updates map[string]interface{},
	audit *models.AuditEntry,
) error {
	defer metrics.TrackStoreOperation("transition_request")(time.Now())

	set := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		set[k] = v
	}
	set["status"] = to

	return s.guardedRequestUpdate(ctx, orgID, id, []models.RequestStatus{from}, set, audit)
}

// TransitionRequestFrom is TransitionRequest for updates that depend on the
// row's current contents. The row is read under lock inside the transaction
// and handed to build, so concurrent edits to the same columns are not lost.
func (s *Store) TransitionRequestFrom(
	ctx context.Context,
	orgID, id uuid.UUID,
	from, to models.RequestStatus,
	build func(current *models.PurchaseRequest) map[string]interface{},
	audit *models.AuditEntry,
) error {
	defer metrics.TrackStoreOperation("transition_request")(time.Now())

	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		var current models.PurchaseRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND organization_id = ? AND status = ?", id, orgID, from).
			First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotApplied
		}
		if err != nil {
			return err
		}

		set := build(&current)
		set["status"] = to
		res := tx.Model(&models.PurchaseRequest{}).
			Where("id = ? AND organization_id = ? AND status = ?", id, orgID, from).
			Updates(set)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotApplied
		}
		if audit == nil {
			return nil
		}
		return tx.Create(audit).Error
	})
	return classify(err, "purchase request")
}

// UpdateRequest applies updates without changing status, provided the request
// is currently in one of statuses, and appends audit in the same transaction.
func (s *Store) UpdateRequest(
	ctx context.Context,
	orgID, id uuid.UUID,
	statuses []models.RequestStatus,
	updates map[string]interface{},
	audit *models.AuditEntry,
) error {
	return s.guardedRequestUpdate(ctx, orgID, id, statuses, updates, audit)
}

func (s *Store) guardedRequestUpdate(
	ctx context.Context,
	orgID, id uuid.UUID,
	statuses []models.RequestStatus,
	updates map[string]interface{},
	audit *models.AuditEntry,
) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.PurchaseRequest{}).
			Where("id = ? AND organization_id = ? AND status IN ?", id, orgID, statuses).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotApplied
		}
		if audit == nil {
			return nil
		}
		return tx.Create(audit).Error
	})
	return classify(err, "purchase request")
}
