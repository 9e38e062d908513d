package store

import (
	"context"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/google/uuid"
)

// AppendAudit inserts entry. There is no update or delete counterpart.
func (s *Store) AppendAudit(ctx context.Context, entry *models.AuditEntry) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(entry).Error, "audit entry")
}

// ListAudit returns the trail of one target in insertion order.
func (s *Store) ListAudit(ctx context.Context, orgID uuid.UUID, targetType string, targetID uuid.UUID) ([]models.AuditEntry, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var entries []models.AuditEntry
	err := db.Where("organization_id = ? AND target_type = ? AND target_id = ?", orgID, targetType, targetID).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, classify(err, "audit trail")
	}
	return entries, nil
}

// ListOrgAudit returns the newest entries of the organization first.
func (s *Store) ListOrgAudit(ctx context.Context, orgID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.AuditEntry
	err := db.Where("organization_id = ?", orgID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, classify(err, "audit log")
	}
	return entries, nil
}
