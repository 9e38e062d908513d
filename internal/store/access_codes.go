package store

import (
	"context"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/pkg/metrics"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CreateAccessCode inserts code. A collision on the code string returns
// ErrDuplicate so the caller can draw a new one.
func (s *Store) CreateAccessCode(ctx context.Context, code *models.AccessCode) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(code).Error, "access code")
}

// GetAccessCodeByCode looks a code up by its string. Codes are globally
// unique, so the lookup needs no organization.
func (s *Store) GetAccessCodeByCode(ctx context.Context, code string) (*models.AccessCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var ac models.AccessCode
	if err := db.Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&ac).Error; err != nil {
		return nil, classify(err, "access code")
	}
	return &ac, nil
}

func (s *Store) GetAccessCode(ctx context.Context, orgID, id uuid.UUID) (*models.AccessCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var ac models.AccessCode
	if err := db.Where("id = ? AND organization_id = ?", id, orgID).First(&ac).Error; err != nil {
		return nil, classify(err, "access code")
	}
	return &ac, nil
}

func (s *Store) ListAccessCodes(ctx context.Context, orgID uuid.UUID) ([]models.AccessCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var codes []models.AccessCode
	if err := db.Where("organization_id = ?", orgID).Order("created_at DESC").Find(&codes).Error; err != nil {
		return nil, classify(err, "access codes")
	}
	return codes, nil
}

// IncrementCodeUse consumes one use of a redeemable code. The guard and the
// increment are one statement: it returns ErrNotApplied once the code is
// disabled, expired at now or out of uses, and never pushes uses_count past
// max_uses.
func (s *Store) IncrementCodeUse(ctx context.Context, codeID uuid.UUID, now time.Time) error {
	defer metrics.TrackStoreOperation("increment_code_use")(time.Now())

	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.AccessCode{}).
		Where("id = ? AND status = ? AND uses_count < max_uses", codeID, models.AccessCodeActive).
		Where("(expires_at IS NULL OR expires_at > ?)", now.UTC()).
		UpdateColumn("uses_count", gorm.Expr("uses_count + 1"))
	if res.Error != nil {
		return classify(res.Error, "access code")
	}
	if res.RowsAffected == 0 {
		return ErrNotApplied
	}
	return nil
}

func (s *Store) DisableAccessCode(ctx context.Context, orgID, id uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.AccessCode{}).
		Where("id = ? AND organization_id = ?", id, orgID).
		Update("status", models.AccessCodeDisabled)
	if res.Error != nil {
		return classify(res.Error, "access code")
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound, "access code")
	}
	return nil
}

// ListExpiredCodes returns active codes whose expiry is at or before now,
// across all organizations.
func (s *Store) ListExpiredCodes(ctx context.Context, now time.Time) ([]models.AccessCode, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var codes []models.AccessCode
	err := db.Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", models.AccessCodeActive, now.UTC()).
		Find(&codes).Error
	if err != nil {
		return nil, classify(err, "access codes")
	}
	return codes, nil
}
