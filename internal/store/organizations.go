package store

import (
	"context"
	"fmt"

	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateOrganization(ctx context.Context, org *models.Organization) error {
	db, cancel := s.conn(ctx)
	defer cancel()
	return classify(db.Create(org).Error, "organization")
}

func (s *Store) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	var org models.Organization
	if err := db.First(&org, "id = ?", id).Error; err != nil {
		return nil, classify(err, "organization")
	}
	return &org, nil
}

// LockOrganization takes the organization's row lock for the rest of the
// transaction. Membership changes take it first so owner counts and role
// reads stay stable until commit.
func (s *Store) LockOrganization(ctx context.Context, orgID uuid.UUID) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	var org models.Organization
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&org, "id = ?", orgID).Error
	return classify(err, "organization")
}

// NextPONumber bumps the organization's PO sequence and returns the new
// number, e.g. "PO-1001". The update takes the row lock, so concurrent
// callers in separate transactions never see the same value.
func (s *Store) NextPONumber(ctx context.Context, orgID uuid.UUID) (string, error) {
	db, cancel := s.conn(ctx)
	defer cancel()

	res := db.Model(&models.Organization{}).
		Where("id = ?", orgID).
		UpdateColumn("po_sequence", gorm.Expr("po_sequence + 1"))
	if res.Error != nil {
		return "", classify(res.Error, "organization")
	}
	if res.RowsAffected == 0 {
		return "", classify(gorm.ErrRecordNotFound, "organization")
	}

	var org models.Organization
	if err := db.Select("po_sequence").First(&org, "id = ?", orgID).Error; err != nil {
		return "", classify(err, "organization")
	}
	return fmt.Sprintf("PO-%d", org.POSequence), nil
}
