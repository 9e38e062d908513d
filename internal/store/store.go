// Package store is the persistence boundary. Every query is partitioned by
// organization, conditional writes report ErrNotApplied when their guard no
// longer holds, and failures leave here already classified as apperr kinds.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/cmclain4200/approcure/internal/apperr"
	"gorm.io/gorm"
)

var (
	// ErrNotApplied is returned when a compare-and-set matched no rows.
	ErrNotApplied = errors.New("conditional update matched no rows")
	// ErrDuplicate is returned when an insert collides with a unique index.
	ErrDuplicate = errors.New("duplicate key")
)

type Store struct {
	db      *gorm.DB
	timeout time.Duration
}

// New wraps db. A positive timeout bounds every call whose context carries no
// earlier deadline.
func New(db *gorm.DB, timeout time.Duration) *Store {
	return &Store{db: db, timeout: timeout}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= s.timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := s.withTimeout(ctx)
	return s.db.WithContext(ctx), cancel
}

// Tx runs fn in a single transaction. The Store handed to fn is bound to the
// transaction; fn must not use the outer Store.
func (s *Store) Tx(ctx context.Context, fn func(tx *Store) error) error {
	db, cancel := s.conn(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
	return classify(err, "transaction")
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

// classify passes store sentinels through untouched and maps everything else
// onto an apperr kind.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotApplied), errors.Is(err, ErrDuplicate):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return apperr.FromStore(err, what)
	}
}
