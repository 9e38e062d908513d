// Package events carries state changes out of the core. Publishing happens
// after the store transaction commits; a failed publish is logged by the
// caller and never undoes the change.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	TypeRequestStatusChanged = "request.status_changed"
	TypeAccessCodeClaimed    = "access_code.claimed"
)

type Event struct {
	Type           string    `json:"type"`
	OrganizationID uuid.UUID `json:"organization_id"`
	TargetID       uuid.UUID `json:"target_id"`
	ActorID        uuid.UUID `json:"actor_id"`
	From           string    `json:"from,omitempty"`
	To             string    `json:"to,omitempty"`
	Reference      string    `json:"reference,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Emit publishes ev and logs a failure instead of returning it.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, ev Event) {
	if p == nil {
		return
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warn("failed to publish event",
			"type", ev.Type,
			"org_id", ev.OrganizationID,
			"target_id", ev.TargetID,
			"error", err,
		)
	}
}
