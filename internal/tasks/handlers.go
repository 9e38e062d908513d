package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/apperr"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/requests"
	"github.com/cmclain4200/approcure/internal/store"
	"github.com/hibiken/asynq"
)

type Handler struct {
	store  *store.Store
	codes  *accesscode.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(st *store.Store, codes *accesscode.Service, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		codes:  codes,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeRequestStatusChanged, h.HandleRequestStatusChanged)
	mux.HandleFunc(TypeAccessCodeClaimed, h.HandleAccessCodeClaimed)
	mux.HandleFunc(TypeAccessCodeSweep, h.HandleAccessCodeSweep)
}

// HandleRequestStatusChanged records the transition and, for approvals,
// checks the request against its project's finance requirements.
func (h *Handler) HandleRequestStatusChanged(ctx context.Context, t *asynq.Task) error {
	ev, err := decodeEvent(t)
	if err != nil {
		return err
	}

	h.logger.Info("request status changed",
		"org_id", ev.OrganizationID,
		"request_id", ev.TargetID,
		"po_number", ev.Reference,
		"from", ev.From,
		"to", ev.To,
	)

	if models.RequestStatus(ev.To) != models.RequestStatusApproved {
		return nil
	}

	req, err := h.store.GetRequest(ctx, ev.OrganizationID, ev.TargetID)
	if apperr.Is(err, apperr.NotFound) {
		h.logger.Warn("request from event no longer exists", "request_id", ev.TargetID)
		return nil
	}
	if err != nil {
		return err
	}

	settings, err := h.store.GetFinanceSettings(ctx, req.OrganizationID, req.ProjectID)
	if err != nil {
		return err
	}
	if missing := requests.MissingFields(req, settings); len(missing) > 0 {
		h.logger.Warn("approved request needs attention",
			"org_id", req.OrganizationID,
			"request_id", req.ID,
			"po_number", req.PONumber,
			"missing", missing,
		)
	}
	return nil
}

func (h *Handler) HandleAccessCodeClaimed(ctx context.Context, t *asynq.Task) error {
	ev, err := decodeEvent(t)
	if err != nil {
		return err
	}

	h.logger.Info("member joined through access code",
		"org_id", ev.OrganizationID,
		"user_id", ev.TargetID,
		"org_role", ev.To,
		"code", ev.Reference,
	)
	return nil
}

// HandleAccessCodeSweep disables every access code past its expiry.
func (h *Handler) HandleAccessCodeSweep(ctx context.Context, t *asynq.Task) error {
	n, err := h.codes.DisableExpired(ctx, h.now())
	if err != nil {
		return fmt.Errorf("sweep expired access codes: %w", err)
	}
	h.logger.Debug("access code sweep finished", "disabled", n)
	return nil
}

func decodeEvent(t *asynq.Task) (events.Event, error) {
	var ev events.Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	return ev, nil
}
