package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/cmclain4200/approcure/internal/accesscode"
	"github.com/cmclain4200/approcure/internal/database/models"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/cmclain4200/approcure/internal/rbac"
	"github.com/cmclain4200/approcure/internal/testutil"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, out io.Writer) (*Handler, *testutil.TestSetup) {
	t.Helper()
	setup := testutil.NewTestContext(t)
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	codes := accesscode.NewService(setup.Store, nil, logger)
	return NewHandler(setup.Store, codes, logger), setup
}

func eventTask(t *testing.T, ev events.Event) *asynq.Task {
	t.Helper()
	task, err := NewEventTask(ev)
	require.NoError(t, err)
	return task
}

func TestNewEventTask(t *testing.T) {
	ev := events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: uuid.New(),
		TargetID:       uuid.New(),
		From:           "pending",
		To:             "approved",
		Reference:      "PO-1001",
	}

	task, err := NewEventTask(ev)
	require.NoError(t, err)
	assert.Equal(t, TypeRequestStatusChanged, task.Type())

	var decoded events.Event
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, ev.TargetID, decoded.TargetID)
	assert.Equal(t, "PO-1001", decoded.Reference)

	_, err = NewEventTask(events.Event{Type: "project.renamed"})
	assert.Error(t, err)
}

func TestHandleRequestStatusChanged_InvalidPayload(t *testing.T) {
	handler, _ := newTestHandler(t, io.Discard)

	err := handler.HandleRequestStatusChanged(context.Background(), asynq.NewTask(TypeRequestStatusChanged, []byte("invalid json")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal payload")
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleRequestStatusChanged_FlagsMissingFields(t *testing.T) {
	var logs bytes.Buffer
	handler, setup := newTestHandler(t, &logs)
	ctx := testutil.TestContext(t)

	project := testutil.CreateTestProject(t, setup.DB, setup.Org.ID, 1000)
	require.NoError(t, setup.Store.UpsertFinanceSettings(ctx, &models.ProjectFinanceSettings{
		ProjectID:       project.ID,
		OrganizationID:  setup.Org.ID,
		RequirePONumber: true,
	}))
	req := testutil.CreateTestRequest(t, setup.DB, project, setup.User, models.RequestStatusApproved, 100)

	err := handler.HandleRequestStatusChanged(ctx, eventTask(t, events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: setup.Org.ID,
		TargetID:       req.ID,
		From:           "pending",
		To:             "approved",
		Reference:      req.PONumber,
	}))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "approved request needs attention")
	assert.Contains(t, logs.String(), "PO #")
}

func TestHandleRequestStatusChanged_IgnoresOtherTransitions(t *testing.T) {
	var logs bytes.Buffer
	handler, setup := newTestHandler(t, &logs)

	err := handler.HandleRequestStatusChanged(testutil.TestContext(t), eventTask(t, events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: setup.Org.ID,
		TargetID:       uuid.New(),
		From:           "pending",
		To:             "rejected",
	}))
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "needs attention")
}

func TestHandleRequestStatusChanged_MissingRequest(t *testing.T) {
	handler, setup := newTestHandler(t, io.Discard)

	err := handler.HandleRequestStatusChanged(testutil.TestContext(t), eventTask(t, events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: setup.Org.ID,
		TargetID:       uuid.New(),
		To:             "approved",
	}))
	assert.NoError(t, err)
}

func TestHandleAccessCodeClaimed(t *testing.T) {
	var logs bytes.Buffer
	handler, setup := newTestHandler(t, &logs)

	err := handler.HandleAccessCodeClaimed(testutil.TestContext(t), eventTask(t, events.Event{
		Type:           events.TypeAccessCodeClaimed,
		OrganizationID: setup.Org.ID,
		TargetID:       setup.User.ID,
		To:             string(rbac.OrgRoleMember),
		Reference:      "ABCD2345",
	}))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "member joined through access code")

	err = handler.HandleAccessCodeClaimed(context.Background(), asynq.NewTask(TypeAccessCodeClaimed, []byte("{")))
	assert.Error(t, err)
}

func TestHandleAccessCodeSweep(t *testing.T) {
	handler, setup := newTestHandler(t, io.Discard)
	ctx := testutil.TestContext(t)

	past := time.Now().UTC().Add(-time.Hour)
	expired := &models.AccessCode{
		OrganizationID: setup.Org.ID,
		Code:           "SWEEP234",
		IssuedBy:       setup.User.ID,
		OrgRole:        rbac.OrgRoleMember,
		MaxUses:        1,
		ExpiresAt:      &past,
		Status:         models.AccessCodeActive,
	}
	require.NoError(t, setup.DB.Create(expired).Error)

	require.NoError(t, handler.HandleAccessCodeSweep(ctx, NewAccessCodeSweepTask()))

	stored, err := setup.Store.GetAccessCode(ctx, setup.Org.ID, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessCodeDisabled, stored.Status)
}

func TestRegisterHandlers(t *testing.T) {
	handler, _ := newTestHandler(t, io.Discard)
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	for _, taskType := range []string{TypeRequestStatusChanged, TypeAccessCodeClaimed, TypeAccessCodeSweep} {
		h, pattern := mux.Handler(asynq.NewTask(taskType, nil))
		assert.NotNil(t, h)
		assert.Equal(t, taskType, pattern)
	}
}
