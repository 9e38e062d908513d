package events_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmclain4200/approcure/internal/events"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	got []events.Event
	err error
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestMulti(t *testing.T) {
	ok := &recorder{}
	failing := &recorder{err: errors.New("queue down")}

	err := events.Multi{ok, failing}.Publish(context.Background(), events.Event{Type: events.TypeAccessCodeClaimed})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)

	assert.NoError(t, events.Multi{ok}.Publish(context.Background(), events.Event{}))
	assert.NoError(t, events.Nop{}.Publish(context.Background(), events.Event{}))
}

func TestEmit_LogsFailures(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	failing := &recorder{err: errors.New("queue down")}

	events.Emit(context.Background(), failing, log, events.Event{Type: events.TypeRequestStatusChanged})

	require.Len(t, failing.got, 1)
	assert.False(t, failing.got[0].OccurredAt.IsZero())
	assert.Contains(t, buf.String(), "failed to publish event")
	assert.Contains(t, buf.String(), "queue down")

	events.Emit(context.Background(), nil, log, events.Event{})
}

func TestRedisPublisher_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	pub := events.NewRedisPublisher(client, "approcure:events")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan events.Event, 8)
	go func() {
		_ = pub.Subscribe(ctx, func(ev events.Event) { received <- ev })
	}()

	want := events.Event{
		Type:           events.TypeRequestStatusChanged,
		OrganizationID: uuid.New(),
		TargetID:       uuid.New(),
		From:           "pending",
		To:             "approved",
		Reference:      "PO-1001",
	}

	// The subscription may not be registered yet; publish until it is.
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		require.NoError(t, pub.Publish(ctx, want))
		select {
		case got := <-received:
			assert.Equal(t, want.Type, got.Type)
			assert.Equal(t, want.TargetID, got.TargetID)
			assert.Equal(t, "approved", got.To)
			assert.Equal(t, "PO-1001", got.Reference)
			return
		case <-ticker.C:
		case <-ctx.Done():
			t.Fatal("event not received")
		}
	}
}

func TestRedisPublisher_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	err := events.NewRedisPublisher(client, "c").Publish(context.Background(), events.Event{})
	assert.Error(t, err)
}
