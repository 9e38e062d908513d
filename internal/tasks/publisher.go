package tasks

import (
	"context"
	"fmt"

	"github.com/cmclain4200/approcure/internal/events"
	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the publisher uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Publisher turns events into worker tasks.
type Publisher struct {
	client   Enqueuer
	queue    string
	maxRetry int
}

func NewPublisher(client Enqueuer) *Publisher {
	return &Publisher{client: client, queue: "default", maxRetry: 5}
}

func (p *Publisher) Publish(ctx context.Context, ev events.Event) error {
	task, err := NewEventTask(ev)
	if err != nil {
		return err
	}
	if _, err := p.client.EnqueueContext(ctx, task, asynq.Queue(p.queue), asynq.MaxRetry(p.maxRetry)); err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	return nil
}
