package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/cmclain4200/approcure/internal/events"
	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeRequestStatusChanged = "request:status_changed"
	TypeAccessCodeClaimed    = "access_code:claimed"
	TypeAccessCodeSweep      = "access_code:sweep"
)

// eventTaskTypes maps published event types onto the task that handles them.
var eventTaskTypes = map[string]string{
	events.TypeRequestStatusChanged: TypeRequestStatusChanged,
	events.TypeAccessCodeClaimed:    TypeAccessCodeClaimed,
}

// NewEventTask wraps ev in the task for its type. The payload is the event
// itself.
func NewEventTask(ev events.Event) (*asynq.Task, error) {
	taskType, ok := eventTaskTypes[ev.Type]
	if !ok {
		return nil, fmt.Errorf("no task for event type %q", ev.Type)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}

// AccessCodeSweepPayload is empty - the sweep covers every organization
func NewAccessCodeSweepTask() *asynq.Task {
	return asynq.NewTask(TypeAccessCodeSweep, nil)
}
