package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"vaultbooks/pkg/task"
	"vaultbooks/pkg/taskname"

	"github.com/hibiken/asynq"
)

//go:generate mockgen -source=notifier.go -destination=mock_notifier.go -package=notification

// Notifier delivers events without waiting for them to be handled.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type taskNotifier struct {
	enqueuer task.Enqueuer
}

// NewTaskNotifier hands events to the asynq worker through the notifications queue.
func NewTaskNotifier(enqueuer task.Enqueuer) Notifier {
	return &taskNotifier{enqueuer: enqueuer}
}

func (n *taskNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = n.enqueuer.Enqueue(ctx,
		asynq.NewTask(taskname.LoyaltyNotify, payload),
		asynq.Queue(taskname.QueueNotifications),
		asynq.MaxRetry(5),
	)
	return err
}

type nopNotifier struct{}

func NewNopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) Notify(context.Context, Event) error {
	return nil
}
