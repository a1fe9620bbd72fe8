package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"vaultbooks/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandleNotifyTask stores the event carried by a loyalty:notify task.
func (s *Service) HandleNotifyTask(ctx context.Context, t *asynq.Task) error {
	var ev Event
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return fmt.Errorf("invalid payload: %w: %w", err, asynq.SkipRetry)
	}

	zapLog := zap.L().With(
		zap.String("task_type", t.Type()),
		zap.String("customer_id", ev.CustomerID),
		zap.String("type", ev.Type),
	)

	n, err := s.Add(ctx, ev)
	if err != nil {
		zapLog.Error("failed to handle notify task", zap.Error(err))
		return err
	}

	zapLog.Info("notification stored", zap.String("notification_id", n.ID))
	return nil
}

func registerTaskHandlers(mux *asynq.ServeMux, s *Service) {
	mux.HandleFunc(taskname.LoyaltyNotify, s.HandleNotifyTask)
}
