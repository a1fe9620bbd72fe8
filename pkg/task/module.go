package task

import (
	"context"
	"fmt"

	"vaultbooks/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Client = fx.Module("asynq:client",
	fx.Provide(registerClient, NewEnqueuer),
)

// Enqueuer is the producer side of the worker queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type taskClient interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type enqueuer struct {
	client taskClient
}

func NewEnqueuer(client *asynq.Client) Enqueuer {
	return newEnqueuer(client)
}

func newEnqueuer(client taskClient) *enqueuer {
	return &enqueuer{client: client}
}

func (e *enqueuer) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := e.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		zap.L().Warn("[Asynq] enqueue failed", zap.String("task_type", task.Type()), zap.Error(err))
		return nil, fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	zap.L().Debug("[Asynq] task enqueued",
		zap.String("task_type", task.Type()),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	return info, nil
}

func registerClient(lc fx.Lifecycle, rdb *redis.Client) *asynq.Client {
	client := asynq.NewClientFromRedisClient(rdb)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

var Server = fx.Module("asynq:server",
	fx.Provide(registerServerMux),
	fx.Invoke(registerAsynqServer),
)

func registerServerMux() *asynq.ServeMux {
	return asynq.NewServeMux()
}

func registerAsynqServer(lc fx.Lifecycle, rdb *redis.Client, mux *asynq.ServeMux) {
	server := asynq.NewServerFromRedisClient(
		rdb,
		asynq.Config{
			Concurrency:    10,
			RetryDelayFunc: asynq.DefaultRetryDelayFunc,
			Queues: map[string]int{
				taskname.QueueCritical:      6,
				taskname.QueueNotifications: 3,
				taskname.QueueDefault:       1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.L().Error("asynq task permanently failed", zap.String("task_type", task.Type()), zap.Error(err))
			}),
		},
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := server.Start(mux); err != nil {
				zap.L().Error("[Asynq] Failed to start Asynq server", zap.Error(err))
				return err
			}
			zap.L().Info("[Asynq] Asynq server started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Shutdown()
			return nil
		},
	})
}
