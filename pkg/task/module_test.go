package task

import (
	"context"
	"errors"
	"testing"

	"vaultbooks/pkg/taskname"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeClient struct {
	queued []*asynq.Task
	err    error
}

func (c *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.queued = append(c.queued, task)
	queue := taskname.QueueDefault
	for _, o := range opts {
		if o.Type() == asynq.QueueOpt {
			queue = o.Value().(string)
		}
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: queue, Type: task.Type()}, nil
}

func TestEnqueuer_Enqueue(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))

	client := &fakeClient{}
	e := newEnqueuer(client)

	info, err := e.Enqueue(context.Background(),
		asynq.NewTask(taskname.LoyaltyNotify, []byte(`{}`)),
		asynq.Queue(taskname.QueueNotifications))
	require.NoError(t, err)
	require.Equal(t, taskname.QueueNotifications, info.Queue)
	require.Len(t, client.queued, 1)

	entries := logs.FilterMessage("[Asynq] task enqueued").All()
	require.Len(t, entries, 1)
	require.Equal(t, taskname.LoyaltyNotify, entries[0].ContextMap()["task_type"])
	require.Equal(t, taskname.QueueNotifications, entries[0].ContextMap()["queue"])
}

func TestEnqueuer_EnqueueError(t *testing.T) {
	zap.ReplaceGlobals(zap.NewNop())
	boom := errors.New("redis down")
	e := newEnqueuer(&fakeClient{err: boom})

	_, err := e.Enqueue(context.Background(), asynq.NewTask(taskname.LoyaltyNotify, nil))
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, taskname.LoyaltyNotify)
}
