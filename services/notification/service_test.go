package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/db/pagination"
	"vaultbooks/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var epoch = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *clock.FakeClock) {
	t.Helper()

	db := testutil.NewTestDB(t, &Notification{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(epoch)
	return NewService(ServiceParams{DB: db, Node: node, Clock: clk}), clk
}

func TestService_AddAndList(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, Event{CustomerID: "c1", Type: TypeTierChange, Title: "first", Priority: PriorityHigh})
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = svc.Add(ctx, Event{CustomerID: "c1", Title: "second"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Event{CustomerID: "c2", Title: "other"})
	require.NoError(t, err)

	items, err := svc.List(ctx, "c1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "second", items[0].Title)
	require.Equal(t, PriorityNormal, items[0].Priority)

	items, err = svc.List(ctx, "c1", ListFilter{Priority: PriorityHigh})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, TypeTierChange, items[0].Type)
}

func TestService_AddRejectsIncompleteEvent(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Add(context.Background(), Event{Title: "no customer"})
	require.ErrorIs(t, err, ErrInvalidEvent)
}

func TestService_TrimsInbox(t *testing.T) {
	svc, clk := newTestService(t)
	svc.max = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Add(ctx, Event{CustomerID: "c1", Title: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	items, err := svc.List(ctx, "c1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "n4", items[0].Title)
	require.Equal(t, "n2", items[2].Title)
}

func TestService_ReadState(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Add(ctx, Event{CustomerID: "c1", Title: "a"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Event{CustomerID: "c1", Title: "b"})
	require.NoError(t, err)

	count, err := svc.UnreadCount(ctx, "c1")
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	read, err := svc.MarkAsRead(ctx, "c1", a.ID)
	require.NoError(t, err)
	require.True(t, read.Read)
	require.NotNil(t, read.ReadAt)

	unread, err := svc.List(ctx, "c1", ListFilter{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	require.Equal(t, "b", unread[0].Title)

	_, err = svc.MarkAsRead(ctx, "c2", a.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)

	updated, err := svc.MarkAllAsRead(ctx, "c1")
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	count, err = svc.UnreadCount(ctx, "c1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestService_DeleteAndClear(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Add(ctx, Event{CustomerID: "c1", Title: "a"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, Event{CustomerID: "c1", Title: "b"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "c1", a.ID))
	require.ErrorIs(t, svc.Delete(ctx, "c1", a.ID), ErrNotificationNotFound)

	require.NoError(t, svc.ClearAll(ctx, "c1"))
	items, err := svc.List(ctx, "c1", ListFilter{})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestService_HandleNotifyTask(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	payload, err := json.Marshal(Event{
		CustomerID: "c1",
		Type:       TypeTierChange,
		Title:      "Congratulations!",
		Priority:   PriorityHigh,
		Data:       map[string]string{"to_tier": "GOLD"},
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleNotifyTask(ctx, asynq.NewTask("loyalty:notify", payload)))

	items, err := svc.List(ctx, "c1", ListFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "GOLD", items[0].Data["to_tier"])

	err = svc.HandleNotifyTask(ctx, asynq.NewTask("loyalty:notify", []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) Enqueue(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "1", Type: task.Type()}, nil
}

func TestTaskNotifier(t *testing.T) {
	enq := &recordingEnqueuer{}
	n := NewTaskNotifier(enq)

	require.NoError(t, n.Notify(context.Background(), Event{CustomerID: "c1", Title: "hi"}))
	require.Len(t, enq.tasks, 1)
	require.Equal(t, "loyalty:notify", enq.tasks[0].Type())

	var ev Event
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &ev))
	require.Equal(t, "c1", ev.CustomerID)
}

func TestService_ListPage(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.Add(ctx, Event{CustomerID: "c1", Title: fmt.Sprintf("n%d", i)})
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	var titles []string
	page := pagination.Pagination{Limit: 2}
	for {
		items, info, err := svc.ListPage(ctx, "c1", ListFilter{}, page)
		require.NoError(t, err)
		for _, n := range items {
			titles = append(titles, n.Title)
		}
		if !info.HasMore {
			break
		}
		page.Cursor = info.NextCursor
	}
	require.Equal(t, []string{"n5", "n4", "n3", "n2", "n1"}, titles)

	_, _, err := svc.ListPage(ctx, "c1", ListFilter{}, pagination.Pagination{Cursor: "%%%"})
	require.Error(t, err)
}
