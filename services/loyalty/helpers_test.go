package loyalty

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vaultbooks/pkg/clock"
	"vaultbooks/pkg/featureflags"
	"vaultbooks/services/notification"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var epoch = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []notification.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification.Event(nil), n.events...)
}

type countingCodes struct {
	mu sync.Mutex
	n  int
}

func (g *countingCodes) NextRewardCode(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("RWD-250301-%03dAA", g.n), nil
}

func (g *countingCodes) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (o *memoryObjects) Put(_ context.Context, key string, body []byte, _ string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.objects == nil {
		o.objects = make(map[string][]byte)
	}
	o.objects[key] = body
	return nil
}

type fixture struct {
	svc      *Service
	store    Store
	clock    *clock.FakeClock
	notifier *recordingNotifier
	codes    *countingCodes
	objects  *memoryObjects
	flags    featureflags.Static
}

type fixtureOption func(*ServiceParams)

func withCatalog(c *Catalog) fixtureOption {
	return func(p *ServiceParams) { p.Catalog = c }
}

func withNotifier(n notification.Notifier) fixtureOption {
	return func(p *ServiceParams) { p.Notifier = n }
}

func newFixture(t *testing.T, store Store, opts ...fixtureOption) *fixture {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &fixture{
		store:    store,
		clock:    clock.NewFakeClock(epoch),
		notifier: &recordingNotifier{},
		codes:    &countingCodes{},
		objects:  &memoryObjects{},
		flags:    featureflags.Static{},
	}

	p := ServiceParams{
		Store:    store,
		Catalog:  DefaultCatalog(),
		Node:     node,
		Notifier: f.notifier,
		Flags:    f.flags,
		Codes:    f.codes,
		Objects:  f.objects,
		Clock:    f.clock,
	}
	for _, opt := range opts {
		opt(&p)
	}

	f.svc = NewService(p)
	return f
}

func newMemoryFixture(t *testing.T, opts ...fixtureOption) *fixture {
	return newFixture(t, NewMemoryStore(), opts...)
}

// enroll creates a customer and tops it up to points at 1x.
func (f *fixture) enroll(t *testing.T, id string, points int64) *Customer {
	t.Helper()
	ctx := context.Background()

	_, err := f.svc.InitializeCustomer(ctx, id, "Customer "+id)
	require.NoError(t, err)

	if points > 0 {
		_, err = f.svc.AddPoints(ctx, id, decimal.NewFromInt(points))
		require.NoError(t, err)
	}

	c, err := f.store.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, points, c.Points)
	return c
}

func countEntries(c *Customer, typ EntryType) int {
	n := 0
	for _, e := range c.History {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
