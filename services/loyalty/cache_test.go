package loyalty

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vaultbooks/pkg/clock"

	"github.com/stretchr/testify/require"
)

func TestSummaryCache_TTL(t *testing.T) {
	clk := clock.NewFakeClock(epoch)
	c := NewSummaryCache(time.Minute, clk)

	var loads int
	load := func() (*Summary, error) {
		loads++
		return &Summary{Benefits: []string{"x"}}, nil
	}

	_, err := c.GetOrLoad("c1", load)
	require.NoError(t, err)
	_, err = c.GetOrLoad("c1", load)
	require.NoError(t, err)
	require.Equal(t, 1, loads)

	clk.Advance(2 * time.Minute)
	_, err = c.GetOrLoad("c1", load)
	require.NoError(t, err)
	require.Equal(t, 2, loads)

	c.Invalidate("c1")
	_, ok := c.Get("c1")
	require.False(t, ok)
}

func TestSummaryCache_ErrorsAreNotCached(t *testing.T) {
	c := NewSummaryCache(time.Minute, clock.NewFakeClock(epoch))
	boom := errors.New("boom")

	_, err := c.GetOrLoad("c1", func() (*Summary, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	s, err := c.GetOrLoad("c1", func() (*Summary, error) { return &Summary{}, nil })
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSummaryCache_ConcurrentMissesShareLoad(t *testing.T) {
	c := NewSummaryCache(time.Minute, clock.NewFakeClock(epoch))

	var loads atomic.Int32
	release := make(chan struct{})
	load := func() (*Summary, error) {
		loads.Add(1)
		<-release
		return &Summary{}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrLoad("c1", load)
			require.NoError(t, err)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.LessOrEqual(t, loads.Load(), int32(8))
	_, ok := c.Get("c1")
	require.True(t, ok)
}

func TestSummaryCache_InvalidateDuringLoad(t *testing.T) {
	c := NewSummaryCache(time.Minute, clock.NewFakeClock(epoch))

	_, err := c.GetOrLoad("c1", func() (*Summary, error) {
		c.Invalidate("c1")
		return &Summary{}, nil
	})
	require.NoError(t, err)

	_, ok := c.Get("c1")
	require.False(t, ok)
}

func cacheSizes(c *SummaryCache) (items, gens, inflight int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items), len(c.gen), len(c.inflight)
}

func TestSummaryCache_PrunesBookkeeping(t *testing.T) {
	clk := clock.NewFakeClock(epoch)
	c := NewSummaryCache(time.Minute, clk)
	load := func() (*Summary, error) { return &Summary{}, nil }

	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := c.GetOrLoad(id, load)
		require.NoError(t, err)
		c.Invalidate(id)
		c.Invalidate(id)
	}
	items, gens, inflight := cacheSizes(c)
	require.Zero(t, items)
	require.Zero(t, gens)
	require.Zero(t, inflight)

	_, err := c.GetOrLoad("c1", func() (*Summary, error) {
		c.Invalidate("c1")
		return &Summary{}, nil
	})
	require.NoError(t, err)
	_, gens, _ = cacheSizes(c)
	require.Zero(t, gens)
}

func TestSummaryCache_EvictsExpired(t *testing.T) {
	clk := clock.NewFakeClock(epoch)
	c := NewSummaryCache(time.Minute, clk)
	load := func() (*Summary, error) { return &Summary{}, nil }

	for _, id := range []string{"c1", "c2", "c3"} {
		_, err := c.GetOrLoad(id, load)
		require.NoError(t, err)
	}
	items, _, _ := cacheSizes(c)
	require.Equal(t, 3, items)

	clk.Advance(2 * time.Minute)
	_, ok := c.Get("c1")
	require.False(t, ok)
	items, _, _ = cacheSizes(c)
	require.Equal(t, 2, items)

	_, err := c.GetOrLoad("c4", load)
	require.NoError(t, err)
	items, _, _ = cacheSizes(c)
	require.Equal(t, 1, items, "sweep drops c2 and c3, keeps c4")
}
