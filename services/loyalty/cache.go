package loyalty

import (
	"sync"
	"time"

	"vaultbooks/pkg/clock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{Name: "loyalty_summary_cache_hits_total"})
	cacheMiss = promauto.NewCounter(prometheus.CounterOpts{Name: "loyalty_summary_cache_miss_total"})
)

type cachedSummary struct {
	summary  *Summary
	storedAt time.Time
}

// SummaryCache memoizes customer summaries for ttl. Concurrent misses for
// the same customer share one load. A non-positive ttl disables storage.
//
// gen only holds customers with a load in flight; expired items are dropped
// on read and by a sweep that runs at most once per ttl.
type SummaryCache struct {
	mu        sync.RWMutex
	items     map[string]cachedSummary
	gen       map[string]uint64
	inflight  map[string]int
	lastSweep time.Time
	ttl       time.Duration
	clock     clock.Clock
	group     singleflight.Group
}

func NewSummaryCache(ttl time.Duration, c clock.Clock) *SummaryCache {
	if c == nil {
		c = clock.New()
	}
	return &SummaryCache{
		items:     make(map[string]cachedSummary),
		gen:       make(map[string]uint64),
		inflight:  make(map[string]int),
		lastSweep: c.Now(),
		ttl:       ttl,
		clock:     c,
	}
}

func (c *SummaryCache) expired(v cachedSummary, now time.Time) bool {
	return now.Sub(v.storedAt) > c.ttl
}

func (c *SummaryCache) Get(id string) (*Summary, bool) {
	now := c.clock.Now()
	c.mu.RLock()
	v, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.expired(v, now) {
		c.mu.Lock()
		if cur, ok := c.items[id]; ok && c.expired(cur, now) {
			delete(c.items, id)
		}
		c.mu.Unlock()
		return nil, false
	}
	return v.summary, true
}

// GetOrLoad returns the cached summary or runs load once for all concurrent
// callers. Results loaded across an Invalidate are returned but not stored.
func (c *SummaryCache) GetOrLoad(id string, load func() (*Summary, error)) (*Summary, error) {
	if s, ok := c.Get(id); ok {
		cacheHits.Inc()
		return s, nil
	}
	cacheMiss.Inc()

	v, err, _ := c.group.Do(id, func() (any, error) {
		c.mu.Lock()
		c.inflight[id]++
		gen := c.gen[id]
		c.mu.Unlock()

		s, err := load()

		c.mu.Lock()
		defer c.mu.Unlock()
		if err == nil && c.ttl > 0 && c.gen[id] == gen {
			now := c.clock.Now()
			c.items[id] = cachedSummary{summary: s, storedAt: now}
			c.sweepLocked(now)
		}
		if c.inflight[id]--; c.inflight[id] <= 0 {
			delete(c.inflight, id)
			delete(c.gen, id)
		}
		if err != nil {
			return nil, err
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

func (c *SummaryCache) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) < c.ttl {
		return
	}
	for id, v := range c.items {
		if c.expired(v, now) {
			delete(c.items, id)
		}
	}
	c.lastSweep = now
}

func (c *SummaryCache) Invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	if c.inflight[id] > 0 {
		c.gen[id]++
	}
}
