// Package freshness memoizes the expensive activity fetch for a bounded
// window and exposes credential-gated manual invalidation.
package freshness

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pulsedash/pulsedash/internal/activity"
)

// FetchFunc performs the underlying fetch for a scope.
type FetchFunc func(ctx context.Context, scope activity.Scope) (*activity.Report, error)

type slot struct {
	report    *activity.Report
	fetchedAt time.Time
}

// Cache is a per-scope single-slot memo. Staleness is evaluated lazily at
// read time; nothing refreshes in the background. Concurrent readers hitting
// a cold slot share one fetch.
type Cache struct {
	ttl       time.Duration
	fetch     FetchFunc
	guard     *Guard
	broadcast *Broadcast
	now       func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	slots map[string]*slot
}

// NewCache constructs a cache around the fetch function.
func NewCache(ttl time.Duration, fetch FetchFunc, guard *Guard) *Cache {
	return &Cache{
		ttl:   ttl,
		fetch: fetch,
		guard: guard,
		now:   time.Now,
		slots: make(map[string]*slot),
	}
}

// WithClock overrides the cache clock, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// WithBroadcast attaches cross-instance invalidation fan-out.
func (c *Cache) WithBroadcast(b *Broadcast) *Cache {
	c.broadcast = b
	return c
}

// TTL reports the configured time-to-live.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// GetOrFetch returns the cached report for the scope while it is within the
// TTL, fetching otherwise. A failed fetch returns the error as-is; expired
// data is never served as a fallback.
func (c *Cache) GetOrFetch(ctx context.Context, scope activity.Scope) (*activity.Report, time.Time, error) {
	key := scope.Fingerprint()

	if report, fetchedAt, ok := c.lookup(key); ok {
		return report, fetchedAt, nil
	}

	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		// A concurrent flight may have filled the slot after our miss.
		if report, fetchedAt, ok := c.lookup(key); ok {
			return &slot{report: report, fetchedAt: fetchedAt}, nil
		}
		// The flight is shared by every waiter, so it must not die with the
		// first caller's request context.
		report, err := c.fetch(context.WithoutCancel(ctx), scope)
		if err != nil {
			return nil, err
		}
		s := &slot{report: report, fetchedAt: c.now()}
		c.mu.Lock()
		c.evictExpired()
		c.slots[key] = s
		c.mu.Unlock()
		return s, nil
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, time.Time{}, res.Err
		}
		s := res.Val.(*slot)
		return s.report, s.fetchedAt, nil
	}
}

// evictExpired drops slots past their TTL so keys that are never read again,
// like a rolling cutoff's previous days, do not accumulate. Caller holds mu.
func (c *Cache) evictExpired() {
	now := c.now()
	for key, s := range c.slots {
		if now.Sub(s.fetchedAt) > c.ttl {
			delete(c.slots, key)
			c.group.Forget(key)
		}
	}
}

func (c *Cache) lookup(key string) (*activity.Report, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.slots[key]
	if !ok || c.now().Sub(s.fetchedAt) > c.ttl {
		return nil, time.Time{}, false
	}
	return s.report, s.fetchedAt, true
}

// Invalidate verifies the submitted credential and, on match, drops every
// slot so the next read fetches regardless of remaining TTL. On mismatch the
// cache is untouched.
func (c *Cache) Invalidate(ctx context.Context, credential string) error {
	if err := c.guard.Verify(credential); err != nil {
		return err
	}
	c.Drop()
	if c.broadcast != nil {
		return c.broadcast.Publish(ctx)
	}
	return nil
}

// Drop clears all slots without a credential check. Used by the broadcast
// listener when another instance invalidated.
func (c *Cache) Drop() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.slots))
	for key := range c.slots {
		keys = append(keys, key)
	}
	c.slots = make(map[string]*slot)
	c.mu.Unlock()
	for _, key := range keys {
		c.group.Forget(key)
	}
}
