package freshness

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedash/pulsedash/internal/activity"
)

type countingFetcher struct {
	calls atomic.Int64
	delay time.Duration
	err   error
}

func (f *countingFetcher) fetch(ctx context.Context, scope activity.Scope) (*activity.Report, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &activity.Report{
		Aggregates: []activity.UserAggregate{{UserID: 1, AssessmentsCompleted: int(f.calls.Load())}},
	}, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestCache(fetch FetchFunc) (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)}
	cache := NewCache(10*time.Minute, fetch, NewGuard("letmein", "")).WithClock(clock.Now)
	return cache, clock
}

func TestGetOrFetchReusesWithinTTL(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, clock := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	first, fetchedAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	second, again, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, int64(1), fetcher.calls.Load(), "second read must not re-fetch")
	assert.Same(t, first, second, "identical cached value served")
	assert.Equal(t, fetchedAt, again)
}

func TestGetOrFetchRefetchesAfterTTL(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, clock := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	_, firstAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	_, secondAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, int64(2), fetcher.calls.Load())
	assert.True(t, secondAt.After(firstAt))
}

func TestInvalidateWrongCredentialLeavesCacheUntouched(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, _ := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	_, fetchedAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	err = cache.Invalidate(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrBadCredential)

	_, again, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, fetchedAt, again, "fetchedAt unchanged after rejected refresh")
	assert.Equal(t, int64(1), fetcher.calls.Load())
}

func TestInvalidateForcesFetch(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, clock := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	_, firstAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, cache.Invalidate(context.Background(), "letmein"))

	_, secondAt, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
	assert.True(t, secondAt.After(firstAt))
}

func TestColdSlotConcurrentReadersShareOneFetch(t *testing.T) {
	fetcher := &countingFetcher{delay: 50 * time.Millisecond}
	cache, _ := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := cache.GetOrFetch(context.Background(), scope)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), fetcher.calls.Load(), "no duplicate fetch storm")
}

func TestFetchFailureIsNotMaskedByStaleData(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, clock := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	_, _, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	fetcher.err = activity.ErrSourceUnavailable
	_, _, err = cache.GetOrFetch(context.Background(), scope)
	assert.ErrorIs(t, err, activity.ErrSourceUnavailable)
}

func TestStoreEvictsExpiredSlots(t *testing.T) {
	fetcher := &countingFetcher{}
	cache, clock := newTestCache(fetcher.fetch)

	// Simulates a rolling cutoff: each day's scope fingerprints differently.
	day1 := activity.Scope{OutcomeID: 1027, Since: time.Date(2025, 9, 1, 4, 0, 0, 0, time.UTC)}
	day2 := activity.Scope{OutcomeID: 1027, Since: time.Date(2025, 9, 2, 4, 0, 0, 0, time.UTC)}

	_, _, err := cache.GetOrFetch(context.Background(), day1)
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	_, _, err = cache.GetOrFetch(context.Background(), day2)
	require.NoError(t, err)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	assert.Len(t, cache.slots, 1, "yesterday's slot evicted")
	_, ok := cache.slots[day2.Fingerprint()]
	assert.True(t, ok)
}

type blockingFetcher struct {
	delay time.Duration
}

func (f *blockingFetcher) fetch(ctx context.Context, scope activity.Scope) (*activity.Report, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(f.delay):
	}
	return &activity.Report{}, nil
}

func TestColdFetchSurvivesFirstCallerCancel(t *testing.T) {
	fetcher := &blockingFetcher{delay: 100 * time.Millisecond}
	cache, _ := newTestCache(fetcher.fetch)
	scope := activity.Scope{OutcomeID: 1027}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrFetch(firstCtx, scope)
		firstErr <- err
	}()

	// Let the first caller start the flight, then abandon it.
	time.Sleep(20 * time.Millisecond)
	secondErr := make(chan error, 1)
	go func() {
		_, _, err := cache.GetOrFetch(context.Background(), scope)
		secondErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-firstErr, context.Canceled)
	assert.NoError(t, <-secondErr, "waiter must not inherit the first caller's cancellation")
}

func TestBroadcastDropsRemoteSlot(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	fetcher := &countingFetcher{}
	cache, _ := newTestCache(fetcher.fetch)
	cache.WithBroadcast(NewBroadcast(client, "", nil))
	scope := activity.Scope{OutcomeID: 1027}

	_, _, err := cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)

	remote := NewBroadcast(client, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dropped := make(chan struct{})
	go remote.Listen(ctx, func() {
		cache.Drop()
		close(dropped)
	})

	// Give the subscriber a moment to attach before publishing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, cache.Invalidate(context.Background(), "letmein"))

	select {
	case <-dropped:
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation broadcast not received")
	}

	_, _, err = cache.GetOrFetch(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fetcher.calls.Load())
}
