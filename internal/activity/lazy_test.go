package activity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLazyRepositoryRetriesDialAfterFailure(t *testing.T) {
	inner := &mockRepository{aggregates: []UserAggregate{
		{UserID: 1, AssessmentsCompleted: 4, LastActivityAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)},
	}}

	dials := 0
	lazy := NewLazyRepository(func(ctx context.Context) (RepositoryPort, error) {
		dials++
		if dials == 1 {
			return nil, ErrSourceUnavailable
		}
		return inner, nil
	})

	// First fetch fails while the source is down.
	_, err := lazy.FetchAggregated(context.Background(), Scope{OutcomeID: 1027})
	assert.ErrorIs(t, err, ErrSourceUnavailable)

	// The source recovers; the next fetch redials and succeeds.
	aggs, err := lazy.FetchAggregated(context.Background(), Scope{OutcomeID: 1027})
	require.NoError(t, err)
	require.Len(t, aggs, 1)
	assert.Equal(t, 2, dials)

	// Later fetches reuse the established repository.
	_, err = lazy.FetchRaw(context.Background(), Scope{OutcomeID: 1027})
	require.NoError(t, err)
	assert.Equal(t, 2, dials)
	assert.Equal(t, 1, inner.rawCalls)
}
