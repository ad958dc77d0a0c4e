package activity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedash/pulsedash/internal/localtime"
)

func eastern(t *testing.T) *localtime.Converter {
	t.Helper()
	conv, err := localtime.NewConverter("America/New_York")
	require.NoError(t, err)
	return conv
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAggregateCountsAndLastActivity(t *testing.T) {
	conv := eastern(t)
	events := []Event{
		{UserID: 1, ActivityAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)},
		{UserID: 2, ActivityAt: time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)},
		{UserID: 1, ActivityAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)},
		{UserID: 1, ActivityAt: time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)},
	}

	aggs := Aggregate(events, DateFilter{}, conv)
	require.Len(t, aggs, 2)

	assert.Equal(t, int64(1), aggs[0].UserID)
	assert.Equal(t, 3, aggs[0].AssessmentsCompleted)
	assert.Equal(t, time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC), aggs[0].LastActivityAt)
	assert.Equal(t, int64(2), aggs[1].UserID)
	assert.Equal(t, 1, aggs[1].AssessmentsCompleted)
}

func TestAggregateTotalMatchesEventCount(t *testing.T) {
	conv := eastern(t)
	events := []Event{
		{UserID: 5, ActivityAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)},
		{UserID: 6, ActivityAt: time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)},
		{UserID: 5, ActivityAt: time.Date(2025, 9, 2, 12, 0, 0, 0, time.UTC)},
	}
	aggs := Aggregate(events, DateFilter{}, conv)

	total := 0
	for _, a := range aggs {
		total += a.AssessmentsCompleted
	}
	assert.Equal(t, len(events), total)
}

func TestAggregateStableTies(t *testing.T) {
	conv := eastern(t)
	events := []Event{
		{UserID: 9, ActivityAt: time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)},
		{UserID: 4, ActivityAt: time.Date(2025, 9, 1, 11, 0, 0, 0, time.UTC)},
		{UserID: 7, ActivityAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)},
	}
	aggs := Aggregate(events, DateFilter{}, conv)

	ids := []int64{aggs[0].UserID, aggs[1].UserID, aggs[2].UserID}
	assert.Equal(t, []int64{9, 4, 7}, ids, "equal counts keep first-seen order")
}

func TestAggregateGroupsByLocalDate(t *testing.T) {
	conv := eastern(t)
	// Both instants fall on local date 2025-09-01 in Eastern (UTC-4):
	// 23:30 UTC -> 19:30 local, next-day 00:10 UTC -> 20:10 local.
	events := []Event{
		{UserID: 1, ActivityAt: time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)},
		{UserID: 1, ActivityAt: time.Date(2025, 9, 2, 0, 10, 0, 0, time.UTC)},
	}

	sameDay := DateFilter{From: date(2025, 9, 1), To: date(2025, 9, 1)}
	aggs := Aggregate(events, sameDay, conv)
	require.Len(t, aggs, 1)
	assert.Equal(t, 2, aggs[0].AssessmentsCompleted)

	nextDay := DateFilter{From: date(2025, 9, 2), To: date(2025, 9, 2)}
	assert.Empty(t, Aggregate(events, nextDay, conv))
}

func TestReaggregationOfSubRangeMatchesDirect(t *testing.T) {
	conv := eastern(t)
	events := []Event{
		{UserID: 1, ActivityAt: time.Date(2025, 9, 1, 14, 0, 0, 0, time.UTC)},
		{UserID: 2, ActivityAt: time.Date(2025, 9, 2, 14, 0, 0, 0, time.UTC)},
		{UserID: 1, ActivityAt: time.Date(2025, 9, 3, 14, 0, 0, 0, time.UTC)},
		{UserID: 2, ActivityAt: time.Date(2025, 9, 4, 14, 0, 0, 0, time.UTC)},
	}

	wide := DateFilter{From: date(2025, 9, 1), To: date(2025, 9, 4)}
	narrow := DateFilter{From: date(2025, 9, 2), To: date(2025, 9, 3)}

	restricted := FilterEvents(events, wide, conv)
	viaSubRange := Aggregate(restricted, narrow, conv)
	direct := Aggregate(events, narrow, conv)

	assert.Equal(t, direct, viaSubRange)
}
