package localtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConverter(t *testing.T) *Converter {
	t.Helper()
	conv, err := NewConverter("America/New_York")
	require.NoError(t, err)
	return conv
}

func TestLocalDateCrossesMidnight(t *testing.T) {
	conv := newTestConverter(t)

	// 2025-09-02 00:10 UTC is still 2025-09-01 in Eastern (UTC-4 in DST).
	early := time.Date(2025, 9, 2, 0, 10, 0, 0, time.UTC)
	late := time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)

	assert.Equal(t, "2025-09-01", conv.LocalDate(early).Format(DateLayout))
	assert.Equal(t, "2025-09-01", conv.LocalDate(late).Format(DateLayout))
}

func TestFormatLocalStripsZone(t *testing.T) {
	conv := newTestConverter(t)

	ts := time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, "2025-09-01 19:30:00", conv.FormatLocal(ts))
	assert.Equal(t, "", conv.FormatLocal(time.Time{}))
}

func TestParseLocalRoundTrip(t *testing.T) {
	conv := newTestConverter(t)

	ts := time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)
	parsed, err := conv.ParseLocal(conv.FormatLocal(ts))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts), "expected %v, got %v", ts, parsed)

	_, err = conv.ParseLocal("not-a-timestamp")
	assert.Error(t, err)
}

func TestRollingCutoffTracksClock(t *testing.T) {
	cu := Cutoff{Policy: PolicyRolling, RollingHourUTC: 4}

	now := time.Date(2025, 9, 2, 15, 45, 12, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 9, 2, 4, 0, 0, 0, time.UTC), cu.For(now))

	next := now.Add(24 * time.Hour)
	assert.Equal(t, time.Date(2025, 9, 3, 4, 0, 0, 0, time.UTC), cu.For(next))
}

func TestFixedCutoffIgnoresClock(t *testing.T) {
	conv := newTestConverter(t)
	fixed := time.Date(2025, 8, 1, 0, 0, 0, 0, conv.Location())
	cu := Cutoff{Policy: PolicyFixed, FixedLocal: fixed}

	a := cu.For(time.Date(2025, 9, 2, 10, 0, 0, 0, time.UTC))
	b := cu.For(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC))
	assert.True(t, a.Equal(b))
	assert.True(t, a.Equal(fixed.UTC()))
}
