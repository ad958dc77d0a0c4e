// Package localtime converts stored UTC activity timestamps to the
// dashboard's display zone and computes the query cutoff instant.
package localtime

import (
	"fmt"
	"time"
)

// DisplayLayout is the naive local timestamp format shown in tables and
// written to snapshots.
const DisplayLayout = "2006-01-02 15:04:05"

// DateLayout is the calendar date format accepted by the date-range filter.
const DateLayout = "2006-01-02"

// CutoffPolicy selects how the lower time bound of a query scope is derived.
type CutoffPolicy string

const (
	// PolicyRolling recomputes the cutoff as today at a fixed UTC hour on
	// every invocation.
	PolicyRolling CutoffPolicy = "rolling"
	// PolicyFixed holds a configured local-time instant constant.
	PolicyFixed CutoffPolicy = "fixed"
)

// Converter localizes UTC instants into a single fixed display zone.
type Converter struct {
	loc *time.Location
}

// NewConverter loads the named zone (e.g. "America/New_York").
func NewConverter(zone string) (*Converter, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("localtime: load zone %q: %w", zone, err)
	}
	return &Converter{loc: loc}, nil
}

// Location exposes the display zone.
func (c *Converter) Location() *time.Location {
	if c == nil || c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// ToLocal converts a stored UTC instant into the display zone.
func (c *Converter) ToLocal(t time.Time) time.Time {
	return t.In(c.Location())
}

// LocalDate returns the calendar date the instant falls on in the display
// zone. Date-range filters group by this value, not by the UTC date.
func (c *Converter) LocalDate(t time.Time) time.Time {
	local := c.ToLocal(t)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatLocal renders the instant as a naive local timestamp string with the
// zone tag stripped, matching what the dashboard and snapshot display.
func (c *Converter) FormatLocal(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return c.ToLocal(t).Format(DisplayLayout)
}

// ParseLocal parses a naive local timestamp string back into an instant in
// the display zone. Used when reading snapshots; malformed values return an
// error the caller downgrades to a warning.
func (c *Converter) ParseLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DisplayLayout, s, c.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("localtime: parse %q: %w", s, err)
	}
	return t, nil
}

// Cutoff computes the scope's lower time bound in UTC.
type Cutoff struct {
	Policy CutoffPolicy
	// RollingHourUTC is the UTC hour of day used by the rolling policy.
	RollingHourUTC int
	// FixedLocal is the instant held constant by the fixed policy,
	// expressed in the display zone.
	FixedLocal time.Time
}

// For resolves the cutoff relative to now. Rolling cutoffs move with the
// clock; fixed cutoffs are converted to UTC once and never change.
func (cu Cutoff) For(now time.Time) time.Time {
	switch cu.Policy {
	case PolicyFixed:
		return cu.FixedLocal.UTC()
	default:
		u := now.UTC()
		return time.Date(u.Year(), u.Month(), u.Day(), cu.RollingHourUTC, 0, 0, 0, time.UTC)
	}
}
