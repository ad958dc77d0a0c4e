// Package activity aggregates assessment-completion events per user.
package activity

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for fetch failures. Both halt producing a table for the
// current render cycle; neither is ever papered over with stale data.
var (
	// ErrNoCredentials reports missing or incomplete connection settings.
	ErrNoCredentials = errors.New("activity: database credentials missing")
	// ErrSourceUnavailable reports that every connection strategy failed.
	ErrSourceUnavailable = errors.New("activity: data source unavailable")
)

// Mode selects where aggregation happens.
type Mode string

const (
	// ModeSource aggregates in the database with a grouped query.
	ModeSource Mode = "source"
	// ModeClient fetches raw events and aggregates in-process so date-range
	// filters can re-group without another round trip.
	ModeClient Mode = "client"
)

// Event is one raw activity row. Timestamps are stored UTC.
type Event struct {
	UserID     int64
	ActivityAt time.Time
}

// UserAggregate is the per-user rollup joined with roster data. Name fields
// stay empty when the roster has no entry; the row is never dropped.
type UserAggregate struct {
	UserID               int64
	FullName             string
	LoginID              string
	AssessmentsCompleted int
	LastActivityAt       time.Time
}

// Scope bounds a query: one outcome, a fixed user allow-list, and a lower
// time bound. The outcome and allow-list are deployment configuration, never
// user input.
type Scope struct {
	OutcomeID int64
	UserIDs   []int64
	Since     time.Time
}

// Fingerprint produces a stable cache key token for the scope.
func (s Scope) Fingerprint() string {
	ids := append([]int64(nil), s.UserIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("activity:%d|%s|%d", s.OutcomeID, strings.Join(parts, ","), s.Since.UTC().Unix())
}
