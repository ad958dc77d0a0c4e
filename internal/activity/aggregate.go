package activity

import (
	"sort"
	"time"

	"github.com/pulsedash/pulsedash/internal/localtime"
)

// DateFilter restricts events to an inclusive local calendar date range.
// Zero bounds leave that side open.
type DateFilter struct {
	From time.Time
	To   time.Time
}

// Empty reports whether the filter restricts anything.
func (f DateFilter) Empty() bool {
	return f.From.IsZero() && f.To.IsZero()
}

func (f DateFilter) contains(date time.Time) bool {
	if !f.From.IsZero() && date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && date.After(f.To) {
		return false
	}
	return true
}

// Aggregate groups raw events per user: count of qualifying events and the
// most recent timestamp, ordered by count descending with ties kept in
// first-seen order. The date filter compares the event's local calendar
// date, not the UTC instant, so a 23:30 UTC event lands on the previous
// local day when the zone is behind UTC.
func Aggregate(events []Event, filter DateFilter, conv *localtime.Converter) []UserAggregate {
	var (
		aggs  []UserAggregate
		index = make(map[int64]int)
	)
	for _, ev := range events {
		if !filter.Empty() && !filter.contains(conv.LocalDate(ev.ActivityAt)) {
			continue
		}
		i, seen := index[ev.UserID]
		if !seen {
			index[ev.UserID] = len(aggs)
			aggs = append(aggs, UserAggregate{UserID: ev.UserID})
			i = len(aggs) - 1
		}
		aggs[i].AssessmentsCompleted++
		if ev.ActivityAt.After(aggs[i].LastActivityAt) {
			aggs[i].LastActivityAt = ev.ActivityAt
		}
	}
	SortByCount(aggs)
	return aggs
}

// SortByCount orders aggregates by count descending, preserving the incoming
// order between equal counts.
func SortByCount(aggs []UserAggregate) {
	sort.SliceStable(aggs, func(i, j int) bool {
		return aggs[i].AssessmentsCompleted > aggs[j].AssessmentsCompleted
	})
}

// FilterEvents returns the events whose local calendar date falls inside the
// filter. Used when a sub-range must be re-aggregated from retained events.
func FilterEvents(events []Event, filter DateFilter, conv *localtime.Converter) []Event {
	if filter.Empty() {
		return events
	}
	var out []Event
	for _, ev := range events {
		if filter.contains(conv.LocalDate(ev.ActivityAt)) {
			out = append(out, ev)
		}
	}
	return out
}
