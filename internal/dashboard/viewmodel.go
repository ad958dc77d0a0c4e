package dashboard

import (
	"time"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/localtime"
)

// Row is one rendered table line. Timestamps are naive local strings.
type Row struct {
	UserID       int64
	FullName     string
	LoginID      string
	Assessments  int
	LastActivity string
}

// ViewModel feeds the dashboard page template.
type ViewModel struct {
	Rows             []Row
	TotalUsers       int
	TotalAssessments int
	// DataAsOf is the most recent activity among the rendered rows.
	DataAsOf string
	// LastUpdated is when the underlying data was fetched or exported.
	LastUpdated string

	Filters            Filters
	SupportsDateFilter bool

	Warnings []string
	// LoadError set means no table is rendered at all.
	LoadError string
	// filterErr and fetchErr keep the underlying errors for non-HTML
	// responses; the template only sees LoadError.
	filterErr error
	fetchErr  error
	// RefreshNotice carries the outcome of a manual refresh attempt.
	RefreshNotice string
	RefreshFailed bool
}

// buildViewModel applies the display filters to the report. When a date
// range is requested and raw events were retained, the rollup is rebuilt
// from the events; otherwise the cached aggregates are used as-is.
func buildViewModel(report *activity.Report, fetchedAt time.Time, filters Filters, conv *localtime.Converter, supportsDates bool) ViewModel {
	vm := ViewModel{
		Filters:            filters,
		SupportsDateFilter: supportsDates,
		Warnings:           append([]string(nil), report.Warnings...),
		LastUpdated:        conv.FormatLocal(fetchedAt),
	}

	aggs := report.Aggregates
	if supportsDates {
		if df, err := filters.DateFilter(); err == nil && !df.Empty() {
			aggs = report.Reaggregate(df, conv)
		}
	}

	var maxActivity time.Time
	for _, agg := range aggs {
		if !filters.Match(agg) {
			continue
		}
		vm.Rows = append(vm.Rows, Row{
			UserID:       agg.UserID,
			FullName:     agg.FullName,
			LoginID:      agg.LoginID,
			Assessments:  agg.AssessmentsCompleted,
			LastActivity: conv.FormatLocal(agg.LastActivityAt),
		})
		vm.TotalAssessments += agg.AssessmentsCompleted
		if agg.LastActivityAt.After(maxActivity) {
			maxActivity = agg.LastActivityAt
		}
	}
	vm.TotalUsers = len(vm.Rows)
	vm.DataAsOf = conv.FormatLocal(maxActivity)
	return vm
}
