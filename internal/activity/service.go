package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/roster"
)

// RosterLoader supplies the roster used for the display-name join.
type RosterLoader func() (*roster.Roster, error)

// Report is the fetched, joined result the cache and presentation layers
// consume. Events are retained only in client-side aggregation mode so the
// date-range filter can re-group without a new query.
type Report struct {
	Aggregates []UserAggregate
	Events     []Event
	FetchedAt  time.Time
	Warnings   []string
}

// Service coordinates fetching, aggregation and the roster join.
type Service struct {
	repo       RepositoryPort
	loadRoster RosterLoader
	conv       *localtime.Converter
	mode       Mode
	logger     *slog.Logger
	now        func() time.Time
}

// NewService wires a repository with the roster loader and converter.
func NewService(repo RepositoryPort, loadRoster RosterLoader, conv *localtime.Converter, mode Mode, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		loadRoster: loadRoster,
		conv:       conv,
		mode:       mode,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Mode reports the configured aggregation mode.
func (s *Service) Mode() Mode {
	return s.mode
}

// Converter exposes the display-zone converter.
func (s *Service) Converter() *localtime.Converter {
	return s.conv
}

// Load fetches the scoped activity, aggregates it according to the mode and
// left-joins roster names. Fetch failures abort the load; roster failures
// degrade to unjoined rows with a warning.
func (s *Service) Load(ctx context.Context, scope Scope) (*Report, error) {
	report := &Report{FetchedAt: s.now().UTC()}

	switch s.mode {
	case ModeClient:
		events, err := s.repo.FetchRaw(ctx, scope)
		if err != nil {
			return nil, err
		}
		report.Events = events
		report.Aggregates = Aggregate(events, DateFilter{}, s.conv)
	default:
		aggs, err := s.repo.FetchAggregated(ctx, scope)
		if err != nil {
			return nil, err
		}
		report.Aggregates = aggs
	}

	s.join(report)
	return report, nil
}

// join resolves display names. Every aggregate row survives whether or not
// the roster knows the user.
func (s *Service) join(report *Report) {
	ros, err := s.loadRoster()
	if err != nil {
		if errors.Is(err, roster.ErrUnavailable) {
			s.warn(report, "roster unavailable; showing user ids without names")
			return
		}
		s.warn(report, fmt.Sprintf("roster load failed: %v", err))
		return
	}
	if ros.Duplicates > 0 {
		s.warn(report, fmt.Sprintf("roster contains %d duplicate user id(s); first entry kept", ros.Duplicates))
	}
	for i := range report.Aggregates {
		if entry, ok := ros.Lookup(report.Aggregates[i].UserID); ok {
			report.Aggregates[i].FullName = entry.FullName
			report.Aggregates[i].LoginID = entry.LoginID
		}
	}
}

func (s *Service) warn(report *Report, msg string) {
	report.Warnings = append(report.Warnings, msg)
	if s.logger != nil {
		s.logger.Warn(msg)
	}
}

// Reaggregate rebuilds the per-user rollup from the report's retained events
// for the given date filter, carrying the already-joined names over. Reports
// built in source mode have no events and return their aggregates unchanged.
func (r *Report) Reaggregate(filter DateFilter, conv *localtime.Converter) []UserAggregate {
	if r == nil {
		return nil
	}
	if filter.Empty() || len(r.Events) == 0 {
		return r.Aggregates
	}
	aggs := Aggregate(r.Events, filter, conv)
	names := make(map[int64]UserAggregate, len(r.Aggregates))
	for _, agg := range r.Aggregates {
		names[agg.UserID] = agg
	}
	for i := range aggs {
		if joined, ok := names[aggs[i].UserID]; ok {
			aggs[i].FullName = joined.FullName
			aggs[i].LoginID = joined.LoginID
		}
	}
	return aggs
}
