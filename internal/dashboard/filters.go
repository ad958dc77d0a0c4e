package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/localtime"
)

// Filters are the per-request display filters. They only shape the rendered
// view; the cached report is never mutated.
type Filters struct {
	Name     string `validate:"max=200"`
	Login    string `validate:"max=200"`
	MinCount int    `validate:"gte=0"`
	From     string `validate:"omitempty,datetime=2006-01-02"`
	To       string `validate:"omitempty,datetime=2006-01-02"`
}

func parseFilters(q url.Values, validate *validator.Validate) (Filters, error) {
	f := Filters{
		Name:  strings.TrimSpace(q.Get("name")),
		Login: strings.TrimSpace(q.Get("login")),
		From:  strings.TrimSpace(q.Get("from")),
		To:    strings.TrimSpace(q.Get("to")),
	}
	if raw := strings.TrimSpace(q.Get("min")); raw != "" {
		min, err := strconv.Atoi(raw)
		if err != nil {
			return f, fmt.Errorf("dashboard: minimum count %q is not a number", raw)
		}
		f.MinCount = min
	}
	// A single date filters that one day.
	if f.From != "" && f.To == "" {
		f.To = f.From
	}
	if err := validate.Struct(f); err != nil {
		return f, fmt.Errorf("dashboard: invalid filters: %w", err)
	}
	if _, err := f.DateFilter(); err != nil {
		return f, err
	}
	return f, nil
}

// DateFilter converts the date bounds. Validation already guaranteed the
// layout, so parse errors cannot occur here.
func (f Filters) DateFilter() (activity.DateFilter, error) {
	var df activity.DateFilter
	if f.From != "" {
		from, err := time.Parse(localtime.DateLayout, f.From)
		if err != nil {
			return df, err
		}
		df.From = from
	}
	if f.To != "" {
		to, err := time.Parse(localtime.DateLayout, f.To)
		if err != nil {
			return df, err
		}
		df.To = to
	}
	if !df.From.IsZero() && !df.To.IsZero() && df.To.Before(df.From) {
		return df, fmt.Errorf("dashboard: date range ends before it starts")
	}
	return df, nil
}

// Match applies the substring and minimum-count filters to one row.
// Substring matches are case-insensitive.
func (f Filters) Match(agg activity.UserAggregate) bool {
	if agg.AssessmentsCompleted < f.MinCount {
		return false
	}
	if f.Name != "" && !containsFold(agg.FullName, f.Name) {
		return false
	}
	if f.Login != "" && !containsFold(agg.LoginID, f.Login) {
		return false
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
