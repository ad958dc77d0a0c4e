package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/localtime"
)

// ErrNotFound reports a missing snapshot file. The file-only dashboard
// renders its explicit no-data state on this.
var ErrNotFound = errors.New("snapshot: file not found")

// Table is a parsed snapshot plus its provenance.
type Table struct {
	Aggregates []activity.UserAggregate
	// UpdatedAt is the snapshot file's modification time, shown as the
	// "data last updated" stamp.
	UpdatedAt time.Time
	Warnings  []string
}

// Read loads and parses a snapshot file.
func Read(path string, conv *localtime.Converter) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("snapshot: stat %s: %w", path, err)
	}

	table, err := parse(f, conv)
	if err != nil {
		return nil, err
	}
	table.UpdatedAt = info.ModTime()
	return table, nil
}

func parse(r io.Reader, conv *localtime.Converter) (*Table, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("snapshot: read header: %w", err)
	}
	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToUpper(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"USER_ID", "ASSESSMENTS_COMPLETED"} {
		if _, ok := idx[required]; !ok {
			return nil, fmt.Errorf("snapshot: missing column %s", required)
		}
	}

	table := &Table{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("snapshot: read row: %w", err)
		}
		agg, warn, err := parseRow(record, idx, conv)
		if err != nil {
			return nil, err
		}
		if warn != "" {
			table.Warnings = append(table.Warnings, warn)
		}
		table.Aggregates = append(table.Aggregates, agg)
	}
	return table, nil
}

func parseRow(record []string, idx map[string]int, conv *localtime.Converter) (activity.UserAggregate, string, error) {
	field := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var agg activity.UserAggregate
	id, err := strconv.ParseInt(field("USER_ID"), 10, 64)
	if err != nil {
		return agg, "", fmt.Errorf("snapshot: bad user id %q: %w", field("USER_ID"), err)
	}
	count, err := strconv.Atoi(field("ASSESSMENTS_COMPLETED"))
	if err != nil {
		return agg, "", fmt.Errorf("snapshot: bad count %q: %w", field("ASSESSMENTS_COMPLETED"), err)
	}
	agg.UserID = id
	agg.AssessmentsCompleted = count
	agg.FullName = field("FULL_NAME")
	agg.LoginID = field("LOGIN_ID")

	raw := field("LAST_ACTIVITY_DATE_EST")
	last, warn := parseLastActivity(raw, conv)
	agg.LastActivityAt = last
	return agg, warn, nil
}

// parseLastActivity accepts the naive local layout first, then a
// zone-qualified value treated as the instant it names. Anything else keeps
// the row with a zero timestamp and surfaces a warning instead of aborting
// the whole table.
func parseLastActivity(raw string, conv *localtime.Converter) (time.Time, string) {
	if raw == "" {
		return time.Time{}, ""
	}
	if t, err := conv.ParseLocal(raw); err == nil {
		return t, ""
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, ""
	}
	return time.Time{}, fmt.Sprintf("unparseable last activity %q; shown without timestamp", raw)
}
