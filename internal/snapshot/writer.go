// Package snapshot persists the aggregated, joined activity table to a flat
// file for dashboards with no live database access.
package snapshot

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/localtime"
)

// Header is the snapshot column layout. LAST_ACTIVITY_DATE_EST carries a
// naive local timestamp string at seconds granularity.
var Header = []string{"USER_ID", "FULL_NAME", "LOGIN_ID", "ASSESSMENTS_COMPLETED", "LAST_ACTIVITY_DATE_EST"}

// Write serializes the aggregates to path. The file is written to a
// temporary sibling and renamed into place, so readers never observe a
// half-written snapshot and a failed write leaves the previous one intact.
func Write(path string, aggs []activity.UserAggregate, conv *localtime.Converter) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("snapshot: create temp: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	writer := csv.NewWriter(tmp)
	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("snapshot: write header: %w", err)
	}
	for _, agg := range aggs {
		row := []string{
			strconv.FormatInt(agg.UserID, 10),
			agg.FullName,
			agg.LoginID,
			strconv.Itoa(agg.AssessmentsCompleted),
			conv.FormatLocal(agg.LastActivityAt),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("snapshot: write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("snapshot: flush: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("snapshot: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("snapshot: close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("snapshot: replace %s: %w", path, err)
	}
	return nil
}
