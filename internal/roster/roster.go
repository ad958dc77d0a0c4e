// Package roster loads the static user roster file and joins display names
// onto aggregated activity rows.
package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
)

// ErrUnavailable reports that the roster source could not be read. Callers
// degrade to unjoined output instead of failing the pipeline.
var ErrUnavailable = errors.New("roster: source unavailable")

// Entry is one roster row keyed by user id.
type Entry struct {
	UserID   int64
	FullName string
	LoginID  string
}

// Roster maps user ids to their roster entries.
type Roster struct {
	entries map[int64]Entry
	// Duplicates counts rows discarded because their user id was already
	// present. The join key must stay unique or the join fans out.
	Duplicates int
}

// Load reads the roster file. A missing file maps to ErrUnavailable.
func Load(path string) (*Roster, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, path)
		}
		return nil, fmt.Errorf("roster: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads roster rows from a delimited stream with at least the columns
// User_Id, FULL_NAME and LOGIN_ID (header match is case-insensitive).
func Parse(r io.Reader) (*Roster, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("roster: read header: %w", err)
	}
	idx := map[string]int{}
	for i, col := range header {
		idx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	userCol, ok := idx["user_id"]
	if !ok {
		return nil, fmt.Errorf("roster: missing User_Id column")
	}
	nameCol, nameOK := idx["full_name"]
	loginCol, loginOK := idx["login_id"]

	ros := &Roster{entries: make(map[int64]Entry)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster: read row: %w", err)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(record[userCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("roster: bad user id %q: %w", record[userCol], err)
		}
		if _, exists := ros.entries[id]; exists {
			ros.Duplicates++
			continue
		}
		entry := Entry{UserID: id}
		if nameOK && nameCol < len(record) {
			entry.FullName = strings.TrimSpace(record[nameCol])
		}
		if loginOK && loginCol < len(record) {
			entry.LoginID = strings.TrimSpace(record[loginCol])
		}
		ros.entries[id] = entry
	}
	return ros, nil
}

// Lookup returns the entry for a user id.
func (r *Roster) Lookup(id int64) (Entry, bool) {
	if r == nil {
		return Entry{}, false
	}
	entry, ok := r.entries[id]
	return entry, ok
}

// Len reports the number of distinct roster entries.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
