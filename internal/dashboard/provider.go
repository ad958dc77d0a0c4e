package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/freshness"
	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/snapshot"
)

// ErrRefreshUnsupported reports that the deployment has no way to produce a
// new snapshot: the credential was correct, but no export backend is wired.
var ErrRefreshUnsupported = errors.New("dashboard: no export backend for refresh")

// Provider supplies the report behind the dashboard. The two deployment
// variants — live database with a freshness cache, and file-only reading the
// exported snapshot — sit behind this interface.
type Provider interface {
	Fetch(ctx context.Context) (*activity.Report, time.Time, error)
	// Refresh performs the credential-gated manual refresh.
	Refresh(ctx context.Context, credential string) error
}

// LiveProvider serves from the freshness cache over the database.
type LiveProvider struct {
	cache *freshness.Cache
	// scope is evaluated per fetch so a rolling cutoff tracks the clock.
	scope func() activity.Scope
}

// NewLiveProvider wires the cache with a scope factory.
func NewLiveProvider(cache *freshness.Cache, scope func() activity.Scope) *LiveProvider {
	return &LiveProvider{cache: cache, scope: scope}
}

// Fetch returns the cached or freshly fetched report.
func (p *LiveProvider) Fetch(ctx context.Context) (*activity.Report, time.Time, error) {
	return p.cache.GetOrFetch(ctx, p.scope())
}

// Refresh invalidates the cache so the next render refetches.
func (p *LiveProvider) Refresh(ctx context.Context, credential string) error {
	return p.cache.Invalidate(ctx, credential)
}

// SnapshotProvider serves the exported snapshot file with no database
// access. The file is re-read every render; its modification time doubles as
// the freshness stamp.
type SnapshotProvider struct {
	path  string
	conv  *localtime.Converter
	guard *freshness.Guard
	// requestExport triggers a new export on an authorized refresh; nil
	// makes refresh report ErrRefreshUnsupported instead of claiming
	// success without exporting anything.
	requestExport func(ctx context.Context) error
}

// NewSnapshotProvider builds a file-backed provider.
func NewSnapshotProvider(path string, conv *localtime.Converter, guard *freshness.Guard, requestExport func(ctx context.Context) error) *SnapshotProvider {
	return &SnapshotProvider{path: path, conv: conv, guard: guard, requestExport: requestExport}
}

// Fetch reads and parses the snapshot.
func (p *SnapshotProvider) Fetch(ctx context.Context) (*activity.Report, time.Time, error) {
	table, err := snapshot.Read(p.path, p.conv)
	if err != nil {
		return nil, time.Time{}, err
	}
	report := &activity.Report{
		Aggregates: table.Aggregates,
		FetchedAt:  table.UpdatedAt,
		Warnings:   table.Warnings,
	}
	return report, table.UpdatedAt, nil
}

// Refresh verifies the credential and requests a fresh export.
func (p *SnapshotProvider) Refresh(ctx context.Context, credential string) error {
	if err := p.guard.Verify(credential); err != nil {
		return err
	}
	if p.requestExport == nil {
		return ErrRefreshUnsupported
	}
	return p.requestExport(ctx)
}
