package activity

import "context"

// RepositoryPort defines data access against the activity fact table.
type RepositoryPort interface {
	// FetchAggregated groups in the data source, ordered by count descending.
	FetchAggregated(ctx context.Context, scope Scope) ([]UserAggregate, error)
	// FetchRaw returns qualifying events in activity order for in-process
	// aggregation.
	FetchRaw(ctx context.Context, scope Scope) ([]Event, error)
}
