package activity

import (
	"context"
	"sync"
)

// DialFunc establishes the underlying repository, typically by connecting a
// database pool.
type DialFunc func(ctx context.Context) (RepositoryPort, error)

// LazyRepository defers connecting until the first fetch and retries the dial
// on every fetch after a failure, so a data source that was down at startup
// is picked up once it recovers. A successful dial is kept for the life of
// the process.
type LazyRepository struct {
	dial DialFunc

	mu   sync.Mutex
	repo RepositoryPort
}

// NewLazyRepository wraps a dial function.
func NewLazyRepository(dial DialFunc) *LazyRepository {
	return &LazyRepository{dial: dial}
}

func (l *LazyRepository) connect(ctx context.Context) (RepositoryPort, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.repo != nil {
		return l.repo, nil
	}
	repo, err := l.dial(ctx)
	if err != nil {
		return nil, err
	}
	l.repo = repo
	return repo, nil
}

// FetchAggregated connects if needed and delegates.
func (l *LazyRepository) FetchAggregated(ctx context.Context, scope Scope) ([]UserAggregate, error) {
	repo, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FetchAggregated(ctx, scope)
}

// FetchRaw connects if needed and delegates.
func (l *LazyRepository) FetchRaw(ctx context.Context, scope Scope) ([]Event, error) {
	repo, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	return repo.FetchRaw(ctx, scope)
}
