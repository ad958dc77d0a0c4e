// Package db builds the PostgreSQL connection pool.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoCandidates reports that no connection string was configured.
var ErrNoCandidates = errors.New("platform/db: no connection candidates configured")

// Connect tries each candidate DSN in order and returns the first pool that
// answers a ping. When every candidate fails the last underlying error is
// returned; callers report it and render without data.
func Connect(ctx context.Context, candidates []string) (*pgxpool.Pool, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	var lastErr error
	for _, dsn := range candidates {
		pool, err := open(ctx, dsn)
		if err != nil {
			lastErr = err
			continue
		}
		return pool, nil
	}
	return nil, fmt.Errorf("platform/db: all %d connection candidates failed: %w", len(candidates), lastErr)
}

func open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("platform/db: parse config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("platform/db: new pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("platform/db: ping: %w", err)
	}

	return pool, nil
}
