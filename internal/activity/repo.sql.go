package activity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed access to the fact_activity table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FetchAggregated runs the grouped query in the database. The allow-list and
// bounds travel as bound parameters, never interpolated text.
func (r *Repository) FetchAggregated(ctx context.Context, scope Scope) ([]UserAggregate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, COUNT(*) AS assessments_completed, MAX(activity_at) AS last_activity_at
		FROM fact_activity
		WHERE outcome_id = $1
		  AND user_id = ANY($2)
		  AND activity_at >= $3
		GROUP BY user_id
		ORDER BY assessments_completed DESC`,
		scope.OutcomeID, scope.UserIDs, scope.Since)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var aggs []UserAggregate
	for rows.Next() {
		var agg UserAggregate
		if err := rows.Scan(&agg.UserID, &agg.AssessmentsCompleted, &agg.LastActivityAt); err != nil {
			return nil, fmt.Errorf("activity: scan aggregate: %w", err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return aggs, nil
}

// FetchRaw returns the qualifying events in activity order.
func (r *Repository) FetchRaw(ctx context.Context, scope Scope) ([]Event, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, activity_at
		FROM fact_activity
		WHERE outcome_id = $1
		  AND user_id = ANY($2)
		  AND activity_at >= $3
		ORDER BY activity_at`,
		scope.OutcomeID, scope.UserIDs, scope.Since)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.UserID, &ev.ActivityAt); err != nil {
			return nil, fmt.Errorf("activity: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return events, nil
}

// classify folds driver failures into the fetch error taxonomy. Credential
// rejections surface as configuration problems, everything else as the
// source being unavailable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "28P01", "28000": // invalid_password, invalid_authorization_specification
			return fmt.Errorf("%w: %s", ErrNoCredentials, pgErr.Message)
		}
	}
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}
