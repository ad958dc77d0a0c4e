package snapshot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pulsedash/pulsedash/internal/activity"
)

// Exporter runs the batch path: fetch, join, write, propagate.
type Exporter struct {
	service   *activity.Service
	path      string
	publisher Publisher
	logger    *slog.Logger
}

// NewExporter constructs an exporter writing to path.
func NewExporter(service *activity.Service, path string, publisher Publisher, logger *slog.Logger) *Exporter {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Exporter{service: service, path: path, publisher: publisher, logger: logger}
}

// Run performs one export. A failure at any step leaves the previously
// exported snapshot untouched.
func (e *Exporter) Run(ctx context.Context, scope activity.Scope) error {
	runID := uuid.NewString()
	log := e.logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("export_id", runID))

	report, err := e.service.Load(ctx, scope)
	if err != nil {
		return fmt.Errorf("snapshot: export fetch: %w", err)
	}
	for _, warn := range report.Warnings {
		log.Warn(warn)
	}

	if err := Write(e.path, report.Aggregates, e.service.Converter()); err != nil {
		return err
	}
	log.Info("snapshot written",
		slog.String("path", e.path),
		slog.Int("rows", len(report.Aggregates)))

	if err := e.publisher.Publish(ctx, e.path); err != nil {
		return fmt.Errorf("snapshot: propagate: %w", err)
	}
	return nil
}
