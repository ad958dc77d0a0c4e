// Package jobs defines the background snapshot-export tasks and the worker
// that runs them.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/pulsedash/pulsedash/internal/activity"
	jobmetrics "github.com/pulsedash/pulsedash/internal/jobs"
	"github.com/pulsedash/pulsedash/internal/snapshot"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSnapshotExport re-runs the batch export: fetch, join, write,
	// propagate.
	TaskSnapshotExport = "snapshot:export"
)

// SnapshotExportPayload describes one export request.
type SnapshotExportPayload struct {
	RequestID string `json:"request_id"`
	// Reason records what triggered the export: "cron" or "refresh".
	Reason string `json:"reason"`
}

// NewSnapshotExportTask constructs an Asynq task.
func NewSnapshotExportTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SnapshotExportPayload{
		RequestID: uuid.NewString(),
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSnapshotExport, data), nil
}

// SnapshotExportHandler processes TaskSnapshotExport tasks.
func SnapshotExportHandler(exporter *snapshot.Exporter, scope func() activity.Scope, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SnapshotExportPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("snapshot export requested",
			slog.String("request_id", payload.RequestID),
			slog.String("reason", payload.Reason))
		tracker := metrics.Track(TaskSnapshotExport)
		return tracker.End(exporter.Run(ctx, scope()))
	}
}
