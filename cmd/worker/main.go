package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/app"
	jobmetrics "github.com/pulsedash/pulsedash/internal/jobs"
	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/platform/db"
	"github.com/pulsedash/pulsedash/internal/roster"
	"github.com/pulsedash/pulsedash/internal/snapshot"
	"github.com/pulsedash/pulsedash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	conv, err := localtime.NewConverter(cfg.LocalZone)
	if err != nil {
		logger.Error("load display zone", slog.Any("error", err))
		os.Exit(1)
	}
	cutoff, err := cfg.Cutoff(conv)
	if err != nil {
		logger.Error("build cutoff", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.Connect(ctx, cfg.ConnectionCandidates())
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	service := activity.NewService(activity.NewRepository(pool), func() (*roster.Roster, error) {
		return roster.Load(cfg.RosterPath)
	}, conv, cfg.Mode(), logger)

	var publisher snapshot.Publisher
	if cfg.PublishDir != "" {
		publisher = snapshot.DirPublisher{Dir: cfg.PublishDir}
	}
	exporter := snapshot.NewExporter(service, cfg.SnapshotPath, publisher, logger)

	scope := func() activity.Scope {
		return activity.Scope{
			OutcomeID: cfg.OutcomeID,
			UserIDs:   cfg.UserIDs,
			Since:     cutoff.For(time.Now()),
		}
	}

	metrics := jobmetrics.NewMetrics(nil)

	cronTask, err := jobs.NewSnapshotExportTask("cron")
	if err != nil {
		logger.Error("build export task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskSnapshotExport, Handler: jobs.SnapshotExportHandler(exporter, scope, metrics, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.ExportCron, Task: cronTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
