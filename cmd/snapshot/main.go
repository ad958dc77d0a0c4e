// Command snapshot runs one export of the assessments rollup to the CSV
// snapshot, for cron or manual invocation.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/app"
	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/platform/db"
	"github.com/pulsedash/pulsedash/internal/roster"
	"github.com/pulsedash/pulsedash/internal/snapshot"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping export")
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

	scope := activity.Scope{
		OutcomeID: cfg.OutcomeID,
		UserIDs:   cfg.UserIDs,
		Since:     cutoff.For(time.Now()),
	}
	if err := exporter.Run(ctx, scope); err != nil {
		logger.Error("snapshot export", slog.Any("error", err))
		os.Exit(1)
	}
}
