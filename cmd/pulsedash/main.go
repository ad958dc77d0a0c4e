package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/pulsedash/pulsedash/internal/activity"
	"github.com/pulsedash/pulsedash/internal/app"
	"github.com/pulsedash/pulsedash/internal/dashboard"
	"github.com/pulsedash/pulsedash/internal/freshness"
	"github.com/pulsedash/pulsedash/internal/localtime"
	"github.com/pulsedash/pulsedash/internal/observability"
	"github.com/pulsedash/pulsedash/internal/platform/cache"
	"github.com/pulsedash/pulsedash/internal/platform/db"
	"github.com/pulsedash/pulsedash/internal/roster"
	"github.com/pulsedash/pulsedash/internal/view"
	"github.com/pulsedash/pulsedash/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	guard := freshness.NewGuard(cfg.RefreshSecret, cfg.RefreshSecretHash)

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			// The dashboard works single-instance without Redis; fan-out
			// and queued exports are just unavailable.
			logger.Warn("redis unavailable", slog.Any("error", err))
		} else {
			redisClient = client
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	scope := func() activity.Scope {
		return activity.Scope{
			OutcomeID: cfg.OutcomeID,
			UserIDs:   cfg.UserIDs,
			Since:     cutoff.For(time.Now()),
		}
	}

	var provider dashboard.Provider
	supportsDates := false

	switch cfg.DataSource {
	case app.SourceSnapshot:
		var requestExport func(ctx context.Context) error
		if redisClient != nil {
			queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer func() {
				if err := queue.Close(); err != nil {
					logger.Warn("queue close", slog.Any("error", err))
				}
			}()
			requestExport = func(ctx context.Context) error {
				_, err := queue.EnqueueSnapshotExport(ctx, "refresh")
				return err
			}
		}
		provider = dashboard.NewSnapshotProvider(cfg.SnapshotPath, conv, guard, requestExport)

	default:
		// Connecting is deferred to the first fetch and retried after
		// failures, so a database that was down at startup is picked up on
		// the next cache miss or refresh without a restart.
		repo := activity.NewLazyRepository(func(ctx context.Context) (activity.RepositoryPort, error) {
			pool, err := db.Connect(ctx, cfg.ConnectionCandidates())
			if err != nil {
				logger.Error("connect database", slog.Any("error", err))
				return nil, connectFailure(err)
			}
			return activity.NewRepository(pool), nil
		})

		service := activity.NewService(repo, func() (*roster.Roster, error) {
			return roster.Load(cfg.RosterPath)
		}, conv, cfg.Mode(), logger)

		fetch := func(ctx context.Context, sc activity.Scope) (*activity.Report, error) {
			report, err := service.Load(ctx, sc)
			metrics.ObserveFetch(err)
			return report, err
		}

		memo := freshness.NewCache(cfg.CacheTTL, fetch, guard)
		if redisClient != nil {
			broadcast := freshness.NewBroadcast(redisClient, "", logger)
			memo.WithBroadcast(broadcast)
			go broadcast.Listen(ctx, memo.Drop)
		}

		provider = dashboard.NewLiveProvider(memo, scope)
		supportsDates = cfg.Mode() == activity.ModeClient
	}

	handler := dashboard.NewHandler(logger, templates, provider, conv, supportsDates)

	router := app.NewRouter(app.RouterParams{
		Logger:    logger,
		Config:    cfg,
		Dashboard: handler,
		Metrics:   metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("source", cfg.DataSource))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// connectFailure maps a connection failure onto the error the dashboard
// renders: missing credentials and unreachable sources read differently on
// the page.
func connectFailure(err error) error {
	if err == db.ErrNoCandidates {
		return activity.ErrNoCredentials
	}
	return activity.ErrSourceUnavailable
}
