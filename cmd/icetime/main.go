package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fortuna/icetime/internal/api/rest"
	"github.com/fortuna/icetime/internal/api/websocket"
	"github.com/fortuna/icetime/internal/backfill"
	"github.com/fortuna/icetime/internal/cache"
	"github.com/fortuna/icetime/internal/config"
	"github.com/fortuna/icetime/internal/identity"
	"github.com/fortuna/icetime/internal/ingest"
	"github.com/fortuna/icetime/internal/ingest/htmlreport"
	"github.com/fortuna/icetime/internal/ingest/nhl"
	"github.com/fortuna/icetime/internal/metrics"
	"github.com/fortuna/icetime/internal/publisher"
	"github.com/fortuna/icetime/internal/reconciliation"
	"github.com/fortuna/icetime/internal/scheduler"
	"github.com/fortuna/icetime/internal/service"
	"github.com/fortuna/icetime/internal/store"
	"github.com/fortuna/icetime/internal/store/repository"
)

const (
	serviceName    = "icetime"
	serviceVersion = "1.0.0"

	connectAttempts = 30
	connectDelay    = 2 * time.Second
)

func main() {
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting", "service", serviceName, "version", serviceVersion, "shift_source", cfg.ShiftSource)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database
	db, err := store.NewDatabase(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database ready")

	// Redis document cache and stream publisher share one client
	var redisCache *cache.RedisCache
	err = retry(ctx, logger, "redis", func() error {
		var err error
		redisCache, err = cache.NewRedisCache(cfg.RedisURL, cfg.CacheTTL)
		return err
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisCache.Close()
	streamPublisher := publisher.NewRedisStreamPublisher(redisCache.Client())
	logger.Info("redis ready")

	// Upstream clients
	nhlClient := nhl.NewClient(nhl.Config{
		APIBase:         cfg.NHLAPIBase,
		StatsBase:       cfg.NHLStatsBase,
		RequestInterval: cfg.RequestInterval,
	}, logger)
	reports, err := htmlreport.NewClient(htmlreport.Config{
		BaseURL:         cfg.HTMLReportBase,
		Mode:            cfg.HTMLFetchMode,
		RequestInterval: cfg.RequestInterval,
	}, logger)
	if err != nil {
		return fmt.Errorf("create report client: %w", err)
	}
	defer reports.Close()

	dir, err := identity.Load(cfg.IdentityFile)
	if err != nil {
		return fmt.Errorf("load identity tables: %w", err)
	}

	recorder := metrics.NewRecorder()
	wsServer := websocket.NewServer(logger)

	ingester, err := ingest.NewIngester(ingest.Deps{
		Games:         nhlClient,
		Reports:       reports,
		Cache:         redisCache,
		Sink:          repository.NewResultRepository(db),
		Publisher:     streamPublisher,
		Notifier:      wsServer,
		Directory:     dir,
		Engine:        reconciliation.NewEngine(logger),
		Metrics:       recorder,
		ShiftSource:   cfg.ShiftSource,
		FallbackToAPI: cfg.FallbackToAPI,
	}, logger)
	if err != nil {
		return fmt.Errorf("create ingester: %w", err)
	}

	stores := service.NewStores(db)

	// Backfill worker
	runner := backfill.NewRunner(backfill.RunnerDeps{
		Ingester:  ingester,
		Schedules: nhlClient,
		Existing:  stores.Games,
		Metrics:   recorder,
		Workers:   cfg.Workers,
	}, logger)
	backfillService := backfill.NewService(backfill.NewRepository(db), runner, recorder, logger)
	backfillService.Start()
	logger.Info("backfill service started", "workers", cfg.Workers)

	// Nightly scheduler
	var sched *scheduler.Orchestrator
	if cfg.EnableScheduler {
		schedCfg := scheduler.DefaultConfig()
		schedCfg.Teams = cfg.ScheduleTeams
		schedCfg.DailyHour = cfg.ScheduleHour
		schedCfg.Timezone = cfg.ScheduleTimezone
		sched, err = scheduler.NewOrchestrator(nhlClient, backfillService, schedCfg, logger)
		if err != nil {
			return fmt.Errorf("create scheduler: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		if next, err := sched.NextRun(); err == nil {
			logger.Info("scheduler started", "teams", cfg.ScheduleTeams, "next_run", next)
		}
	}

	// REST API
	restServer := rest.NewServer(rest.Config{
		Port:             cfg.RESTPort,
		AllowedOrigins:   cfg.CORSOrigins,
		ScrapesPerMinute: cfg.ScrapesPerMinute,
	}, rest.Deps{
		Games:    service.NewGameService(stores),
		Players:  service.NewPlayerService(stores),
		Scraper:  ingester,
		Backfill: backfillService,
		Checks:   map[string]rest.HealthChecker{"database": db, "redis": redisCache},
		Metrics:  recorder,
	}, logger)

	errs := make(chan error, 2)
	go func() {
		if err := restServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("rest server: %w", err)
		}
	}()
	go func() {
		if err := wsServer.Start(cfg.WSPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- fmt.Errorf("websocket server: %w", err)
		}
	}()
	logger.Info("started",
		"rest", fmt.Sprintf("http://0.0.0.0:%s", cfg.RESTPort),
		"websocket", fmt.Sprintf("ws://0.0.0.0:%s/ws/games", cfg.WSPort))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errs:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(); err != nil {
			logger.Warn("scheduler shutdown", "error", err)
		}
	}
	if err := restServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("rest server shutdown", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("websocket server shutdown", "error", err)
	}
	if err := backfillService.Shutdown(shutdownCtx); err != nil {
		logger.Warn("backfill shutdown", "error", err)
	}
	logger.Info("reconciliation summary", "metrics", ingester.Engine().GetMetrics().Summary())
	return runErr
}

// retry calls connect until it succeeds, the attempts run out or ctx ends.
func retry(ctx context.Context, logger *slog.Logger, name string, connect func() error) error {
	var err error
	for i := 1; i <= connectAttempts; i++ {
		if err = connect(); err == nil {
			return nil
		}
		if i == connectAttempts {
			break
		}
		logger.Warn("connection attempt failed", "target", name, "attempt", i, "of", connectAttempts, "error", err, "retry_in", connectDelay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(connectDelay):
		}
	}
	return err
}
