// Package main is the entry point for the workdesk service. It wires
// the stores, the dialogue controller, the background loops, and the
// webhook server together.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/fieldops/workdesk/internal/alert"
	"github.com/fieldops/workdesk/internal/config"
	"github.com/fieldops/workdesk/internal/dialog"
	"github.com/fieldops/workdesk/internal/extract"
	"github.com/fieldops/workdesk/internal/monitor"
	"github.com/fieldops/workdesk/internal/notify"
	"github.com/fieldops/workdesk/internal/observability"
	"github.com/fieldops/workdesk/internal/reminder"
	"github.com/fieldops/workdesk/internal/store"
	"github.com/fieldops/workdesk/internal/transport"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Step 1: Parse CLI flags.
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	// Step 2: Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	// Step 3: Logger and metrics.
	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Step 4: Chat credentials.
	botToken := os.Getenv(cfg.Chat.BotTokenEnv)
	if botToken == "" {
		logger.Error("bot token not set", zap.String("env", cfg.Chat.BotTokenEnv))
		return 1
	}
	webhookSecret := os.Getenv(cfg.Chat.WebhookSecretEnv)
	if webhookSecret == "" {
		logger.Warn("webhook secret not set, secret header check disabled",
			zap.String("env", cfg.Chat.WebhookSecretEnv))
	}

	// Step 5: Stores.
	orderStore, reminderStore, storeCloser, err := buildStores(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store initialization failed", zap.Error(err))
		return 1
	}
	if storeCloser != nil {
		defer storeCloser()
	}

	dedupStore, dedupCloser, err := buildDedupStore(ctx, cfg.Alerts, logger)
	if err != nil {
		logger.Error("dedup store initialization failed", zap.Error(err))
		return 1
	}
	if dedupCloser != nil {
		defer dedupCloser()
	}

	// Step 6: Chat client, scheduler, controller, monitor.
	bot := notify.NewBotClient(cfg.Chat.APIBaseURL, botToken, cfg.Chat.RequestTimeout)

	scheduler := reminder.New(reminderStore, bot, metrics, logger, cfg.Reminders.Grace)
	controller := dialog.NewController(orderStore, scheduler, extract.NewTextExtractor(), metrics, logger)
	deadlineMonitor := monitor.New(orderStore, dedupStore, bot, metrics, logger)

	// Step 7: HTTP router and server.
	readiness := observability.ReadinessChecks{}
	if hc, ok := orderStore.(observability.HealthChecker); ok {
		readiness.OrderStore = hc
	}
	if hc, ok := reminderStore.(observability.HealthChecker); ok {
		readiness.ReminderStore = hc
	}
	if hc, ok := dedupStore.(observability.HealthChecker); ok {
		readiness.DedupStore = hc
	}

	router := transport.NewRouter(transport.Dependencies{
		Controller:     controller,
		Notifier:       bot,
		Fetcher:        bot,
		Logger:         logger,
		Readiness:      readiness,
		BotToken:       botToken,
		WebhookSecret:  webhookSecret,
		MetricsEnabled: cfg.Observability.Metrics.Enabled,
		MetricsPath:    cfg.Observability.Metrics.Path,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Step 8: Background loops.
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	go deadlineMonitor.Run(bgCtx, cfg.Alerts.SweepInterval)
	go scheduler.Run(bgCtx, cfg.Reminders.PollInterval)
	if mem, ok := dedupStore.(*alert.MemoryDedupStore); ok {
		go runDedupSweeper(bgCtx, mem)
	}

	// Step 9: Serve.
	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("store_driver", cfg.Store.Driver),
		zap.String("dedup_driver", cfg.Alerts.DedupDriver),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	// Graceful shutdown: drain requests, then stop the loops.
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	bgCancel()

	logger.Info("shutdown complete")
	return 0
}

// buildStores creates the order and reminder stores per config.
func buildStores(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (store.WorkOrderStore, store.ReminderStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory stores")
		return store.NewMemoryOrderStore(), store.NewMemoryReminderStore(), nil, nil

	case "postgres":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" {
			return nil, nil, nil, fmt.Errorf("store: %s environment variable not set", cfg.DSNEnv)
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("store: parse DSN: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("store: ping: %w", err)
		}

		orders := store.NewPgOrderStore(pool)
		if err := orders.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		logger.Info("using postgres stores")
		return orders, store.NewPgReminderStore(pool), pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
}

// runDedupSweeper drops expired in-memory dedup entries so the map
// does not grow without bound.
func runDedupSweeper(ctx context.Context, s *alert.MemoryDedupStore) {
	ticker := time.NewTicker(6 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// buildDedupStore creates the alert dedup store per config.
func buildDedupStore(ctx context.Context, cfg config.AlertsConfig, logger *zap.Logger) (alert.DedupStore, func(), error) {
	switch cfg.DedupDriver {
	case "memory":
		logger.Info("using in-memory alert dedup store")
		return alert.NewMemoryDedupStore(), nil, nil

	case "redis":
		addr := os.Getenv(cfg.RedisAddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("alert dedup: %s environment variable not set", cfg.RedisAddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("alert dedup: redis ping: %w", err)
		}
		logger.Info("using redis alert dedup store", zap.String("addr", addr))
		closer := func() { client.Close() }
		return alert.NewRedisDedupStore(client), closer, nil

	default:
		return nil, nil, fmt.Errorf("unsupported alert dedup driver: %q", cfg.DedupDriver)
	}
}
