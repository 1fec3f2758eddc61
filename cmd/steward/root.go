package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hyperengineering/steward/internal/action"
	"github.com/hyperengineering/steward/internal/api"
	"github.com/hyperengineering/steward/internal/config"
	"github.com/hyperengineering/steward/internal/conversation"
	"github.com/hyperengineering/steward/internal/dashboard"
	"github.com/hyperengineering/steward/internal/guidance"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/store"
	"github.com/hyperengineering/steward/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "steward",
	Short:        "Steward - personal productivity assistant",
	Long:         "Steward serves the goals, tasks, expenses and assistant API. Subcommands classify text, chat with a running server and migrate the database.",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(migrateCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded")

	logger := newLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)
	slog.Info("logger initialized", "level", cfg.Log.Level, "format", cfg.Log.Format)

	// Opening the store runs pending migrations.
	db, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	classifier, classifierMode := newClassifier(cfg.Classifier)
	slog.Info("classifier initialized", "mode", classifierMode, "model", cfg.Classifier.Model)

	advisor, guidanceMode := newAdvisor(cfg.Guidance)
	slog.Info("guidance initialized", "mode", guidanceMode)

	var wg sync.WaitGroup

	var pending conversation.PendingStore
	var rdb *redis.Client
	if cfg.Session.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			DB:       cfg.Session.RedisDB,
			Password: cfg.Session.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			db.Close()
			return fmt.Errorf("connect redis: %w", err)
		}
		pending = conversation.NewRedisPendingStore(rdb, time.Duration(cfg.Session.PendingTTL))
		slog.Info("pending store initialized", "backend", "redis", "addr", cfg.Session.RedisAddr)
	} else {
		mem := conversation.NewMemoryPendingStore(time.Duration(cfg.Session.PendingTTL))
		pending = mem
		sweeper := worker.NewPendingSweepWorker(mem, time.Duration(cfg.Session.SweepInterval))
		startWorker(ctx, &wg, "pending-sweep", sweeper.Run)
		slog.Info("pending store initialized", "backend", "memory")
	}

	dispatcher := action.NewDispatcher(db)
	dash := dashboard.NewService(db)
	controller := conversation.NewController(classifier, dispatcher, pending, dash, advisor)

	handler := api.NewHandler(db, classifier, dispatcher, controller, dash, api.ServiceInfo{
		Version:    Version,
		Classifier: classifierMode,
		Guidance:   guidanceMode,
		Database:   cfg.Database.Driver,
	})
	routerCfg := api.RouterConfig{
		Tokens:  cfg.Auth.Tokens,
		DevMode: cfg.Auth.DevMode,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		routerCfg.Limiter = api.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
	if cfg.Auth.DevMode {
		slog.Warn("dev mode enabled, requests without a token act as the dev actor")
	}
	router := api.NewRouter(handler, routerCfg)
	slog.Info("router initialized")

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout),
	}

	go func() {
		slog.Info("server starting", "address", addr, "version", Version)
		// ErrServerClosed means Shutdown was called. Anything else is a
		// real failure and triggers shutdown.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout))
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close error", "error", err)
		}
	}
	if err := db.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// openStore opens the configured database and applies migrations.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store.SQLStore, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return store.NewPostgresStore(ctx, cfg.DSN)
	case config.DriverSQLite, "":
		return store.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// newClassifier returns the intent service and the mode reported by /health.
func newClassifier(cfg config.ClassifierConfig) (*intent.Service, string) {
	if !cfg.RemoteEnabled() {
		return intent.NewService(nil), "rules"
	}
	remote := intent.NewZeroShot(intent.ZeroShotConfig{
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Timeout:     time.Duration(cfg.Timeout),
		MaxFailures: cfg.BreakerFailures,
		Cooldown:    time.Duration(cfg.BreakerCooldown),
	})
	return intent.NewService(remote), "remote"
}

// newAdvisor returns the guidance advisor and the mode reported by /health.
func newAdvisor(cfg config.GuidanceConfig) (conversation.Advisor, string) {
	if !cfg.ModelEnabled() {
		return guidance.Rules{}, "rules"
	}
	return guidance.NewOpenAI(cfg.APIKey, cfg.Model, cfg.MaxTokens, time.Duration(cfg.Timeout)), "openai"
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
