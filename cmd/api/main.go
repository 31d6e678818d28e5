// Package main - HTTP API Oqu Study Hub.
//
// API принимает события присутствия от бота учебной комнаты, отдаёт текущий
// статус студента (занимается / отсутствует / нет занятия) и предоставляет
// административные операции над расписанием.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oqu-hub/oqu-study-hub/config"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/monitoring"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/schedule"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/persistence/postgres"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/persistence/redis"
	httpserver "github.com/oqu-hub/oqu-study-hub/internal/interface/http"
	"github.com/oqu-hub/oqu-study-hub/internal/interface/http/handlers"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. КОНФИГУРАЦИЯ
	// ─────────────────────────────────────────────────────────────────────────
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ЛОГИРОВАНИЕ
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting API",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"addr", cfg.HTTP.Addr,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. POSTGRESQL + МИГРАЦИИ
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	conn, err := postgres.NewConnection(ctx, cfg.Database.URL, postgres.PoolSettings{
		MaxConns:        int32(cfg.Database.MaxOpenConns),
		MinConns:        int32(cfg.Database.MaxIdleConns),
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close()

	log.Info("running database migrations...")
	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (опционально: живое зеркало присутствия)
	// ─────────────────────────────────────────────────────────────────────────
	var cache *redis.Cache
	var tracker *redis.PresenceTracker
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err = redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, live presence disabled", "error", err)
			cache = nil
		} else {
			defer cache.Close()
			tracker = redis.NewPresenceTracker(cache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. РЕПОЗИТОРИИ И ДОМЕННЫЕ СЕРВИСЫ
	// ─────────────────────────────────────────────────────────────────────────
	assignedRepo := postgres.NewAssignedRepository(conn)
	actualRepo := postgres.NewActualRepository(conn)
	studentRepo := postgres.NewStudentRepository(conn)
	guardianRepo := postgres.NewGuardianRepository(conn)
	activityRepo := postgres.NewActivityRepository(conn)
	prefRepo := postgres.NewPreferenceRepository(conn)

	reconciler := presence.NewReconciler(actualRepo, assignedRepo, log)
	scheduleService := schedule.NewService(assignedRepo, studentRepo, activityRepo, reconciler, log)
	resolver := monitoring.NewStatusResolver(assignedRepo, actualRepo)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. HTTP СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	healthChecks := map[string]handlers.Pinger{"postgres": conn}
	if cache != nil {
		healthChecks["redis"] = cache
	}

	// *redis.PresenceTracker в nil-состоянии не должен попасть в интерфейс
	// ненулевым, поэтому связывание явное.
	var liveTracker handlers.LiveTracker
	var liveReader handlers.LiveReader
	if tracker != nil {
		liveTracker = tracker
		liveReader = tracker
	}

	server := httpserver.NewServer(
		httpserver.Config{
			Addr:           cfg.HTTP.Addr,
			ReadTimeout:    cfg.HTTP.ReadTimeout,
			WriteTimeout:   cfg.HTTP.WriteTimeout,
			IdleTimeout:    cfg.HTTP.IdleTimeout,
			RequestTimeout: httpserver.DefaultConfig().RequestTimeout,
		},
		httpserver.Dependencies{
			Webhook:     handlers.NewPresenceWebhookHandler(reconciler, liveTracker, cfg.HTTP.PresenceSecret, log),
			Status:      handlers.NewStatusHandler(resolver, liveReader),
			Assignments: handlers.NewAssignmentHandler(scheduleService),
			Students:    handlers.NewStudentHandler(studentRepo, guardianRepo, activityRepo, prefRepo),
			Health:      handlers.NewHealthHandler(healthChecks),
			Logger:      log,
		},
	)

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ОЖИДАНИЕ СИГНАЛА ОСТАНОВКИ
	// ─────────────────────────────────────────────────────────────────────────
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}

	log.Info("API stopped")
	return nil
}

// setupLogger builds the slog logger from the observability settings.
func setupLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Observability.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
