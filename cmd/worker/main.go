// Package main - фоновый воркер Oqu Study Hub.
//
// Воркер ведёт поминутный мониторинг расписания учебного центра: напоминания
// перед занятием, привязка присутствия в момент старта, оповещения о неявке
// и утренний дайджест расписания. Доставка идёт в Telegram студентам и их
// родителям.
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
	"github.com/oqu-hub/oqu-study-hub/internal/domain/notification"
	"github.com/oqu-hub/oqu-study-hub/internal/domain/presence"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/external/telegram"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/persistence/postgres"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/persistence/redis"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/scheduler"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/scheduler/jobs"
	"github.com/oqu-hub/oqu-study-hub/internal/infrastructure/service"
	"github.com/oqu-hub/oqu-study-hub/pkg/timeutil"
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
	log.Info("starting worker",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"timezone", timeutil.AlmatyTZ.String(),
	)

	if !cfg.Scheduler.Enabled {
		log.Warn("scheduler disabled by configuration, nothing to do")
		return nil
	}

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
	// 4. REDIS (опционально: дедупликация после рестартов)
	// ─────────────────────────────────────────────────────────────────────────
	var guard jobs.DispatchGuard
	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		cache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, restart dedup disabled", "error", err)
		} else {
			defer cache.Close()
			guard = redis.NewReminderGuard(cache)
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
	prefRepo := postgres.NewPreferenceRepository(conn)

	reconciler := presence.NewReconciler(actualRepo, assignedRepo, log)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. ДОСТАВКА УВЕДОМЛЕНИЙ
	// ─────────────────────────────────────────────────────────────────────────
	tgConfig := telegram.DefaultClientConfig(cfg.Telegram.Token)
	tgConfig.Timeout = cfg.Telegram.RequestTimeout
	tgConfig.RetryAttempts = cfg.Telegram.MaxRetries
	tgConfig.RetryDelay = cfg.Telegram.RetryBaseDelay
	tgConfig.Logger = log
	tgClient := telegram.NewClient(tgConfig)

	dispatcher := service.NewDispatcher(
		[]notification.Channel{telegram.NewChannel(tgClient, cfg.Telegram.ParseMode)},
		service.NewPreferenceService(prefRepo),
		log,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. ПЛАНИРОВЩИК
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:     log,
		Timezone:   timeutil.AlmatyTZ,
		JobTimeout: cfg.Scheduler.TickTimeout,
	})

	monitorJob := jobs.NewMonitorTickJob(
		assignedRepo,
		studentRepo,
		guardianRepo,
		reconciler,
		actualRepo,
		dispatcher,
		guard,
		log,
		jobs.MonitorTickConfig{
			ReminderLead: cfg.Scheduler.ReminderLead,
			NoShowDelay:  cfg.Scheduler.NoShowDelay,
		},
	)
	if err := sched.Register(monitorJob, scheduler.NewMinuteSchedule()); err != nil {
		return fmt.Errorf("failed to register monitor job: %w", err)
	}

	digestJob := jobs.NewDailyDigestJob(assignedRepo, studentRepo, guardianRepo, dispatcher, guard, log)
	digestAt := scheduler.NewDailySchedule(cfg.Scheduler.DailyDigestHour, cfg.Scheduler.DailyDigestMinute, timeutil.AlmatyTZ)
	if err := sched.Register(digestJob, digestAt); err != nil {
		return fmt.Errorf("failed to register digest job: %w", err)
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. ОЖИДАНИЕ СИГНАЛА ОСТАНОВКИ
	// ─────────────────────────────────────────────────────────────────────────
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	}

	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("worker stopped")
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
