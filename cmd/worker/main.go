package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-habits/internal/config"
	"github.com/benvon/smart-habits/internal/database"
	"github.com/benvon/smart-habits/internal/logger"
	"github.com/benvon/smart-habits/internal/queue"
	"github.com/benvon/smart-habits/internal/telemetry"
	"github.com/benvon/smart-habits/internal/workers"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const (
	dlqGCInterval  = time.Hour
	dlqGCRetention = 7 * 24 * time.Hour
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	devFlag := flag.Bool("dev", false, "Use the human readable development logger")
	noCron := flag.Bool("no-cron", false, "Do not schedule the nightly recount from this instance")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireQueue(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	debugMode := cfg.WorkerDebugMode || *debugFlag
	zapLogger, err := logger.New(debugMode, *devFlag)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
		zap.String("recount_schedule", cfg.RecountSchedule),
		zap.String("timezone", cfg.Location().String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.Options{
			ServiceName: telemetry.ServiceName + "-worker",
			Endpoint:    cfg.OTELEndpoint,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := telemetry.Shutdown(shutdownCtx, tp); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	jobQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, 0, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
		}
	}()

	tagRepo := database.NewTagRepository(db)
	userRepo := database.NewUserRepository(db)

	if !*noCron {
		publisher := queue.NewRecountPublisher(jobQueue, cfg.RecountDelay, zapLogger)
		scheduler, err := workers.NewNightlyScheduler(cfg.RecountSchedule, cfg.Location(), userRepo, publisher, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_create_nightly_scheduler", zap.Error(err))
		}
		scheduler.Start()
		defer scheduler.Stop()
		zapLogger.Info("nightly_recount_scheduler_started")
	}

	dlqGC := queue.NewGarbageCollector(jobQueue, dlqGCInterval, dlqGCRetention, zapLogger)
	go func() {
		if err := dlqGC.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("dlq_garbage_collector_stopped", zap.Error(err))
		}
	}()

	recounter := workers.NewRecounter(tagRepo, jobQueue, zapLogger)
	if err := recounter.Run(ctx, cfg.RabbitMQPrefetch); err != nil {
		zapLogger.Error("worker_stopped_with_error", zap.Error(err))
		return
	}

	zapLogger.Info("worker_stopped")
}
