package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benvon/smart-habits/internal/config"
	"github.com/benvon/smart-habits/internal/database"
	"github.com/benvon/smart-habits/internal/handlers"
	"github.com/benvon/smart-habits/internal/logger"
	"github.com/benvon/smart-habits/internal/middleware"
	"github.com/benvon/smart-habits/internal/queue"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/benvon/smart-habits/internal/services/oidc"
	"github.com/benvon/smart-habits/internal/telemetry"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Set at build time with -ldflags "-X main.version=..."
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	devFlag := flag.Bool("dev", false, "Use the human readable development logger")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag
	zapLogger, err := logger.New(debugMode, *devFlag)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync(zapLogger) }()

	zapLogger.Info("starting_server",
		zap.String("version", version),
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("frontend_url", cfg.FrontendURL),
		zap.String("timezone", cfg.Location().String()),
		zap.Bool("auth_enabled", cfg.AuthEnabled()),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing := false
	if cfg.OTELEnabled {
		tp, err := telemetry.InitTracer(ctx, telemetry.Options{
			ServiceVersion: version,
			Endpoint:       cfg.OTELEndpoint,
		})
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracing = true
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
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
	if err := db.Migrate(ctx); err != nil {
		zapLogger.Fatal("failed_to_migrate_database", zap.Error(err))
	}
	zapLogger.Info("connected_to_database", zap.String("dialect", string(db.Dialect())))

	healthChecker := handlers.NewHealthChecker(db)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			zapLogger.Fatal("invalid_redis_url", zap.Error(err))
		}
		redisClient = redis.NewClient(opts)
		defer func() {
			if err := redisClient.Close(); err != nil {
				zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
			}
		}()
		healthChecker.AddCheck("redis", handlers.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
		zapLogger.Info("connected_to_redis")
	} else {
		zapLogger.Warn("redis_not_configured_using_memory_rate_limit_store")
	}

	taskRepo := database.NewTaskRepository(db)
	tagRepo := database.NewTagRepository(db)
	recordRepo := database.NewRecordRepository(db)
	userRepo := database.NewUserRepository(db)
	ratelimitRepo := database.NewRatelimitConfigRepository(db)

	serviceOpts := []habits.Option{
		habits.WithLocation(cfg.Location()),
		habits.WithLogger(zapLogger),
	}

	if cfg.RabbitMQURL != "" {
		jobQueue, err := queue.ConnectRabbitMQ(ctx, cfg.RabbitMQURL, 0, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_rabbitmq", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Close(); err != nil {
				zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
			}
		}()
		healthChecker.AddCheck("queue", jobQueue)

		var pubOpts []queue.PublisherOption
		if redisClient != nil {
			pubOpts = append(pubOpts, queue.WithDebouncer(queue.NewRedisDebouncer(redisClient)))
		}
		publisher := queue.NewRecountPublisher(jobQueue, cfg.RecountDelay, zapLogger, pubOpts...)
		serviceOpts = append(serviceOpts, habits.WithRecountScheduler(publisher))
	} else {
		zapLogger.Warn("rabbitmq_not_configured_tag_recounts_disabled")
	}

	service := habits.NewService(taskRepo, tagRepo, recordRepo, userRepo, serviceOpts...)

	var verifier middleware.TokenVerifier
	if cfg.AuthEnabled() {
		jwks := oidc.NewJWKSManager(&http.Client{Timeout: 10 * time.Second}, oidc.DefaultJWKSTTL)
		verifier = oidc.NewVerifier(jwks, cfg.OIDCJWKSURL, cfg.OIDCIssuer, cfg.OIDCAudience)
	} else {
		zapLogger.Warn("auth_disabled_serving_local_user")
	}

	store, err := middleware.NewRateLimitStore(redisClient)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limit_store", zap.Error(err))
	}
	rateLimiter, err := middleware.NewRateLimiter(ctx, store, ratelimitRepo,
		database.DefaultRatelimitConfigKey, cfg.RatelimitDefault, zapLogger, cfg.RatelimitReload)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}
	go rateLimiter.Start(ctx)

	router := newRouter(routerDeps{
		logger:      zapLogger,
		service:     service,
		users:       userRepo,
		verifier:    verifier,
		rateLimiter: rateLimiter,
		health:      healthChecker,
		version:     handlers.VersionInfo{Version: version, Commit: commit, BuildTime: buildTime},
		frontendURL: cfg.FrontendURL,
		enableHSTS:  cfg.EnableHSTS,
		tracing:     tracing,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      requestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Error("server_failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zapLogger.Info("server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}
