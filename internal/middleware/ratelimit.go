package middleware

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	stdlibmw "github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.uber.org/zap"
)

// DefaultRatelimitRate applies when no rate is stored
const DefaultRatelimitRate = "10-S"

// RatelimitConfigSource reads stored rates
type RatelimitConfigSource interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
}

// NewRateLimitStore returns a redis backed store, or an in-process store
// when redisClient is nil
func NewRateLimitStore(redisClient *redis.Client) (limiter.Store, error) {
	if redisClient == nil {
		return memorystore.NewStore(), nil
	}
	return redisstore.NewStoreWithOptions(redisClient, limiter.StoreOptions{
		Prefix: "habits_ratelimit",
	})
}

// RateLimiter limits requests per user (or per client IP before
// authentication) and reloads its rate from the database periodically
type RateLimiter struct {
	store       limiter.Store
	configs     RatelimitConfigSource
	configKey   string
	defaultRate string
	log         *zap.Logger
	interval    time.Duration

	rate atomic.Pointer[limiter.Rate]
}

// NewRateLimiter loads the rate stored under configKey, falling back to defaultRate
func NewRateLimiter(ctx context.Context, store limiter.Store, configs RatelimitConfigSource, configKey, defaultRate string, log *zap.Logger, reloadInterval time.Duration) (*RateLimiter, error) {
	if defaultRate == "" {
		defaultRate = DefaultRatelimitRate
	}
	fallback, err := limiter.NewRateFromFormatted(defaultRate)
	if err != nil {
		return nil, err
	}
	rl := &RateLimiter{
		store:       store,
		configs:     configs,
		configKey:   configKey,
		defaultRate: defaultRate,
		log:         log,
		interval:    reloadInterval,
	}
	rl.rate.Store(&fallback)
	rl.Reload(ctx)
	return rl, nil
}

// Rate returns the rate currently enforced
func (rl *RateLimiter) Rate() limiter.Rate {
	return *rl.rate.Load()
}

// Reload re-reads the stored rate. Failures keep the current rate.
func (rl *RateLimiter) Reload(ctx context.Context) {
	if rl.configs == nil {
		return
	}
	cfg, err := rl.configs.Get(ctx, rl.configKey)
	if err != nil {
		rl.log.Warn("failed_to_load_ratelimit_config",
			zap.Error(err),
			zap.String("config_key", rl.configKey))
		return
	}
	formatted := rl.defaultRate
	if cfg != nil && cfg.Rate != "" {
		formatted = cfg.Rate
	}
	rate, err := limiter.NewRateFromFormatted(formatted)
	if err != nil {
		rl.log.Error("failed_to_parse_rate_limit",
			zap.Error(err),
			zap.String("rate", formatted))
		return
	}
	if current := rl.Rate(); current != rate {
		rl.log.Info("rate_limit_updated",
			zap.String("config_key", rl.configKey),
			zap.String("rate", formatted))
	}
	rl.rate.Store(&rate)
}

// Start reloads the rate every interval until ctx is cancelled
func (rl *RateLimiter) Start(ctx context.Context) {
	if rl.interval <= 0 {
		return
	}
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Reload(ctx)
		}
	}
}

// Middleware enforces the current rate
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			instance := limiter.New(rl.store, rl.Rate())
			mw := stdlibmw.NewMiddleware(instance,
				stdlibmw.WithKeyGetter(rateLimitKey),
				stdlibmw.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
					respondError(w, http.StatusTooManyRequests, "Too Many Requests", "Rate limit exceeded")
				}),
				stdlibmw.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
					// limiter store unavailable; let the request through
					rl.log.Warn("rate_limit_store_error", zap.Error(err))
					next.ServeHTTP(w, r)
				}),
			)
			mw.Handler(next).ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if user := request.UserFromContext(r); user != nil {
		return "user:" + user.ID.String()
	}
	return "ip:" + request.ClientIP(r)
}
