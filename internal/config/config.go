package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ulule/limiter/v3"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string        `yaml:"database_url"`
	ServerPort       string        `yaml:"server_port"`
	FrontendURL      string        `yaml:"frontend_url"`
	EnableHSTS       bool          `yaml:"enable_hsts"`
	OIDCIssuer       string        `yaml:"oidc_issuer"`
	OIDCJWKSURL      string        `yaml:"oidc_jwks_url"`
	OIDCAudience     string        `yaml:"oidc_audience"`
	RedisURL         string        `yaml:"redis_url"`
	RabbitMQURL      string        `yaml:"rabbitmq_url"`
	RabbitMQPrefetch int           `yaml:"rabbitmq_prefetch"`
	Timezone         string        `yaml:"timezone"`
	RecountSchedule  string        `yaml:"recount_schedule"`
	RecountDelay     time.Duration `yaml:"recount_delay"`
	RatelimitDefault string        `yaml:"ratelimit_default"`
	RatelimitReload  time.Duration `yaml:"ratelimit_reload"`
	WorkerDebugMode  bool          `yaml:"worker_debug_mode"`
	ServerDebugMode  bool          `yaml:"server_debug_mode"`
	OTELEnabled      bool          `yaml:"otel_enabled"`
	OTELEndpoint     string        `yaml:"otel_endpoint"`

	location *time.Location
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		ServerPort:       "8080",
		FrontendURL:      "http://localhost:3000",
		RabbitMQPrefetch: 1,
		Timezone:         "UTC",
		RecountSchedule:  "0 3 * * *",
		RecountDelay:     30 * time.Second,
		RatelimitDefault: "10-S",
		RatelimitReload:  time.Minute,
	}
}

// Load reads configuration: defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables
func Load() (*Config, error) {
	return load(os.LookupEnv)
}

type lookupFunc func(key string) (string, bool)

func load(lookup lookupFunc) (*Config, error) {
	cfg := Defaults()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.overlayYAML(data, lookup); err != nil {
			return nil, err
		}
	}

	env := envReader{lookup: lookup}
	env.str("DATABASE_URL", &cfg.DatabaseURL)
	env.str("SERVER_PORT", &cfg.ServerPort)
	env.str("FRONTEND_URL", &cfg.FrontendURL)
	env.boolean("ENABLE_HSTS", &cfg.EnableHSTS)
	env.str("OIDC_ISSUER", &cfg.OIDCIssuer)
	env.str("OIDC_JWKS_URL", &cfg.OIDCJWKSURL)
	env.str("OIDC_AUDIENCE", &cfg.OIDCAudience)
	env.str("REDIS_URL", &cfg.RedisURL)
	env.str("RABBITMQ_URL", &cfg.RabbitMQURL)
	env.integer("RABBITMQ_PREFETCH", &cfg.RabbitMQPrefetch)
	env.str("HABITS_TIMEZONE", &cfg.Timezone)
	env.str("RECOUNT_SCHEDULE", &cfg.RecountSchedule)
	env.duration("RECOUNT_DELAY", &cfg.RecountDelay)
	env.str("RATELIMIT_DEFAULT", &cfg.RatelimitDefault)
	env.duration("RATELIMIT_RELOAD", &cfg.RatelimitReload)
	env.boolean("WORKER_DEBUG_MODE", &cfg.WorkerDebugMode)
	env.boolean("SERVER_DEBUG_MODE", &cfg.ServerDebugMode)
	env.boolean("OTEL_ENABLED", &cfg.OTELEnabled)
	env.str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.OTELEndpoint)
	if env.err != nil {
		return nil, env.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// overlayYAML applies a YAML document, substituting ${VAR} placeholders
// from the environment first. Unset variables become empty strings.
func (c *Config) overlayYAML(data []byte, lookup lookupFunc) error {
	expanded := placeholder.ReplaceAllStringFunc(string(data), func(m string) string {
		value, _ := lookup(placeholder.FindStringSubmatch(m)[1])
		return value
	})
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// Validate checks required keys and parses the derived values
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid HABITS_TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc
	if _, err := cron.ParseStandard(c.RecountSchedule); err != nil {
		return fmt.Errorf("invalid RECOUNT_SCHEDULE %q: %w", c.RecountSchedule, err)
	}
	if _, err := limiter.NewRateFromFormatted(c.RatelimitDefault); err != nil {
		return fmt.Errorf("invalid RATELIMIT_DEFAULT %q: %w", c.RatelimitDefault, err)
	}
	if c.RabbitMQPrefetch < 1 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be at least 1")
	}
	if (c.OIDCIssuer == "") != (c.OIDCJWKSURL == "") {
		return fmt.Errorf("OIDC_ISSUER and OIDC_JWKS_URL must be set together")
	}
	return nil
}

// RequireQueue reports an error when no RabbitMQ URL is configured
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}
	return nil
}

// Location is the calendar used to decide dates, "today" and task creation days
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// AuthEnabled reports whether bearer tokens are verified
func (c *Config) AuthEnabled() bool {
	return c.OIDCIssuer != "" && c.OIDCJWKSURL != ""
}

// envReader overrides config fields from set, non-empty variables and
// keeps the first parse error
type envReader struct {
	lookup lookupFunc
	err    error
}

func (e *envReader) get(key string) (string, bool) {
	value, ok := e.lookup(key)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

func (e *envReader) str(key string, dst *string) {
	if value, ok := e.get(key); ok {
		*dst = value
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if value, ok := e.get(key); ok {
		*dst = value == "true" || value == "1" || value == "yes"
	}
}

func (e *envReader) integer(key string, dst *int) {
	value, ok := e.get(key)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.err = fmt.Errorf("invalid %s %q: must be an integer", key, value)
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	value, ok := e.get(key)
	if !ok || e.err != nil {
		return
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		e.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
		return
	}
	*dst = d
}
