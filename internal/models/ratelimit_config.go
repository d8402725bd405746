package models

import (
	"strings"
	"time"

	"github.com/ulule/limiter/v3"
)

// RatelimitConfig is a stored API rate limit in limiter formatted form ("5-S", "100-M", "1000-H")
type RatelimitConfig struct {
	ConfigKey string    `json:"config_key"`
	Rate      string    `json:"rate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks that Rate parses as a limiter rate
func (c *RatelimitConfig) Validate() error {
	rate := strings.TrimSpace(c.Rate)
	if rate == "" {
		return NewValidationError("rate", "must not be empty")
	}
	if _, err := limiter.NewRateFromFormatted(rate); err != nil {
		return NewValidationError("rate", err.Error())
	}
	return nil
}
