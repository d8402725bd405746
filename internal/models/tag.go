package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTagNameLength bounds tag names
const MaxTagNameLength = 64

// UserTag is a user-defined failure reason.
// UsageCount is derived: only the tag usage tracker mutates it.
type UserTag struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	UsageCount int       `json:"usage_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NormalizeTagName trims the name and rejects empty or oversized names
func NormalizeTagName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewValidationError("name", "must not be empty")
	}
	if len(name) > MaxTagNameLength {
		return "", NewValidationError("name", "is too long")
	}
	return name, nil
}
