package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user in the system
type User struct {
	ID            uuid.UUID    `json:"id"`
	Email         string       `json:"email"`
	ProviderID    *string      `json:"provider_id,omitempty"`
	Name          *string      `json:"name,omitempty"`
	EmailVerified bool         `json:"email_verified"`
	Settings      UserSettings `json:"settings"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// UserSettings holds the profile toggles. Delivery of notifications happens on
// the device; the server only stores the preferences.
type UserSettings struct {
	NotificationsEnabled       bool `json:"notifications_enabled"`
	ReviewNotificationsEnabled bool `json:"review_notifications_enabled"`
}

// DefaultUserSettings enables both notification kinds
func DefaultUserSettings() UserSettings {
	return UserSettings{NotificationsEnabled: true, ReviewNotificationsEnabled: true}
}
