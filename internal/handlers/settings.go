package handlers

import (
	"net/http"

	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SettingsHandler serves the profile notification toggles
type SettingsHandler struct {
	svc    HabitService
	logger *zap.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(svc HabitService, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers settings routes on a router with the /settings prefix
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.GetSettings).Methods("GET")
	r.HandleFunc("", h.UpdateSettings).Methods("PATCH")
}

// UpdateSettingsRequest carries optional toggles
type UpdateSettingsRequest struct {
	NotificationsEnabled       *bool `json:"notifications_enabled,omitempty"`
	ReviewNotificationsEnabled *bool `json:"review_notifications_enabled,omitempty"`
}

// GetSettings returns the user's settings
func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	settings, err := h.svc.GetSettings(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve settings", err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// UpdateSettings applies the provided toggles
func (h *SettingsHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req UpdateSettingsRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	settings, err := h.svc.UpdateSettings(r.Context(), user.ID, habits.SettingsPatch{
		NotificationsEnabled:       req.NotificationsEnabled,
		ReviewNotificationsEnabled: req.ReviewNotificationsEnabled,
	})
	if err != nil {
		respondServiceError(w, h.logger, "update settings", err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}
