package handlers

import (
	"net/http"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// DayHandler serves the reconciled day views and statistics
type DayHandler struct {
	svc    HabitService
	logger *zap.Logger
}

// NewDayHandler creates a new day handler
func NewDayHandler(svc HabitService, logger *zap.Logger) *DayHandler {
	return &DayHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers /days and /stats on the API router
func (h *DayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/days/today", h.Today).Methods("GET")
	r.HandleFunc("/days/{date}", h.Day).Methods("GET")
	r.HandleFunc("/stats", h.Stats).Methods("GET")
	r.HandleFunc("/stats/weekly", h.Weekly).Methods("GET")
}

// Today reconciles the current date
func (h *DayHandler) Today(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	view, err := h.svc.TodayView(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve day", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Day reconciles the date in the path
func (h *DayHandler) Day(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	date, err := models.ParseDate(mux.Vars(r)["date"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	view, err := h.svc.Day(r.Context(), user.ID, date)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve day", err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// Stats returns aggregate statistics through ?as_of= (default today)
func (h *DayHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	asOf, err := request.QueryDate(r, "as_of")
	if err != nil {
		respondServiceError(w, h.logger, "compute statistics", err)
		return
	}

	stats, err := h.svc.Stats(r.Context(), user.ID, asOf)
	if err != nil {
		respondServiceError(w, h.logger, "compute statistics", err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// Weekly returns the seven days ending at ?as_of= (default today)
func (h *DayHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	asOf, err := request.QueryDate(r, "as_of")
	if err != nil {
		respondServiceError(w, h.logger, "compute weekly summary", err)
		return
	}

	weekly, err := h.svc.Weekly(r.Context(), user.ID, asOf)
	if err != nil {
		respondServiceError(w, h.logger, "compute weekly summary", err)
		return
	}
	respondJSON(w, http.StatusOK, weekly)
}
