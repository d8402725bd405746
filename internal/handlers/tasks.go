package handlers

import (
	"net/http"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/benvon/smart-habits/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	svc    HabitService
	logger *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(svc HabitService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers task routes on the given router
// The router should already have the /tasks prefix
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/upcoming", h.Upcoming).Methods("GET")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTask).Methods("POST")
}

// DefaultUpcomingDays is the reminder preview window when none is given
const DefaultUpcomingDays = 7

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title                     string `json:"title" validate:"required,max=200"`
	Category                  string `json:"category" validate:"max=100"`
	ScheduledTime             string `json:"scheduled_time" validate:"required,hhmm"`
	DaysOfWeek                []int  `json:"days_of_week" validate:"required,min=1,max=7,unique,dive,weekday"`
	NotificationMinutesBefore int    `json:"notification_minutes_before" validate:"min=0,max=1440"`
	Color                     string `json:"color" validate:"omitempty,hexcolor"`
	IsActive                  *bool  `json:"is_active,omitempty"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title                     *string `json:"title,omitempty" validate:"omitempty,max=200"`
	Category                  *string `json:"category,omitempty" validate:"omitempty,max=100"`
	ScheduledTime             *string `json:"scheduled_time,omitempty" validate:"omitempty,hhmm"`
	DaysOfWeek                *[]int  `json:"days_of_week,omitempty" validate:"omitempty,min=1,max=7,unique,dive,weekday"`
	NotificationMinutesBefore *int    `json:"notification_minutes_before,omitempty" validate:"omitempty,min=0,max=1440"`
	Color                     *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
	IsActive                  *bool   `json:"is_active,omitempty"`
}

// ToggleTaskRequest optionally pins the active flag; an empty body flips it
type ToggleTaskRequest struct {
	IsActive *bool `json:"is_active,omitempty"`
}

// ListTasks lists the authenticated user's tasks
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	tasks, err := h.svc.ListTasks(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve tasks", err)
		return
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req CreateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	task, err := h.svc.CreateTask(r.Context(), user.ID, habits.TaskInput{
		Title:                     validation.SanitizeText(req.Title),
		Category:                  validation.SanitizeText(req.Category),
		ScheduledTime:             req.ScheduledTime,
		DaysOfWeek:                models.DaysOfWeek(req.DaysOfWeek),
		NotificationMinutesBefore: req.NotificationMinutesBefore,
		Color:                     req.Color,
		IsActive:                  req.IsActive,
	})
	if err != nil {
		respondServiceError(w, h.logger, "create task", err)
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	task, err := h.svc.GetTask(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve task", err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// UpdateTask applies a partial update to a task
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	patch := habits.TaskPatch{
		ScheduledTime:             req.ScheduledTime,
		NotificationMinutesBefore: req.NotificationMinutesBefore,
		Color:                     req.Color,
		IsActive:                  req.IsActive,
	}
	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		patch.Title = &title
	}
	if req.Category != nil {
		category := validation.SanitizeText(*req.Category)
		patch.Category = &category
	}
	if req.DaysOfWeek != nil {
		days := models.DaysOfWeek(*req.DaysOfWeek)
		patch.DaysOfWeek = &days
	}

	task, err := h.svc.UpdateTask(r.Context(), user.ID, id, patch)
	if err != nil {
		respondServiceError(w, h.logger, "update task", err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task and its records
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	if err := h.svc.DeleteTask(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, h.logger, "delete task", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask flips or sets a task's active flag
func (h *TaskHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "task")
	if !ok {
		return
	}

	var req ToggleTaskRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	task, err := h.svc.SetTaskActive(r.Context(), user.ID, id, req.IsActive)
	if err != nil {
		respondServiceError(w, h.logger, "toggle task", err)
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Upcoming previews reminders for the next days
func (h *TaskHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	days, err := request.QueryInt(r, "days", DefaultUpcomingDays)
	if err != nil {
		respondServiceError(w, h.logger, "preview reminders", err)
		return
	}

	occurrences, err := h.svc.Upcoming(r.Context(), user.ID, days)
	if err != nil {
		respondServiceError(w, h.logger, "preview reminders", err)
		return
	}
	respondJSON(w, http.StatusOK, occurrences)
}
