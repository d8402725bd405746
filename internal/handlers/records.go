package handlers

import (
	"net/http"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RecordHandler handles recording outcomes and the history view
type RecordHandler struct {
	svc    HabitService
	logger *zap.Logger
}

// NewRecordHandler creates a new record handler
func NewRecordHandler(svc HabitService, logger *zap.Logger) *RecordHandler {
	return &RecordHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers record routes on a router with the /records prefix
func (h *RecordHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.History).Methods("GET")
	r.HandleFunc("", h.SaveRecord).Methods("PUT")
	r.HandleFunc("/{id}", h.DeleteRecord).Methods("DELETE")
}

// SaveRecordRequest is the outcome of one task on one date
type SaveRecordRequest struct {
	TaskID        string   `json:"task_id" validate:"required,uuid"`
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	Status        string   `json:"status" validate:"required,record_status"`
	FailureTagIDs []string `json:"failure_tag_ids,omitempty" validate:"omitempty,max=20,dive,uuid"`
	Memo          string   `json:"memo" validate:"max=1000"`
}

// SaveRecord upserts the record for (task, date)
func (h *RecordHandler) SaveRecord(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req SaveRecordRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	// formats were checked by the validator
	date, err := models.ParseDate(req.Date)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	in := habits.RecordInput{
		TaskID: uuid.MustParse(req.TaskID),
		Date:   date,
		Status: models.RecordStatus(req.Status),
		Memo:   req.Memo,
	}
	for _, raw := range req.FailureTagIDs {
		in.FailureTagIDs = append(in.FailureTagIDs, uuid.MustParse(raw))
	}

	rec, err := h.svc.SaveRecord(r.Context(), user.ID, in)
	if err != nil {
		respondServiceError(w, h.logger, "save record", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// DeleteRecord deletes a record
func (h *RecordHandler) DeleteRecord(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "record")
	if !ok {
		return
	}

	if err := h.svc.DeleteRecord(r.Context(), user.ID, id); err != nil {
		respondServiceError(w, h.logger, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// History returns records grouped by date, newest first, optionally within ?from=&to=
func (h *RecordHandler) History(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	from, err := request.QueryDate(r, "from")
	if err != nil {
		respondServiceError(w, h.logger, "retrieve history", err)
		return
	}
	to, err := request.QueryDate(r, "to")
	if err != nil {
		respondServiceError(w, h.logger, "retrieve history", err)
		return
	}

	groups, err := h.svc.History(r.Context(), user.ID, models.DateRange{From: from, To: to})
	if err != nil {
		respondServiceError(w, h.logger, "retrieve history", err)
		return
	}
	if groups == nil {
		groups = []models.RecordGroup{}
	}
	respondJSON(w, http.StatusOK, groups)
}
