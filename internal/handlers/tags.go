package handlers

import (
	"net/http"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/validation"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// TagHandler handles failure tag requests
type TagHandler struct {
	svc    HabitService
	logger *zap.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(svc HabitService, logger *zap.Logger) *TagHandler {
	return &TagHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers tag routes on a router with the /tags prefix
func (h *TagHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTags).Methods("GET")
	r.HandleFunc("", h.AddTag).Methods("POST")
	r.HandleFunc("/{id}", h.RenameTag).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTag).Methods("DELETE")
}

// TagRequest carries a tag name
type TagRequest struct {
	Name string `json:"name" validate:"required,max=64"`
}

// DeleteTagResponse reports how many records lost the tag
type DeleteTagResponse struct {
	DetachedRecords int `json:"detached_records"`
}

// ListTags lists tags ranked by usage
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	tags, err := h.svc.ListTags(r.Context(), user.ID)
	if err != nil {
		respondServiceError(w, h.logger, "retrieve tags", err)
		return
	}
	if tags == nil {
		tags = []*models.UserTag{}
	}
	respondJSON(w, http.StatusOK, tags)
}

// AddTag creates a tag
func (h *TagHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}

	var req TagRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	tag, err := h.svc.AddTag(r.Context(), user.ID, validation.SanitizeText(req.Name))
	if err != nil {
		respondServiceError(w, h.logger, "create tag", err)
		return
	}
	respondJSON(w, http.StatusCreated, tag)
}

// RenameTag renames a tag
func (h *TagHandler) RenameTag(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "tag")
	if !ok {
		return
	}

	var req TagRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	tag, err := h.svc.RenameTag(r.Context(), user.ID, id, validation.SanitizeText(req.Name))
	if err != nil {
		respondServiceError(w, h.logger, "rename tag", err)
		return
	}
	respondJSON(w, http.StatusOK, tag)
}

// DeleteTag deletes a tag and detaches it from records
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	user := requireUser(w, r)
	if user == nil {
		return
	}
	id, ok := pathID(w, r, "tag")
	if !ok {
		return
	}

	detached, err := h.svc.DeleteTag(r.Context(), user.ID, id)
	if err != nil {
		respondServiceError(w, h.logger, "delete tag", err)
		return
	}
	respondJSON(w, http.StatusOK, DeleteTagResponse{DetachedRecords: detached})
}
