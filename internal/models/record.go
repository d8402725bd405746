package models

import (
	"time"

	"github.com/google/uuid"
)

// RecordStatus is the outcome a user records for a task on a date
type RecordStatus string

const (
	RecordStatusCompleted RecordStatus = "completed"
	RecordStatusFailed    RecordStatus = "failed"
	RecordStatusDelayed   RecordStatus = "delayed"
)

// Valid reports whether s is one of the recordable statuses
func (s RecordStatus) Valid() bool {
	switch s {
	case RecordStatusCompleted, RecordStatusFailed, RecordStatusDelayed:
		return true
	default:
		return false
	}
}

// ReconciledStatus is the status of a due occurrence after matching it against records
type ReconciledStatus string

const (
	ReconciledCompleted ReconciledStatus = "completed"
	ReconciledFailed    ReconciledStatus = "failed"
	ReconciledDelayed   ReconciledStatus = "delayed"
	// ReconciledMissing: due on a past date with no record
	ReconciledMissing ReconciledStatus = "missing"
	// ReconciledPending: due today or later with no record yet
	ReconciledPending ReconciledStatus = "pending"
)

// FromRecordStatus maps a stored record status onto the reconciled status set
func FromRecordStatus(s RecordStatus) ReconciledStatus {
	switch s {
	case RecordStatusCompleted:
		return ReconciledCompleted
	case RecordStatusFailed:
		return ReconciledFailed
	case RecordStatusDelayed:
		return ReconciledDelayed
	default:
		return ReconciledMissing
	}
}

// TaskRecord is the outcome recorded for one task on one date
type TaskRecord struct {
	ID            uuid.UUID    `json:"id"`
	TaskID        uuid.UUID    `json:"task_id"`
	UserID        uuid.UUID    `json:"user_id"`
	Date          Date         `json:"date"`
	Status        RecordStatus `json:"status"`
	FailureTagIDs []uuid.UUID  `json:"failure_tag_ids,omitempty"`
	Memo          string       `json:"memo,omitempty"`
	RecordedAt    time.Time    `json:"recorded_at"`
}

// FailureTags returns the tag ids that count as failure reasons: only failed
// records carry them, and each id counts once.
func (r *TaskRecord) FailureTags() []uuid.UUID {
	if r == nil || r.Status != RecordStatusFailed {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(r.FailureTagIDs))
	out := make([]uuid.UUID, 0, len(r.FailureTagIDs))
	for _, id := range r.FailureTagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// Normalize clears failure tags on non-failed records and removes duplicates
func (r *TaskRecord) Normalize() {
	tags := r.FailureTags()
	if len(tags) == 0 {
		r.FailureTagIDs = nil
		return
	}
	r.FailureTagIDs = tags
}

// Validate checks the record fields
func (r *TaskRecord) Validate() error {
	if r.TaskID == uuid.Nil {
		return NewValidationError("task_id", "is required")
	}
	if r.Date.IsZero() {
		return NewValidationError("date", "is required")
	}
	if !r.Status.Valid() {
		return NewValidationError("status", "must be one of completed, failed, delayed")
	}
	return nil
}

// HasTag reports whether tagID is among the record's failure tags
func (r *TaskRecord) HasTag(tagID uuid.UUID) bool {
	for _, id := range r.FailureTagIDs {
		if id == tagID {
			return true
		}
	}
	return false
}
