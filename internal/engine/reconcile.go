package engine

import (
	"sort"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// DayReconciliation is the outcome of matching one date's records against its due tasks
type DayReconciliation struct {
	Date models.Date
	// Statuses has one entry per due task
	Statuses map[uuid.UUID]models.ReconciledStatus
	// Records holds the record backing each non-missing, non-pending status
	Records map[uuid.UUID]*models.TaskRecord
	// Unscheduled are records for tasks not due on Date; kept for history only
	Unscheduled []*models.TaskRecord
}

// Reconcile matches records (all for date) against dueTasks. A due task
// without a record is missing when date is before today and pending otherwise.
func Reconcile(dueTasks []*models.Task, records []*models.TaskRecord, date, today models.Date) DayReconciliation {
	result := DayReconciliation{
		Date:     date,
		Statuses: make(map[uuid.UUID]models.ReconciledStatus, len(dueTasks)),
		Records:  make(map[uuid.UUID]*models.TaskRecord),
	}

	byTask := make(map[uuid.UUID]*models.TaskRecord, len(records))
	for _, rec := range records {
		if rec.Date != date {
			continue
		}
		// the store guarantees one record per task and date; keep the latest save if not
		if prev, ok := byTask[rec.TaskID]; ok && prev.RecordedAt.After(rec.RecordedAt) {
			continue
		}
		byTask[rec.TaskID] = rec
	}

	due := make(map[uuid.UUID]bool, len(dueTasks))
	for _, task := range dueTasks {
		due[task.ID] = true
		if rec, ok := byTask[task.ID]; ok {
			result.Statuses[task.ID] = models.FromRecordStatus(rec.Status)
			result.Records[task.ID] = rec
			continue
		}
		if date.Before(today) {
			result.Statuses[task.ID] = models.ReconciledMissing
		} else {
			result.Statuses[task.ID] = models.ReconciledPending
		}
	}

	for taskID, rec := range byTask {
		if !due[taskID] {
			result.Unscheduled = append(result.Unscheduled, rec)
		}
	}
	sort.Slice(result.Unscheduled, func(i, j int) bool {
		a, b := result.Unscheduled[i], result.Unscheduled[j]
		if !a.RecordedAt.Equal(b.RecordedAt) {
			return a.RecordedAt.Before(b.RecordedAt)
		}
		return a.TaskID.String() < b.TaskID.String()
	})

	return result
}

// Count returns how many due occurrences have status
func (d DayReconciliation) Count(status models.ReconciledStatus) int {
	n := 0
	for _, s := range d.Statuses {
		if s == status {
			n++
		}
	}
	return n
}

// Settled is the number of due occurrences that are no longer pending
func (d DayReconciliation) Settled() int {
	return len(d.Statuses) - d.Count(models.ReconciledPending)
}

// dayOutcome classifies a date for streak purposes
type dayOutcome int

const (
	dayNoDueTasks dayOutcome = iota // skipped
	dayInProgress                   // completed or pending only, at least one pending; skipped
	dayAllCompleted
	dayBroken // at least one failed, delayed or missing
)

func (d DayReconciliation) outcome() dayOutcome {
	if len(d.Statuses) == 0 {
		return dayNoDueTasks
	}
	pending := false
	for _, s := range d.Statuses {
		switch s {
		case models.ReconciledCompleted:
		case models.ReconciledPending:
			pending = true
		default:
			return dayBroken
		}
	}
	if pending {
		return dayInProgress
	}
	return dayAllCompleted
}
