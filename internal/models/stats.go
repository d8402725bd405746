package models

// UserStats is derived from tasks and records; it is never persisted
type UserStats struct {
	TotalTasks     int `json:"total_tasks"`     // due occurrences that are no longer pending
	CompletedTasks int `json:"completed_tasks"` // occurrences reconciled as completed
	CompletionRate int `json:"completion_rate"` // percent, rounded half up
	CurrentStreak  int `json:"current_streak"`
	LongestStreak  int `json:"longest_streak"`
	TotalDays      int `json:"total_days"` // dates with at least one due occurrence
}

// Occurrence is one due task on one date with its reconciled status
type Occurrence struct {
	Task   *Task            `json:"task"`
	Date   Date             `json:"date"`
	Status ReconciledStatus `json:"status"`
	Record *TaskRecord      `json:"record,omitempty"`
}

// DaySummary counts occurrences for one date
type DaySummary struct {
	Date      Date `json:"date"`
	Weekday   int  `json:"weekday"`
	Completed int  `json:"completed"`
	Pending   int  `json:"pending"`
	Total     int  `json:"total"` // settled occurrences, pending excluded
}

// WeeklyStats is a seven day window ending on a date
type WeeklyStats struct {
	Days           []DaySummary `json:"days"`
	TotalTasks     int          `json:"total_tasks"`
	CompletedTasks int          `json:"completed_tasks"`
	CompletionRate int          `json:"completion_rate"`
}

// RecordGroup is one date's records in the history view
type RecordGroup struct {
	Date    Date          `json:"date"`
	Records []*TaskRecord `json:"records"`
}
