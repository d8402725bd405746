// Package engine decides which tasks are due on a date, reconciles recorded
// outcomes against them, tracks tag usage deltas and aggregates statistics.
// Every function is pure: results depend only on the arguments.
package engine

import (
	"sort"
	"time"

	"github.com/benvon/smart-habits/internal/models"
)

// IsDue reports whether task is scheduled on date. Inactive tasks are never due.
func IsDue(task *models.Task, date models.Date) bool {
	if task == nil || !task.IsActive {
		return false
	}
	return task.DaysOfWeek.Contains(date.Weekday())
}

// DueTasks returns the tasks due on date that already existed on that date.
// Creation dates are taken in loc (nil means each CreatedAt's own location).
func DueTasks(tasks []*models.Task, date models.Date, loc *time.Location) []*models.Task {
	var due []*models.Task
	for _, task := range tasks {
		if !IsDue(task, date) {
			continue
		}
		if date.Before(task.CreatedOn(loc)) {
			continue
		}
		due = append(due, task)
	}
	return due
}

// ReminderAt returns when the reminder for task's occurrence on date should fire
func ReminderAt(task *models.Task, date models.Date, loc *time.Location) (time.Time, error) {
	hour, minute, err := models.ParseClock(task.ScheduledTime)
	if err != nil {
		return time.Time{}, err
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(date.Year, date.Month, date.Day, hour, minute, 0, 0, loc)
	return start.Add(-time.Duration(task.NotificationMinutesBefore) * time.Minute), nil
}

// UpcomingOccurrence is a scheduled future occurrence with its reminder time
type UpcomingOccurrence struct {
	TaskID     string      `json:"task_id"`
	Title      string      `json:"title"`
	Date       models.Date `json:"date"`
	StartsAt   time.Time   `json:"starts_at"`
	ReminderAt time.Time   `json:"reminder_at"`
}

// Upcoming lists occurrences for days dates starting at from, ordered by start time
func Upcoming(tasks []*models.Task, from models.Date, days int, loc *time.Location) []UpcomingOccurrence {
	var out []UpcomingOccurrence
	for i := 0; i < days; i++ {
		date := from.AddDays(i)
		for _, task := range tasks {
			if !IsDue(task, date) {
				continue
			}
			reminder, err := ReminderAt(task, date, loc)
			if err != nil {
				// invalid tasks are rejected at creation; skip anything that slipped through
				continue
			}
			out = append(out, UpcomingOccurrence{
				TaskID:     task.ID.String(),
				Title:      task.Title,
				Date:       date,
				StartsAt:   reminder.Add(time.Duration(task.NotificationMinutesBefore) * time.Minute),
				ReminderAt: reminder,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartsAt.Before(out[j].StartsAt)
	})
	return out
}
