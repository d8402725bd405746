package models

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Task is a recurring scheduled habit owned by a user
type Task struct {
	ID                        uuid.UUID  `json:"id"`
	UserID                    uuid.UUID  `json:"user_id"`
	Title                     string     `json:"title"`
	Category                  string     `json:"category"`
	ScheduledTime             string     `json:"scheduled_time"` // "HH:MM", wall clock
	DaysOfWeek                DaysOfWeek `json:"days_of_week"`
	NotificationMinutesBefore int        `json:"notification_minutes_before"`
	Color                     string     `json:"color"`
	IsActive                  bool       `json:"is_active"`
	CreatedAt                 time.Time  `json:"created_at"`
	UpdatedAt                 time.Time  `json:"updated_at"`
}

// Validate checks the task invariants. The first offending field is reported.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "must not be empty")
	}
	if _, _, err := ParseClock(t.ScheduledTime); err != nil {
		return NewValidationError("scheduled_time", err.Error())
	}
	if err := t.DaysOfWeek.Validate(); err != nil {
		return err
	}
	if t.NotificationMinutesBefore < 0 {
		return NewValidationError("notification_minutes_before", "must not be negative")
	}
	return nil
}

// CreatedOn returns the calendar date the task was created, in loc
func (t *Task) CreatedOn(loc *time.Location) Date {
	if loc == nil {
		return DateOf(t.CreatedAt)
	}
	return DateOf(t.CreatedAt.In(loc))
}

// DaysOfWeek is a set of weekdays, Sunday = 0 ... Saturday = 6
type DaysOfWeek []int

// EveryDay selects all seven weekdays
var EveryDay = DaysOfWeek{0, 1, 2, 3, 4, 5, 6}

// Validate rejects empty sets, duplicates and values outside [0,6]
func (d DaysOfWeek) Validate() error {
	if len(d) == 0 {
		return NewValidationError("days_of_week", "must select at least one day")
	}
	seen := make(map[int]bool, len(d))
	for _, day := range d {
		if day < 0 || day > 6 {
			return NewValidationError("days_of_week", fmt.Sprintf("day %d out of range 0-6", day))
		}
		if seen[day] {
			return NewValidationError("days_of_week", fmt.Sprintf("day %d listed twice", day))
		}
		seen[day] = true
	}
	return nil
}

// Contains reports whether weekday is selected
func (d DaysOfWeek) Contains(weekday int) bool {
	for _, day := range d {
		if day == weekday {
			return true
		}
	}
	return false
}

// Sorted returns a sorted copy
func (d DaysOfWeek) Sorted() DaysOfWeek {
	out := make(DaysOfWeek, len(d))
	copy(out, d)
	sort.Ints(out)
	return out
}

// ParseClock parses a wall-clock "HH:MM" value
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return hour, minute, nil
}
