package engine

import (
	"sort"
	"time"

	"github.com/benvon/smart-habits/internal/models"
)

// Calendar evaluates due tasks and reconciliations day by day over a fixed
// task and record set. It holds no state besides its inputs.
type Calendar struct {
	tasks    []*models.Task
	byDate   map[models.Date][]*models.TaskRecord
	today    models.Date
	loc      *time.Location
	earliest models.Date
	hasAny   bool
}

// NewCalendar indexes records by date. today decides missing vs pending; loc
// is the user's calendar used to date task creation.
func NewCalendar(tasks []*models.Task, records []*models.TaskRecord, today models.Date, loc *time.Location) *Calendar {
	c := &Calendar{
		tasks:  tasks,
		byDate: make(map[models.Date][]*models.TaskRecord),
		today:  today,
		loc:    loc,
	}
	for _, rec := range records {
		c.byDate[rec.Date] = append(c.byDate[rec.Date], rec)
	}
	for _, task := range tasks {
		created := task.CreatedOn(loc)
		if !c.hasAny || created.Before(c.earliest) {
			c.earliest = created
			c.hasAny = true
		}
	}
	return c
}

// Start returns the first observed date: the earliest task creation date
func (c *Calendar) Start() (models.Date, bool) {
	return c.earliest, c.hasAny
}

// Day reconciles a single date
func (c *Calendar) Day(date models.Date) DayReconciliation {
	return Reconcile(DueTasks(c.tasks, date, c.loc), c.byDate[date], date, c.today)
}

// ComputeStats aggregates UserStats over every date from the earliest task
// creation date through asOf inclusive.
func ComputeStats(tasks []*models.Task, records []*models.TaskRecord, asOf, today models.Date, loc *time.Location) models.UserStats {
	return NewCalendar(tasks, records, today, loc).Stats(asOf)
}

// Stats aggregates UserStats through asOf. Dates after today are never
// observed, so the range is clamped to today.
func (c *Calendar) Stats(asOf models.Date) models.UserStats {
	var stats models.UserStats
	if !c.today.IsZero() && asOf.After(c.today) {
		asOf = c.today
	}
	start, ok := c.Start()
	if !ok || asOf.Before(start) {
		return stats
	}

	var outcomes []dayOutcome
	run := 0
	for date := start; !date.After(asOf); date = date.AddDays(1) {
		day := c.Day(date)
		if len(day.Statuses) > 0 {
			stats.TotalDays++
		}
		stats.TotalTasks += day.Settled()
		stats.CompletedTasks += day.Count(models.ReconciledCompleted)

		outcome := day.outcome()
		outcomes = append(outcomes, outcome)
		switch outcome {
		case dayAllCompleted:
			run++
			if run > stats.LongestStreak {
				stats.LongestStreak = run
			}
		case dayBroken:
			run = 0
		}
	}

	stats.CurrentStreak = currentStreak(outcomes)
	stats.CompletionRate = CompletionRate(stats.CompletedTasks, stats.TotalTasks)
	return stats
}

// currentStreak walks backward from the last outcome
func currentStreak(outcomes []dayOutcome) int {
	streak := 0
	for i := len(outcomes) - 1; i >= 0; i-- {
		switch outcomes[i] {
		case dayAllCompleted:
			streak++
		case dayBroken:
			return streak
		}
	}
	return streak
}

// CompletionRate is completed/total as a percentage rounded half up; 0 when total is 0
func CompletionRate(completed, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}

// Weekly summarizes the seven dates ending at asOf
func (c *Calendar) Weekly(asOf models.Date) models.WeeklyStats {
	var weekly models.WeeklyStats
	for i := 6; i >= 0; i-- {
		date := asOf.AddDays(-i)
		day := c.Day(date)
		summary := models.DaySummary{
			Date:      date,
			Weekday:   date.Weekday(),
			Completed: day.Count(models.ReconciledCompleted),
			Pending:   day.Count(models.ReconciledPending),
			Total:     day.Settled(),
		}
		weekly.Days = append(weekly.Days, summary)
		weekly.TotalTasks += summary.Total
		weekly.CompletedTasks += summary.Completed
	}
	weekly.CompletionRate = CompletionRate(weekly.CompletedTasks, weekly.TotalTasks)
	return weekly
}

// WeeklyBreakdown is the functional form of Calendar.Weekly
func WeeklyBreakdown(tasks []*models.Task, records []*models.TaskRecord, asOf, today models.Date, loc *time.Location) models.WeeklyStats {
	return NewCalendar(tasks, records, today, loc).Weekly(asOf)
}

// GroupRecordsByDate groups records per date, newest date first; within a
// date the most recently recorded entry comes first.
func GroupRecordsByDate(records []*models.TaskRecord) []models.RecordGroup {
	byDate := make(map[models.Date][]*models.TaskRecord)
	for _, rec := range records {
		byDate[rec.Date] = append(byDate[rec.Date], rec)
	}
	groups := make([]models.RecordGroup, 0, len(byDate))
	for date, recs := range byDate {
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].RecordedAt.After(recs[j].RecordedAt)
		})
		groups = append(groups, models.RecordGroup{Date: date, Records: recs})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Date.After(groups[j].Date)
	})
	return groups
}
