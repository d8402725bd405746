// Package habits orchestrates the occurrence engine and the repositories on
// behalf of a single user: task and tag management, recording outcomes and
// the day, history and statistics views.
package habits

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/benvon/smart-habits/internal/database"
	"github.com/benvon/smart-habits/internal/engine"
	logpkg "github.com/benvon/smart-habits/internal/logger"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// MaxUpcomingDays bounds the reminder preview window
	MaxUpcomingDays = 31
	// DefaultColor is assigned to tasks created without a color
	DefaultColor = "#3B82F6"
)

// RecountScheduler queues a background recount of a user's tag usage
type RecountScheduler interface {
	ScheduleRecount(ctx context.Context, userID uuid.UUID) error
}

// Service implements the habit operations
type Service struct {
	tasks   database.TaskRepositoryInterface
	tags    database.TagRepositoryInterface
	records database.RecordRepositoryInterface
	users   database.UserRepositoryInterface

	recount RecountScheduler
	logger  *zap.Logger
	loc     *time.Location
	now     func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithLocation sets the calendar used to decide "today" and creation dates
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRecountScheduler enables recount jobs after tag deletions
func WithRecountScheduler(r RecountScheduler) Option {
	return func(s *Service) { s.recount = r }
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a habit service
func NewService(
	tasks database.TaskRepositoryInterface,
	tags database.TagRepositoryInterface,
	records database.RecordRepositoryInterface,
	users database.UserRepositoryInterface,
	opts ...Option,
) *Service {
	s := &Service{
		tasks:   tasks,
		tags:    tags,
		records: records,
		users:   users,
		logger:  zap.NewNop(),
		loc:     time.UTC,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the calendar the service evaluates dates in
func (s *Service) Location() *time.Location {
	return s.loc
}

// Today returns the current date in the service location
func (s *Service) Today() models.Date {
	return models.DateOf(s.now().In(s.loc))
}

// TaskInput carries the fields of a new task
type TaskInput struct {
	Title                     string
	Category                  string
	ScheduledTime             string
	DaysOfWeek                models.DaysOfWeek
	NotificationMinutesBefore int
	Color                     string
	IsActive                  *bool
}

// TaskPatch carries optional task changes; nil fields are left untouched
type TaskPatch struct {
	Title                     *string
	Category                  *string
	ScheduledTime             *string
	DaysOfWeek                *models.DaysOfWeek
	NotificationMinutesBefore *int
	Color                     *string
	IsActive                  *bool
}

// CreateTask validates and stores a new task
func (s *Service) CreateTask(ctx context.Context, userID uuid.UUID, in TaskInput) (*models.Task, error) {
	task := &models.Task{
		ID:                        uuid.New(),
		UserID:                    userID,
		Title:                     in.Title,
		Category:                  in.Category,
		ScheduledTime:             in.ScheduledTime,
		DaysOfWeek:                in.DaysOfWeek.Sorted(),
		NotificationMinutesBefore: in.NotificationMinutesBefore,
		Color:                     in.Color,
		IsActive:                  true,
		CreatedAt:                 s.now().UTC(),
	}
	if in.IsActive != nil {
		task.IsActive = *in.IsActive
	}
	if task.Color == "" {
		task.Color = DefaultColor
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies patch to a task. Past records are left as they are.
func (s *Service) UpdateTask(ctx context.Context, userID, id uuid.UUID, patch TaskPatch) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.ScheduledTime != nil {
		task.ScheduledTime = *patch.ScheduledTime
	}
	if patch.DaysOfWeek != nil {
		task.DaysOfWeek = patch.DaysOfWeek.Sorted()
	}
	if patch.NotificationMinutesBefore != nil {
		task.NotificationMinutesBefore = *patch.NotificationMinutesBefore
	}
	if patch.Color != nil {
		task.Color = *patch.Color
	}
	if patch.IsActive != nil {
		task.IsActive = *patch.IsActive
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// SetTaskActive sets the active flag, or flips it when active is nil
func (s *Service) SetTaskActive(ctx context.Context, userID, id uuid.UUID, active *bool) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if active == nil {
		task.IsActive = !task.IsActive
	} else {
		task.IsActive = *active
	}
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task and its records
func (s *Service) DeleteTask(ctx context.Context, userID, id uuid.UUID) error {
	return s.tasks.Delete(ctx, userID, id)
}

// GetTask returns one task
func (s *Service) GetTask(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	return s.tasks.GetByID(ctx, userID, id)
}

// ListTasks returns the user's tasks ordered by scheduled time, then title
func (s *Service) ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortTasks(tasks)
	return tasks, nil
}

// Upcoming previews the next days of occurrences starting today
func (s *Service) Upcoming(ctx context.Context, userID uuid.UUID, days int) ([]engine.UpcomingOccurrence, error) {
	if days < 1 || days > MaxUpcomingDays {
		return nil, models.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", MaxUpcomingDays))
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return engine.Upcoming(tasks, s.Today(), days, s.loc), nil
}

// AddTag creates a tag with zero usage
func (s *Service) AddTag(ctx context.Context, userID uuid.UUID, name string) (*models.UserTag, error) {
	name, err := models.NormalizeTagName(name)
	if err != nil {
		return nil, err
	}
	tag := &models.UserTag{ID: uuid.New(), UserID: userID, Name: name}
	if err := s.tags.Upsert(ctx, tag); err != nil {
		return nil, err
	}
	s.logger.Debug("tag_created",
		zap.String("user_id", userID.String()),
		zap.String("tag_name", logpkg.SanitizeMemo(name)))
	return tag, nil
}

// RenameTag changes a tag's name; usage is kept
func (s *Service) RenameTag(ctx context.Context, userID, id uuid.UUID, name string) (*models.UserTag, error) {
	name, err := models.NormalizeTagName(name)
	if err != nil {
		return nil, err
	}
	tag, err := s.tags.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	previous := tag.Name
	tag.Name = name
	if err := s.tags.Upsert(ctx, tag); err != nil {
		return nil, err
	}
	s.logger.Debug("tag_renamed",
		zap.String("tag_id", id.String()),
		zap.String("from", logpkg.SanitizeMemo(previous)),
		zap.String("to", logpkg.SanitizeMemo(name)))
	return tag, nil
}

// DeleteTag deletes a tag and detaches it from every record referencing it.
// It returns how many records were rewritten.
func (s *Service) DeleteTag(ctx context.Context, userID, id uuid.UUID) (int, error) {
	detached, err := s.tags.Delete(ctx, userID, id)
	if err != nil {
		return 0, err
	}
	s.logger.Info("tag_deleted",
		zap.String("user_id", userID.String()),
		zap.String("tag_id", id.String()),
		zap.Int("detached_records", detached))

	if s.recount != nil {
		// the delete is already committed; a failed schedule only delays the repair
		if err := s.recount.ScheduleRecount(ctx, userID); err != nil {
			s.logger.Warn("recount_schedule_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		}
	}
	return detached, nil
}

// ListTags returns the user's tags, most used first
func (s *Service) ListTags(ctx context.Context, userID uuid.UUID) ([]*models.UserTag, error) {
	tags, err := s.tags.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return engine.TagUsageRanking(tags), nil
}

// RecordInput is the outcome to save for a task on a date
type RecordInput struct {
	TaskID        uuid.UUID
	Date          models.Date
	Status        models.RecordStatus
	FailureTagIDs []uuid.UUID
	Memo          string
}

// SaveRecord stores the outcome for (task, date), replacing any previous
// one. Failure tags are dropped unless the status is failed.
func (s *Service) SaveRecord(ctx context.Context, userID uuid.UUID, in RecordInput) (*models.TaskRecord, error) {
	rec := &models.TaskRecord{
		TaskID:        in.TaskID,
		UserID:        userID,
		Date:          in.Date,
		Status:        in.Status,
		FailureTagIDs: in.FailureTagIDs,
		Memo:          in.Memo,
		RecordedAt:    s.now().UTC(),
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	rec.Normalize()

	previous, err := s.records.Upsert(ctx, rec)
	if err != nil {
		return nil, err
	}
	if previous != nil {
		s.logger.Debug("record_replaced",
			zap.String("record_id", rec.ID.String()),
			zap.String("previous_status", string(previous.Status)),
			zap.String("status", string(rec.Status)))
	}
	return rec, nil
}

// DeleteRecord removes a record
func (s *Service) DeleteRecord(ctx context.Context, userID, id uuid.UUID) error {
	return s.records.Delete(ctx, userID, id)
}

// History returns the user's records in dates grouped by date, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, dates models.DateRange) ([]models.RecordGroup, error) {
	if !dates.From.IsZero() && !dates.To.IsZero() && dates.From.After(dates.To) {
		return nil, models.NewValidationError("from", "must not be after to")
	}
	records, err := s.records.ListByUser(ctx, userID, dates)
	if err != nil {
		return nil, err
	}
	return engine.GroupRecordsByDate(records), nil
}

// DayView is the reconciled state of one date
type DayView struct {
	Date        models.Date          `json:"date"`
	Occurrences []models.Occurrence  `json:"occurrences"`
	Unscheduled []*models.TaskRecord `json:"unscheduled,omitempty"`
	Summary     models.DaySummary    `json:"summary"`
}

// Day reconciles date's due tasks against its records
func (s *Service) Day(ctx context.Context, userID uuid.UUID, date models.Date) (*DayView, error) {
	if date.IsZero() {
		return nil, models.NewValidationError("date", "is required")
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.records.ListByUser(ctx, userID, models.DateRange{From: date, To: date})
	if err != nil {
		return nil, err
	}

	due := engine.DueTasks(tasks, date, s.loc)
	sortTasks(due)
	day := engine.Reconcile(due, records, date, s.Today())

	view := &DayView{
		Date:        date,
		Occurrences: make([]models.Occurrence, 0, len(due)),
		Unscheduled: day.Unscheduled,
		Summary: models.DaySummary{
			Date:      date,
			Weekday:   date.Weekday(),
			Completed: day.Count(models.ReconciledCompleted),
			Pending:   day.Count(models.ReconciledPending),
			Total:     day.Settled(),
		},
	}
	for _, task := range due {
		view.Occurrences = append(view.Occurrences, models.Occurrence{
			Task:   task,
			Date:   date,
			Status: day.Statuses[task.ID],
			Record: day.Records[task.ID],
		})
	}
	return view, nil
}

// TodayView reconciles the current date
func (s *Service) TodayView(ctx context.Context, userID uuid.UUID) (*DayView, error) {
	return s.Day(ctx, userID, s.Today())
}

// Stats aggregates the user's statistics through asOf; a zero asOf means today.
// Dates after today have not been observed and are rejected.
func (s *Service) Stats(ctx context.Context, userID uuid.UUID, asOf models.Date) (models.UserStats, error) {
	if asOf.After(s.Today()) {
		return models.UserStats{}, models.NewValidationError("as_of", "must not be after today")
	}
	cal, asOf, err := s.calendar(ctx, userID, asOf)
	if err != nil {
		return models.UserStats{}, err
	}
	return cal.Stats(asOf), nil
}

// Weekly summarizes the seven days ending at asOf; a zero asOf means today
func (s *Service) Weekly(ctx context.Context, userID uuid.UUID, asOf models.Date) (models.WeeklyStats, error) {
	cal, asOf, err := s.calendar(ctx, userID, asOf)
	if err != nil {
		return models.WeeklyStats{}, err
	}
	return cal.Weekly(asOf), nil
}

func (s *Service) calendar(ctx context.Context, userID uuid.UUID, asOf models.Date) (*engine.Calendar, models.Date, error) {
	if asOf.IsZero() {
		asOf = s.Today()
	}
	tasks, err := s.tasks.ListByUser(ctx, userID)
	if err != nil {
		return nil, asOf, err
	}
	records, err := s.records.ListByUser(ctx, userID, models.DateRange{To: asOf})
	if err != nil {
		return nil, asOf, err
	}
	return engine.NewCalendar(tasks, records, s.Today(), s.loc), asOf, nil
}

// SettingsPatch carries optional settings changes
type SettingsPatch struct {
	NotificationsEnabled       *bool
	ReviewNotificationsEnabled *bool
}

// GetSettings returns the user's notification settings
func (s *Service) GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.UserSettings{}, err
	}
	return user.Settings, nil
}

// UpdateSettings applies patch and returns the stored settings
func (s *Service) UpdateSettings(ctx context.Context, userID uuid.UUID, patch SettingsPatch) (models.UserSettings, error) {
	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return models.UserSettings{}, err
	}
	if patch.NotificationsEnabled != nil {
		settings.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.ReviewNotificationsEnabled != nil {
		settings.ReviewNotificationsEnabled = *patch.ReviewNotificationsEnabled
	}
	if err := s.users.UpdateSettings(ctx, userID, settings); err != nil {
		return models.UserSettings{}, err
	}
	return settings, nil
}

// RecountTagUsage recomputes the user's tag usage counts from their records
func (s *Service) RecountTagUsage(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	return s.tags.RecountUsage(ctx, userID)
}

func sortTasks(tasks []*models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].ScheduledTime != tasks[j].ScheduledTime {
			return tasks[i].ScheduledTime < tasks[j].ScheduledTime
		}
		return tasks[i].Title < tasks[j].Title
	})
}
