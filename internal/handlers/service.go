package handlers

import (
	"context"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/google/uuid"
)

// HabitService is the subset of the habit service the HTTP layer uses
type HabitService interface {
	CreateTask(ctx context.Context, userID uuid.UUID, in habits.TaskInput) (*models.Task, error)
	UpdateTask(ctx context.Context, userID, id uuid.UUID, patch habits.TaskPatch) (*models.Task, error)
	SetTaskActive(ctx context.Context, userID, id uuid.UUID, active *bool) (*models.Task, error)
	DeleteTask(ctx context.Context, userID, id uuid.UUID) error
	GetTask(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Upcoming(ctx context.Context, userID uuid.UUID, days int) ([]engine.UpcomingOccurrence, error)

	AddTag(ctx context.Context, userID uuid.UUID, name string) (*models.UserTag, error)
	RenameTag(ctx context.Context, userID, id uuid.UUID, name string) (*models.UserTag, error)
	DeleteTag(ctx context.Context, userID, id uuid.UUID) (int, error)
	ListTags(ctx context.Context, userID uuid.UUID) ([]*models.UserTag, error)

	SaveRecord(ctx context.Context, userID uuid.UUID, in habits.RecordInput) (*models.TaskRecord, error)
	DeleteRecord(ctx context.Context, userID, id uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID, dates models.DateRange) ([]models.RecordGroup, error)

	Day(ctx context.Context, userID uuid.UUID, date models.Date) (*habits.DayView, error)
	TodayView(ctx context.Context, userID uuid.UUID) (*habits.DayView, error)
	Stats(ctx context.Context, userID uuid.UUID, asOf models.Date) (models.UserStats, error)
	Weekly(ctx context.Context, userID uuid.UUID, asOf models.Date) (models.WeeklyStats, error)

	GetSettings(ctx context.Context, userID uuid.UUID) (models.UserSettings, error)
	UpdateSettings(ctx context.Context, userID uuid.UUID, patch habits.SettingsPatch) (models.UserSettings, error)
}

var _ HabitService = (*habits.Service)(nil)
