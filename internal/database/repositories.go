package database

import (
	"context"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// TagRepositoryInterface defines the interface for tag repository operations
type TagRepositoryInterface interface {
	Upsert(ctx context.Context, tag *models.UserTag) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.UserTag, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.UserTag, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (int, error)
	RecountUsage(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
}

// RecordRepositoryInterface defines the interface for task record repository operations
type RecordRepositoryInterface interface {
	Upsert(ctx context.Context, rec *models.TaskRecord) (*models.TaskRecord, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.TaskRecord, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, dates models.DateRange) ([]*models.TaskRecord, error)
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	UpdateSettings(ctx context.Context, id uuid.UUID, settings models.UserSettings) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// RatelimitConfigRepositoryInterface defines the interface for rate limit config storage
type RatelimitConfigRepositoryInterface interface {
	Get(ctx context.Context, key string) (*models.RatelimitConfig, error)
	List(ctx context.Context) ([]*models.RatelimitConfig, error)
	Set(ctx context.Context, c *models.RatelimitConfig) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface            = (*TaskRepository)(nil)
	_ TagRepositoryInterface             = (*TagRepository)(nil)
	_ RecordRepositoryInterface          = (*RecordRepository)(nil)
	_ UserRepositoryInterface            = (*UserRepository)(nil)
	_ RatelimitConfigRepositoryInterface = (*RatelimitConfigRepository)(nil)
)
