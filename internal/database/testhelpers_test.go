package database

import (
	"context"
	"testing"
	"time"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// newTestDB opens a private in-memory SQLite database with the schema applied
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type fixture struct {
	db      *DB
	users   *UserRepository
	tasks   *TaskRepository
	tags    *TagRepository
	records *RecordRepository
	user    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:      db,
		users:   NewUserRepository(db),
		tasks:   NewTaskRepository(db),
		tags:    NewTagRepository(db),
		records: NewRecordRepository(db),
	}
	f.user = f.createUser(t, "runner@example.com")
	return f
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, Settings: models.DefaultUserSettings()}
	if err := f.users.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func (f *fixture) createTask(t *testing.T, userID uuid.UUID, title string) *models.Task {
	t.Helper()
	task := &models.Task{
		UserID:        userID,
		Title:         title,
		ScheduledTime: "07:00",
		DaysOfWeek:    models.EveryDay,
		IsActive:      true,
		CreatedAt:     time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC),
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func (f *fixture) createTag(t *testing.T, userID uuid.UUID, name string) *models.UserTag {
	t.Helper()
	tag := &models.UserTag{UserID: userID, Name: name}
	if err := f.tags.Upsert(context.Background(), tag); err != nil {
		t.Fatalf("failed to create tag: %v", err)
	}
	return tag
}

func (f *fixture) save(t *testing.T, task *models.Task, date string, status models.RecordStatus, tags ...uuid.UUID) *models.TaskRecord {
	t.Helper()
	d, err := models.ParseDate(date)
	if err != nil {
		t.Fatalf("bad date: %v", err)
	}
	rec := &models.TaskRecord{
		TaskID:        task.ID,
		UserID:        task.UserID,
		Date:          d,
		Status:        status,
		FailureTagIDs: tags,
	}
	if _, err := f.records.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("failed to save record: %v", err)
	}
	return rec
}

// usage returns the stored usage_count per tag name
func (f *fixture) usage(t *testing.T) map[string]int {
	t.Helper()
	tags, err := f.tags.ListByUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("failed to list tags: %v", err)
	}
	out := make(map[string]int, len(tags))
	for _, tag := range tags {
		out[tag.Name] = tag.UsageCount
	}
	return out
}

func assertUsage(t *testing.T, got map[string]int, want map[string]int) {
	t.Helper()
	for name, count := range want {
		if got[name] != count {
			t.Errorf("usage[%s] = %d, want %d (all: %v)", name, got[name], count, got)
		}
	}
}
