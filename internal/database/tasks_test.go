package database

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/smart-habits/internal/models"
)

func TestTaskRepository_CreateAndGet(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := &models.Task{
		UserID:                    f.user.ID,
		Title:                     "Meditate",
		Category:                  "mind",
		ScheduledTime:             "21:15",
		DaysOfWeek:                models.DaysOfWeek{5, 1, 3},
		NotificationMinutesBefore: 10,
		Color:                     "#4F46E5",
		IsActive:                  true,
	}
	if err := f.tasks.Create(context.Background(), task); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := f.tasks.GetByID(context.Background(), f.user.ID, task.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Title != "Meditate" || got.ScheduledTime != "21:15" || got.NotificationMinutesBefore != 10 || !got.IsActive {
		t.Errorf("GetByID() = %+v", got)
	}
	if len(got.DaysOfWeek) != 3 || got.DaysOfWeek[0] != 1 || got.DaysOfWeek[2] != 5 {
		t.Errorf("DaysOfWeek = %v, want [1 3 5]", got.DaysOfWeek)
	}

	other := f.createUser(t, "other@example.com")
	if _, err := f.tasks.GetByID(context.Background(), other.ID, task.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_Update(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Run")
	task.Title = "Long run"
	task.IsActive = false
	task.DaysOfWeek = models.DaysOfWeek{0, 6}
	if err := f.tasks.Update(context.Background(), task); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	tasks, err := f.tasks.ListByUser(context.Background(), f.user.ID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "Long run" || tasks[0].IsActive {
		t.Errorf("ListByUser() = %+v", tasks)
	}

	other := f.createUser(t, "other@example.com")
	task.UserID = other.ID
	if err := f.tasks.Update(context.Background(), task); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("foreign Update() error = %v, want ErrNotFound", err)
	}
}

func TestTaskRepository_DeleteRemovesRecordsAndUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	run := f.createTask(t, f.user.ID, "Run")
	read := f.createTask(t, f.user.ID, "Read")
	tag := f.createTag(t, f.user.ID, "tired")

	f.save(t, run, "2024-01-01", models.RecordStatusFailed, tag.ID)
	f.save(t, run, "2024-01-02", models.RecordStatusFailed, tag.ID)
	f.save(t, read, "2024-01-02", models.RecordStatusFailed, tag.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 3})

	if err := f.tasks.Delete(context.Background(), f.user.ID, run.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertUsage(t, f.usage(t), map[string]int{"tired": 1})

	records, err := f.records.ListByUser(context.Background(), f.user.ID, models.DateRange{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(records) != 1 || records[0].TaskID != read.ID {
		t.Errorf("remaining records = %d, want only the Read record", len(records))
	}

	if err := f.tasks.Delete(context.Background(), f.user.ID, run.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
