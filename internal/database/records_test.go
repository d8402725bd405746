package database

import (
	"context"
	"errors"
	"testing"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

func TestRecordRepository_UpsertMaintainsTagUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Run")
	a := f.createTag(t, f.user.ID, "tired")
	b := f.createTag(t, f.user.ID, "busy")
	c := f.createTag(t, f.user.ID, "weather")

	first := f.save(t, task, "2024-01-05", models.RecordStatusFailed, a.ID, b.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 1, "busy": 1, "weather": 0})

	// identical re-save changes nothing
	again := f.save(t, task, "2024-01-05", models.RecordStatusFailed, b.ID, a.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 1, "busy": 1, "weather": 0})
	if again.ID != first.ID {
		t.Errorf("re-save changed record id from %s to %s", first.ID, again.ID)
	}

	f.save(t, task, "2024-01-05", models.RecordStatusFailed, b.ID, c.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 0, "busy": 1, "weather": 1})

	f.save(t, task, "2024-01-05", models.RecordStatusCompleted, b.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 0, "busy": 0, "weather": 0})

	records, err := f.records.ListByUser(context.Background(), f.user.ID, models.DateRange{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected a single record per task and date, got %d", len(records))
	}
	if records[0].Status != models.RecordStatusCompleted || len(records[0].FailureTagIDs) != 0 {
		t.Errorf("stored record = %+v, want completed without tags", records[0])
	}
}

func TestRecordRepository_UpsertReturnsPrevious(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Read")
	date, _ := models.ParseDate("2024-02-01")

	rec := &models.TaskRecord{TaskID: task.ID, UserID: f.user.ID, Date: date, Status: models.RecordStatusDelayed, Memo: "late"}
	prev, err := f.records.Upsert(context.Background(), rec)
	if err != nil || prev != nil {
		t.Fatalf("first Upsert() = %v, %v; want nil previous", prev, err)
	}

	rec2 := &models.TaskRecord{TaskID: task.ID, UserID: f.user.ID, Date: date, Status: models.RecordStatusCompleted}
	prev, err = f.records.Upsert(context.Background(), rec2)
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	if prev == nil || prev.Status != models.RecordStatusDelayed || prev.Memo != "late" {
		t.Errorf("previous = %+v, want the delayed record", prev)
	}
}

func TestRecordRepository_UpsertRejectsUnknownReferences(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Stretch")
	other := f.createUser(t, "other@example.com")
	foreignTag := f.createTag(t, other.ID, "tired")
	date, _ := models.ParseDate("2024-01-05")

	tests := []struct {
		name string
		rec  *models.TaskRecord
	}{
		{
			name: "unknown task",
			rec:  &models.TaskRecord{TaskID: uuid.New(), UserID: f.user.ID, Date: date, Status: models.RecordStatusCompleted},
		},
		{
			name: "unknown tag",
			rec:  &models.TaskRecord{TaskID: task.ID, UserID: f.user.ID, Date: date, Status: models.RecordStatusFailed, FailureTagIDs: []uuid.UUID{uuid.New()}},
		},
		{
			name: "tag of another user",
			rec:  &models.TaskRecord{TaskID: task.ID, UserID: f.user.ID, Date: date, Status: models.RecordStatusFailed, FailureTagIDs: []uuid.UUID{foreignTag.ID}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.records.Upsert(context.Background(), tt.rec)
			if !models.IsReferenceError(err) {
				t.Errorf("expected reference error, got %v", err)
			}
		})
	}

	records, err := f.records.ListByUser(context.Background(), f.user.ID, models.DateRange{})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("rejected saves must not persist, found %d records", len(records))
	}
}

func TestRecordRepository_DeleteReversesUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Run")
	tag := f.createTag(t, f.user.ID, "tired")

	rec := f.save(t, task, "2024-01-05", models.RecordStatusFailed, tag.ID)
	f.save(t, task, "2024-01-06", models.RecordStatusFailed, tag.ID)
	assertUsage(t, f.usage(t), map[string]int{"tired": 2})

	if err := f.records.Delete(context.Background(), f.user.ID, rec.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	assertUsage(t, f.usage(t), map[string]int{"tired": 1})

	err := f.records.Delete(context.Background(), f.user.ID, rec.ID)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestRecordRepository_ListByUserRange(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	task := f.createTask(t, f.user.ID, "Run")
	for _, date := range []string{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"} {
		f.save(t, task, date, models.RecordStatusCompleted)
	}
	from, _ := models.ParseDate("2024-01-02")
	to, _ := models.ParseDate("2024-01-03")

	records, err := f.records.ListByUser(context.Background(), f.user.ID, models.DateRange{From: from, To: to})
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Date != to || records[1].Date != from {
		t.Errorf("expected newest first, got %s, %s", records[0].Date, records[1].Date)
	}

	other := f.createUser(t, "other@example.com")
	records, err = f.records.ListByUser(context.Background(), other.ID, models.DateRange{})
	if err != nil || len(records) != 0 {
		t.Errorf("other user sees %d records (err %v)", len(records), err)
	}
}
