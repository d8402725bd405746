package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestParseDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Date
		wantErr bool
	}{
		{"valid date", "2024-01-15", Date{2024, time.January, 15}, false},
		{"leap day", "2024-02-29", Date{2024, time.February, 29}, false},
		{"invalid leap day", "2023-02-29", Date{}, true},
		{"wrong layout", "15/01/2024", Date{}, true},
		{"empty", "", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDate(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDate_Arithmetic(t *testing.T) {
	t.Parallel()

	date := NewDate(2024, time.February, 28)
	if got := date.AddDays(1).String(); got != "2024-02-29" {
		t.Errorf("AddDays(1) = %s", got)
	}
	if got := date.AddDays(2).String(); got != "2024-03-01" {
		t.Errorf("AddDays(2) = %s", got)
	}
	if got := NewDate(2024, time.January, 1).AddDays(-1).String(); got != "2023-12-31" {
		t.Errorf("AddDays(-1) = %s", got)
	}
	if got := NewDate(2024, time.January, 1).DaysUntil(NewDate(2024, time.March, 1)); got != 60 {
		t.Errorf("DaysUntil() = %d, want 60", got)
	}
	// 2024-01-07 is a Sunday
	if got := NewDate(2024, time.January, 7).Weekday(); got != 0 {
		t.Errorf("Weekday() = %d, want 0", got)
	}
	if !date.Before(date.AddDays(1)) || !date.AddDays(1).After(date) {
		t.Error("expected ordering between consecutive dates")
	}
}

func TestDate_JSONAndScan(t *testing.T) {
	t.Parallel()

	date := NewDate(2024, time.May, 3)
	data, err := json.Marshal(date)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-05-03"` {
		t.Errorf("Marshal() = %s", data)
	}

	var decoded Date
	if err := json.Unmarshal([]byte(`"2024-5-3"`), &decoded); err == nil {
		t.Error("expected error for non-padded date")
	}

	sources := []any{"2024-05-03", []byte("2024-05-03"), time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)}
	for _, src := range sources {
		var scanned Date
		if err := scanned.Scan(src); err != nil {
			t.Fatalf("Scan(%T) error = %v", src, err)
		}
		if scanned != date {
			t.Errorf("Scan(%T) = %v, want %v", src, scanned, date)
		}
	}
	var scanned Date
	if err := scanned.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date Date
		want string
	}{
		{"zero", Date{}, "null"},
		{"set", NewDate(2024, time.February, 29), `"2024-02-29"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.date)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("Marshal() = %s, want %s", data, tt.want)
			}
			decoded := NewDate(1999, time.January, 1)
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", data, err)
			}
			if decoded != tt.date {
				t.Errorf("round trip = %v, want %v", decoded, tt.date)
			}
		})
	}

	var empty Date
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil || !empty.IsZero() {
		t.Errorf("Unmarshal(\"\") = %v, %v; want zero date", empty, err)
	}

	var summary DaySummary
	if err := json.Unmarshal([]byte(`{"date":null,"total":2}`), &summary); err != nil {
		t.Fatalf("Unmarshal(summary) error = %v", err)
	}
	if !summary.Date.IsZero() || summary.Total != 2 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestTask_Validate(t *testing.T) {
	t.Parallel()

	valid := func() Task {
		return Task{Title: "Stretch", ScheduledTime: "06:45", DaysOfWeek: DaysOfWeek{1, 3}, NotificationMinutesBefore: 10}
	}

	tests := []struct {
		name      string
		mutate    func(*Task)
		wantField string
	}{
		{"valid", func(*Task) {}, ""},
		{"blank title", func(t *Task) { t.Title = "   " }, "title"},
		{"bad time", func(t *Task) { t.ScheduledTime = "24:00" }, "scheduled_time"},
		{"single digit hour", func(t *Task) { t.ScheduledTime = "6:45" }, "scheduled_time"},
		{"no days", func(t *Task) { t.DaysOfWeek = nil }, "days_of_week"},
		{"duplicate day", func(t *Task) { t.DaysOfWeek = DaysOfWeek{1, 1} }, "days_of_week"},
		{"day out of range", func(t *Task) { t.DaysOfWeek = DaysOfWeek{7} }, "days_of_week"},
		{"negative notification", func(t *Task) { t.NotificationMinutesBefore = -5 }, "notification_minutes_before"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			task := valid()
			tt.mutate(&task)
			err := task.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
			}
			if verr.Field != tt.wantField {
				t.Errorf("field = %s, want %s", verr.Field, tt.wantField)
			}
		})
	}
}

func TestTaskRecord_FailureTags(t *testing.T) {
	t.Parallel()

	a, b := uuid.New(), uuid.New()

	rec := &TaskRecord{Status: RecordStatusFailed, FailureTagIDs: []uuid.UUID{a, b, a}}
	if got := rec.FailureTags(); len(got) != 2 {
		t.Errorf("FailureTags() = %v, want 2 distinct ids", got)
	}

	rec.Status = RecordStatusCompleted
	rec.Normalize()
	if rec.FailureTagIDs != nil {
		t.Errorf("expected tags cleared for completed record, got %v", rec.FailureTagIDs)
	}

	var nilRecord *TaskRecord
	if nilRecord.FailureTags() != nil {
		t.Error("nil record must have no failure tags")
	}
}

func TestTaskRecord_Validate(t *testing.T) {
	t.Parallel()

	rec := TaskRecord{TaskID: uuid.New(), Date: NewDate(2024, 1, 1), Status: RecordStatusDelayed}
	if err := rec.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec.Status = "skipped"
	if err := rec.Validate(); !IsValidationError(err) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}
}

func TestNormalizeTagName(t *testing.T) {
	t.Parallel()

	if got, err := NormalizeTagName("  tired "); err != nil || got != "tired" {
		t.Errorf("NormalizeTagName() = %q, %v", got, err)
	}
	if _, err := NormalizeTagName(" "); !IsValidationError(err) {
		t.Errorf("expected validation error for blank name, got %v", err)
	}
	long := make([]byte, MaxTagNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	if _, err := NormalizeTagName(string(long)); !IsValidationError(err) {
		t.Errorf("expected validation error for long name, got %v", err)
	}
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	wrapped := func(err error) error { return &wrapErr{err} }

	if !IsReferenceError(wrapped(&ReferenceError{Entity: "task", ID: "x"})) {
		t.Error("IsReferenceError should see through wrapping")
	}
	if !IsConflictError(wrapped(&ConflictError{Message: "dup"})) {
		t.Error("IsConflictError should see through wrapping")
	}
	if IsValidationError(ErrNotFound) {
		t.Error("ErrNotFound is not a validation error")
	}
}

type wrapErr struct{ err error }

func (w *wrapErr) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapErr) Unwrap() error { return w.err }
