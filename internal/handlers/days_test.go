package handlers

import (
	"net/http"
	"testing"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/google/uuid"
)

func TestDayHandler_Day(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"valid date", "/api/v1/days/2024-01-15", http.StatusOK},
		{"invalid date", "/api/v1/days/2024-13-01", http.StatusBadRequest},
		{"today", "/api/v1/days/today", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			view := func(date models.Date) *habits.DayView {
				return &habits.DayView{Date: date, Occurrences: []models.Occurrence{}, Summary: models.DaySummary{Date: date}}
			}
			svc := &mockHabitService{
				day: func(_ uuid.UUID, date models.Date) (*habits.DayView, error) {
					if date.String() != "2024-01-15" {
						t.Errorf("date = %s", date)
					}
					return view(date), nil
				},
				todayView: func(uuid.UUID) (*habits.DayView, error) {
					d, _ := models.ParseDate("2024-01-20")
					return view(d), nil
				},
			}
			w := serve(t, newTestRouter(svc), newTestUser(), http.MethodGet, tt.path, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
		})
	}
}

func TestDayHandler_Stats(t *testing.T) {
	t.Parallel()

	want := models.UserStats{TotalTasks: 6, CompletedTasks: 5, CompletionRate: 83, LongestStreak: 5, TotalDays: 6}
	var gotAsOf models.Date
	svc := &mockHabitService{
		stats: func(_ uuid.UUID, asOf models.Date) (models.UserStats, error) {
			gotAsOf = asOf
			return want, nil
		},
	}

	w := serve(t, newTestRouter(svc), newTestUser(), http.MethodGet, "/api/v1/stats?as_of=2024-01-15", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.UserStats
	decodeEnvelope(t, w, &got)
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
	if gotAsOf.String() != "2024-01-15" {
		t.Errorf("as_of = %s", gotAsOf)
	}

	w = serve(t, newTestRouter(svc), newTestUser(), http.MethodGet, "/api/v1/stats?as_of=bogus", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for bad as_of", w.Code)
	}
}

func TestDayHandler_WeeklyDefaultsToToday(t *testing.T) {
	t.Parallel()

	svc := &mockHabitService{
		weekly: func(_ uuid.UUID, asOf models.Date) (models.WeeklyStats, error) {
			if !asOf.IsZero() {
				t.Errorf("as_of = %s, want zero", asOf)
			}
			return models.WeeklyStats{Days: make([]models.DaySummary, 7)}, nil
		},
	}
	w := serve(t, newTestRouter(svc), newTestUser(), http.MethodGet, "/api/v1/stats/weekly", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var got models.WeeklyStats
	decodeEnvelope(t, w, &got)
	if len(got.Days) != 7 {
		t.Errorf("days = %d, want 7", len(got.Days))
	}
}
