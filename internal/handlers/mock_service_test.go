package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/request"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var errUnexpectedCall = errors.New("unexpected call")

// mockHabitService answers each call through an optional func field
type mockHabitService struct {
	createTask    func(uuid.UUID, habits.TaskInput) (*models.Task, error)
	updateTask    func(uuid.UUID, uuid.UUID, habits.TaskPatch) (*models.Task, error)
	setTaskActive func(uuid.UUID, uuid.UUID, *bool) (*models.Task, error)
	deleteTask    func(uuid.UUID, uuid.UUID) error
	getTask       func(uuid.UUID, uuid.UUID) (*models.Task, error)
	listTasks     func(uuid.UUID) ([]*models.Task, error)
	upcoming      func(uuid.UUID, int) ([]engine.UpcomingOccurrence, error)

	addTag    func(uuid.UUID, string) (*models.UserTag, error)
	renameTag func(uuid.UUID, uuid.UUID, string) (*models.UserTag, error)
	deleteTag func(uuid.UUID, uuid.UUID) (int, error)
	listTags  func(uuid.UUID) ([]*models.UserTag, error)

	saveRecord   func(uuid.UUID, habits.RecordInput) (*models.TaskRecord, error)
	deleteRecord func(uuid.UUID, uuid.UUID) error
	history      func(uuid.UUID, models.DateRange) ([]models.RecordGroup, error)

	day       func(uuid.UUID, models.Date) (*habits.DayView, error)
	todayView func(uuid.UUID) (*habits.DayView, error)
	stats     func(uuid.UUID, models.Date) (models.UserStats, error)
	weekly    func(uuid.UUID, models.Date) (models.WeeklyStats, error)

	getSettings    func(uuid.UUID) (models.UserSettings, error)
	updateSettings func(uuid.UUID, habits.SettingsPatch) (models.UserSettings, error)
}

var _ HabitService = (*mockHabitService)(nil)

func (m *mockHabitService) CreateTask(_ context.Context, userID uuid.UUID, in habits.TaskInput) (*models.Task, error) {
	if m.createTask == nil {
		return nil, errUnexpectedCall
	}
	return m.createTask(userID, in)
}

func (m *mockHabitService) UpdateTask(_ context.Context, userID, id uuid.UUID, patch habits.TaskPatch) (*models.Task, error) {
	if m.updateTask == nil {
		return nil, errUnexpectedCall
	}
	return m.updateTask(userID, id, patch)
}

func (m *mockHabitService) SetTaskActive(_ context.Context, userID, id uuid.UUID, active *bool) (*models.Task, error) {
	if m.setTaskActive == nil {
		return nil, errUnexpectedCall
	}
	return m.setTaskActive(userID, id, active)
}

func (m *mockHabitService) DeleteTask(_ context.Context, userID, id uuid.UUID) error {
	if m.deleteTask == nil {
		return errUnexpectedCall
	}
	return m.deleteTask(userID, id)
}

func (m *mockHabitService) GetTask(_ context.Context, userID, id uuid.UUID) (*models.Task, error) {
	if m.getTask == nil {
		return nil, errUnexpectedCall
	}
	return m.getTask(userID, id)
}

func (m *mockHabitService) ListTasks(_ context.Context, userID uuid.UUID) ([]*models.Task, error) {
	if m.listTasks == nil {
		return nil, errUnexpectedCall
	}
	return m.listTasks(userID)
}

func (m *mockHabitService) Upcoming(_ context.Context, userID uuid.UUID, days int) ([]engine.UpcomingOccurrence, error) {
	if m.upcoming == nil {
		return nil, errUnexpectedCall
	}
	return m.upcoming(userID, days)
}

func (m *mockHabitService) AddTag(_ context.Context, userID uuid.UUID, name string) (*models.UserTag, error) {
	if m.addTag == nil {
		return nil, errUnexpectedCall
	}
	return m.addTag(userID, name)
}

func (m *mockHabitService) RenameTag(_ context.Context, userID, id uuid.UUID, name string) (*models.UserTag, error) {
	if m.renameTag == nil {
		return nil, errUnexpectedCall
	}
	return m.renameTag(userID, id, name)
}

func (m *mockHabitService) DeleteTag(_ context.Context, userID, id uuid.UUID) (int, error) {
	if m.deleteTag == nil {
		return 0, errUnexpectedCall
	}
	return m.deleteTag(userID, id)
}

func (m *mockHabitService) ListTags(_ context.Context, userID uuid.UUID) ([]*models.UserTag, error) {
	if m.listTags == nil {
		return nil, errUnexpectedCall
	}
	return m.listTags(userID)
}

func (m *mockHabitService) SaveRecord(_ context.Context, userID uuid.UUID, in habits.RecordInput) (*models.TaskRecord, error) {
	if m.saveRecord == nil {
		return nil, errUnexpectedCall
	}
	return m.saveRecord(userID, in)
}

func (m *mockHabitService) DeleteRecord(_ context.Context, userID, id uuid.UUID) error {
	if m.deleteRecord == nil {
		return errUnexpectedCall
	}
	return m.deleteRecord(userID, id)
}

func (m *mockHabitService) History(_ context.Context, userID uuid.UUID, dates models.DateRange) ([]models.RecordGroup, error) {
	if m.history == nil {
		return nil, errUnexpectedCall
	}
	return m.history(userID, dates)
}

func (m *mockHabitService) Day(_ context.Context, userID uuid.UUID, date models.Date) (*habits.DayView, error) {
	if m.day == nil {
		return nil, errUnexpectedCall
	}
	return m.day(userID, date)
}

func (m *mockHabitService) TodayView(_ context.Context, userID uuid.UUID) (*habits.DayView, error) {
	if m.todayView == nil {
		return nil, errUnexpectedCall
	}
	return m.todayView(userID)
}

func (m *mockHabitService) Stats(_ context.Context, userID uuid.UUID, asOf models.Date) (models.UserStats, error) {
	if m.stats == nil {
		return models.UserStats{}, errUnexpectedCall
	}
	return m.stats(userID, asOf)
}

func (m *mockHabitService) Weekly(_ context.Context, userID uuid.UUID, asOf models.Date) (models.WeeklyStats, error) {
	if m.weekly == nil {
		return models.WeeklyStats{}, errUnexpectedCall
	}
	return m.weekly(userID, asOf)
}

func (m *mockHabitService) GetSettings(_ context.Context, userID uuid.UUID) (models.UserSettings, error) {
	if m.getSettings == nil {
		return models.UserSettings{}, errUnexpectedCall
	}
	return m.getSettings(userID)
}

func (m *mockHabitService) UpdateSettings(_ context.Context, userID uuid.UUID, patch habits.SettingsPatch) (models.UserSettings, error) {
	if m.updateSettings == nil {
		return models.UserSettings{}, errUnexpectedCall
	}
	return m.updateSettings(userID, patch)
}

// newTestRouter mounts every habit handler the way the server does
func newTestRouter(svc HabitService) *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	NewTaskHandler(svc, zap.NewNop()).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	NewTagHandler(svc, zap.NewNop()).RegisterRoutes(api.PathPrefix("/tags").Subrouter())
	NewRecordHandler(svc, zap.NewNop()).RegisterRoutes(api.PathPrefix("/records").Subrouter())
	NewSettingsHandler(svc, zap.NewNop()).RegisterRoutes(api.PathPrefix("/settings").Subrouter())
	NewDayHandler(svc, zap.NewNop()).RegisterRoutes(api)
	return router
}

func newTestUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "test@example.com"}
}

// serve runs one request as user; a nil user is unauthenticated
func serve(t *testing.T, router http.Handler, user *models.User, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if user != nil {
		req = req.WithContext(request.WithUser(req.Context(), user))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// envelope is the response wrapper written by respondJSON and respondJSONError
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()

	var env envelope
	if err := json.NewDecoder(w.Body).Decode(&env); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("Failed to decode data: %v", err)
		}
	}
	return env
}
