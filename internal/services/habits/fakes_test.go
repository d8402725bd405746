package habits

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/benvon/smart-habits/internal/engine"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/google/uuid"
)

// memStore is an in-memory stand-in for the SQL repositories
type memStore struct {
	mu      sync.Mutex
	tasks   map[uuid.UUID]*models.Task
	tags    map[uuid.UUID]*models.UserTag
	records map[uuid.UUID]*models.TaskRecord
	users   map[uuid.UUID]*models.User

	// upsertRecordErr, when set, fails the next record upsert
	upsertRecordErr error
}

func newMemStore() *memStore {
	return &memStore{
		tasks:   make(map[uuid.UUID]*models.Task),
		tags:    make(map[uuid.UUID]*models.UserTag),
		records: make(map[uuid.UUID]*models.TaskRecord),
		users:   make(map[uuid.UUID]*models.User),
	}
}

type memTasks struct{ s *memStore }
type memTags struct{ s *memStore }
type memRecords struct{ s *memStore }
type memUsers struct{ s *memStore }

func copyTask(t *models.Task) *models.Task {
	c := *t
	c.DaysOfWeek = append(models.DaysOfWeek(nil), t.DaysOfWeek...)
	return &c
}

func (m memTasks) Create(_ context.Context, task *models.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.tasks[task.ID] = copyTask(task)
	return nil
}

func (m memTasks) GetByID(_ context.Context, userID, id uuid.UUID) (*models.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	task, ok := m.s.tasks[id]
	if !ok || task.UserID != userID {
		return nil, fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	return copyTask(task), nil
}

func (m memTasks) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.Task, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.Task
	for _, task := range m.s.tasks {
		if task.UserID == userID {
			out = append(out, copyTask(task))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m memTasks) Update(_ context.Context, task *models.Task) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	existing, ok := m.s.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return fmt.Errorf("task %s: %w", task.ID, models.ErrNotFound)
	}
	m.s.tasks[task.ID] = copyTask(task)
	return nil
}

func (m memTasks) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	task, ok := m.s.tasks[id]
	if !ok || task.UserID != userID {
		return fmt.Errorf("task %s: %w", id, models.ErrNotFound)
	}
	for recID, rec := range m.s.records {
		if rec.TaskID == id {
			m.s.applyDelta(engine.TagUsageDelta(rec, nil))
			delete(m.s.records, recID)
		}
	}
	delete(m.s.tasks, id)
	return nil
}

func (s *memStore) applyDelta(delta map[uuid.UUID]int) {
	for id, change := range delta {
		if tag, ok := s.tags[id]; ok {
			tag.UsageCount = engine.ApplyUsage(tag.UsageCount, change)
		}
	}
}

func (m memTags) Upsert(_ context.Context, tag *models.UserTag) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, other := range m.s.tags {
		if other.UserID == tag.UserID && other.Name == tag.Name && other.ID != tag.ID {
			return &models.ConflictError{Message: "duplicate"}
		}
	}
	if existing, ok := m.s.tags[tag.ID]; ok {
		if existing.UserID != tag.UserID {
			return models.ErrNotFound
		}
		existing.Name = tag.Name
		*tag = *existing
		return nil
	}
	stored := *tag
	stored.UsageCount = 0
	m.s.tags[tag.ID] = &stored
	*tag = stored
	return nil
}

func (m memTags) GetByID(_ context.Context, userID, id uuid.UUID) (*models.UserTag, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	tag, ok := m.s.tags[id]
	if !ok || tag.UserID != userID {
		return nil, models.ErrNotFound
	}
	c := *tag
	return &c, nil
}

func (m memTags) ListByUser(_ context.Context, userID uuid.UUID) ([]*models.UserTag, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.UserTag
	for _, tag := range m.s.tags {
		if tag.UserID == userID {
			c := *tag
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m memTags) Delete(_ context.Context, userID, id uuid.UUID) (int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	tag, ok := m.s.tags[id]
	if !ok || tag.UserID != userID {
		return 0, models.ErrNotFound
	}
	delete(m.s.tags, id)
	detached := 0
	for _, rec := range m.s.records {
		if !rec.HasTag(id) {
			continue
		}
		var kept []uuid.UUID
		for _, tagID := range rec.FailureTagIDs {
			if tagID != id {
				kept = append(kept, tagID)
			}
		}
		rec.FailureTagIDs = kept
		detached++
	}
	return detached, nil
}

func (m memTags) RecountUsage(_ context.Context, userID uuid.UUID) (map[uuid.UUID]int, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var tags []*models.UserTag
	for _, tag := range m.s.tags {
		if tag.UserID == userID {
			tags = append(tags, tag)
		}
	}
	var records []*models.TaskRecord
	for _, rec := range m.s.records {
		if rec.UserID == userID {
			records = append(records, rec)
		}
	}
	counts := engine.RecountUsage(tags, records)
	for _, tag := range tags {
		tag.UsageCount = counts[tag.ID]
	}
	return counts, nil
}

func (m memRecords) Upsert(_ context.Context, rec *models.TaskRecord) (*models.TaskRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if err := m.s.upsertRecordErr; err != nil {
		m.s.upsertRecordErr = nil
		return nil, err
	}
	task, ok := m.s.tasks[rec.TaskID]
	if !ok || task.UserID != rec.UserID {
		return nil, &models.ReferenceError{Entity: "task", ID: rec.TaskID.String()}
	}
	for _, id := range rec.FailureTagIDs {
		if tag, ok := m.s.tags[id]; !ok || tag.UserID != rec.UserID {
			return nil, &models.ReferenceError{Entity: "tag", ID: id.String()}
		}
	}

	var previous *models.TaskRecord
	for _, existing := range m.s.records {
		if existing.TaskID == rec.TaskID && existing.Date == rec.Date {
			c := *existing
			previous = &c
			rec.ID = existing.ID
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	stored := *rec
	m.s.records[rec.ID] = &stored
	m.s.applyDelta(engine.TagUsageDelta(previous, rec))
	return previous, nil
}

func (m memRecords) GetByID(_ context.Context, userID, id uuid.UUID) (*models.TaskRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rec, ok := m.s.records[id]
	if !ok || rec.UserID != userID {
		return nil, models.ErrNotFound
	}
	c := *rec
	return &c, nil
}

func (m memRecords) Delete(_ context.Context, userID, id uuid.UUID) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	rec, ok := m.s.records[id]
	if !ok || rec.UserID != userID {
		return models.ErrNotFound
	}
	m.s.applyDelta(engine.TagUsageDelta(rec, nil))
	delete(m.s.records, id)
	return nil
}

func (m memRecords) ListByUser(_ context.Context, userID uuid.UUID, dates models.DateRange) ([]*models.TaskRecord, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var out []*models.TaskRecord
	for _, rec := range m.s.records {
		if rec.UserID != userID {
			continue
		}
		if !dates.From.IsZero() && rec.Date.Before(dates.From) {
			continue
		}
		if !dates.To.IsZero() && rec.Date.After(dates.To) {
			continue
		}
		c := *rec
		out = append(out, &c)
	}
	return out, nil
}

func (m memUsers) Create(_ context.Context, user *models.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c := *user
	m.s.users[user.ID] = &c
	return nil
}

func (m memUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	user, ok := m.s.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *user
	return &c, nil
}

func (m memUsers) GetByProviderID(_ context.Context, providerID string) (*models.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, user := range m.s.users {
		if user.ProviderID != nil && *user.ProviderID == providerID {
			c := *user
			return &c, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m memUsers) UpdateSettings(_ context.Context, id uuid.UUID, settings models.UserSettings) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	user, ok := m.s.users[id]
	if !ok {
		return models.ErrNotFound
	}
	user.Settings = settings
	return nil
}

func (m memUsers) ListIDs(_ context.Context) ([]uuid.UUID, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var ids []uuid.UUID
	for id := range m.s.users {
		ids = append(ids, id)
	}
	return ids, nil
}

// mockRecountScheduler records scheduled recounts
type mockRecountScheduler struct {
	err   error
	calls []uuid.UUID
}

func (m *mockRecountScheduler) ScheduleRecount(_ context.Context, userID uuid.UUID) error {
	m.calls = append(m.calls, userID)
	return m.err
}

func (s *memStore) usage(t *testing.T, id uuid.UUID) int {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	tag, ok := s.tags[id]
	if !ok {
		t.Fatalf("tag %s not found", id)
	}
	return tag.UsageCount
}
