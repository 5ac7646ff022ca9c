package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

// MemoryStore keeps records in process. It is used when no database URL is
// configured and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*AssessmentRecord
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[uuid.UUID]*AssessmentRecord),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateRecord(_ context.Context, rec *AssessmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	m.demoteLocked(rec.UserID, rec.AssessmentType, uuid.Nil)

	now := m.now()
	rec.IsLatest = true
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *MemoryStore) GetRecord(_ context.Context, id uuid.UUID) (*AssessmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return clone(rec), nil
}

func (m *MemoryStore) GetLatestRecord(_ context.Context, userID, assessmentType string) (*AssessmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, rec := range m.records {
		if rec.UserID == userID && rec.AssessmentType == assessmentType && rec.IsLatest {
			return clone(rec), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListRecords(_ context.Context, filter RecordFilter) ([]*AssessmentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := m.matchLocked(filter.UserID, filter.AssessmentType)
	if filter.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	out := make([]*AssessmentRecord, len(matched))
	for i, rec := range matched {
		out[i] = clone(rec)
	}
	return out, nil
}

func (m *MemoryStore) CountRecords(_ context.Context, userID, assessmentType string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.matchLocked(userID, assessmentType)), nil
}

func (m *MemoryStore) UpdateRecord(_ context.Context, rec *AssessmentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.records[rec.ID]
	if !ok || existing.UserID != rec.UserID || existing.AssessmentType != rec.AssessmentType {
		return ErrNotFound
	}
	m.demoteLocked(rec.UserID, rec.AssessmentType, rec.ID)

	rec.IsLatest = true
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = m.now()
	m.records[rec.ID] = clone(rec)
	return nil
}

func (m *MemoryStore) DeleteRecord(_ context.Context, id uuid.UUID, userID string) (*AssessmentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok || rec.UserID != userID {
		return nil, ErrNotFound
	}
	delete(m.records, id)
	if !rec.IsLatest {
		return nil, nil
	}

	remaining := m.matchLocked(userID, rec.AssessmentType)
	if len(remaining) == 0 {
		return nil, nil
	}
	next := remaining[0]
	next.IsLatest = true
	next.UpdatedAt = m.now()
	return clone(next), nil
}

func (m *MemoryStore) Close() error { return nil }

// matchLocked returns the stored records of one user and type, newest first.
func (m *MemoryStore) matchLocked(userID, assessmentType string) []*AssessmentRecord {
	var out []*AssessmentRecord
	for _, rec := range m.records {
		if rec.UserID == userID && rec.AssessmentType == assessmentType {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssessmentDate.Equal(out[j].AssessmentDate) {
			return out[i].AssessmentDate.After(out[j].AssessmentDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) demoteLocked(userID, assessmentType string, except uuid.UUID) {
	now := m.now()
	for id, rec := range m.records {
		if id != except && rec.IsLatest && rec.UserID == userID && rec.AssessmentType == assessmentType {
			rec.IsLatest = false
			rec.UpdatedAt = now
		}
	}
}

func clone(rec *AssessmentRecord) *AssessmentRecord {
	c := *rec
	if rec.Answers != nil {
		c.Answers = make(scoring.Answers, len(rec.Answers))
		for k, v := range rec.Answers {
			v.Values = append([]string(nil), v.Values...)
			c.Answers[k] = v
		}
	}
	if rec.Scores != nil {
		c.Scores = make(map[string]float64, len(rec.Scores))
		for k, v := range rec.Scores {
			c.Scores[k] = v
		}
	}
	if rec.Dimensions != nil {
		c.Dimensions = make(map[string]int, len(rec.Dimensions))
		for k, v := range rec.Dimensions {
			c.Dimensions[k] = v
		}
	}
	c.Recommendations = append([]string(nil), rec.Recommendations...)
	return &c
}
