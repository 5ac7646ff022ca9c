// Package records owns the lifecycle of persisted assessment records: it
// scores submissions, keeps one latest record per user and type, and
// publishes lifecycle events.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Wellspring/internal/hermes"
	"github.com/MikeSquared-Agency/Wellspring/internal/lock"
	"github.com/MikeSquared-Agency/Wellspring/internal/metrics"
	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
	"github.com/MikeSquared-Agency/Wellspring/internal/store"
)

// ErrNotFound covers both missing records and records owned by someone else.
var ErrNotFound = errors.New("assessment not found")

type Options struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Manager struct {
	store  store.Store
	scorer *scoring.Scorer
	locker lock.Locker
	hermes hermes.Client
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

func New(s store.Store, sc *scoring.Scorer, l lock.Locker, h hermes.Client, opts Options, logger *slog.Logger) *Manager {
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 10
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &Manager{
		store:  s,
		scorer: sc,
		locker: l,
		hermes: h,
		opts:   opts,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create scores answers and stores them as the user's latest record of
// typeID.
func (m *Manager) Create(ctx context.Context, userID, typeID string, answers scoring.Answers) (*store.AssessmentRecord, error) {
	res, err := m.scorer.Evaluate(typeID, answers, scoring.ModeSubmit)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, lock.Key(userID, typeID))
	if err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer unlock()

	rec := &store.AssessmentRecord{
		UserID:         userID,
		AssessmentType: typeID,
		Answers:        answers,
		AssessmentDate: m.now(),
	}
	rec.ApplyResult(res)
	if err := m.store.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	metrics.RecordMutations.WithLabelValues(typeID, "create").Inc()

	m.logger.Info("assessment recorded",
		"record_id", rec.ID,
		"user_id", userID,
		"assessment_type", typeID,
		"risk_tier", rec.RiskTier,
	)
	m.publish(hermes.EventCreated, rec)
	return rec, nil
}

// Update reassesses an existing record in place: answers, scores and date are
// overwritten and the record becomes the user's latest.
func (m *Manager) Update(ctx context.Context, recordID uuid.UUID, userID string, answers scoring.Answers) (*store.AssessmentRecord, error) {
	existing, err := m.Get(ctx, recordID, userID)
	if err != nil {
		return nil, err
	}

	res, err := m.scorer.Evaluate(existing.AssessmentType, answers, scoring.ModeReassess)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locker.Lock(ctx, lock.Key(userID, existing.AssessmentType))
	if err != nil {
		return nil, fmt.Errorf("lock history: %w", err)
	}
	defer unlock()

	rec := *existing
	rec.Answers = answers
	rec.AssessmentDate = m.now()
	rec.ApplyResult(res)
	if err := m.store.UpdateRecord(ctx, &rec); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update record: %w", err)
	}
	metrics.RecordMutations.WithLabelValues(rec.AssessmentType, "reassess").Inc()

	m.logger.Info("assessment reassessed",
		"record_id", rec.ID,
		"user_id", userID,
		"assessment_type", rec.AssessmentType,
		"previous_tier", existing.RiskTier,
		"risk_tier", rec.RiskTier,
	)
	m.publish(hermes.EventReassessed, &rec)
	return &rec, nil
}

// Get returns a record owned by userID.
func (m *Manager) Get(ctx context.Context, recordID uuid.UUID, userID string) (*store.AssessmentRecord, error) {
	rec, err := m.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (m *Manager) GetLatest(ctx context.Context, userID, typeID string) (*store.AssessmentRecord, error) {
	if _, err := m.scorer.Registry().Get(typeID); err != nil {
		return nil, err
	}
	rec, err := m.store.GetLatestRecord(ctx, userID, typeID)
	if err != nil {
		return nil, fmt.Errorf("get latest record: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return rec, nil
}

// HistoryPage is one page of a user's records, newest first.
type HistoryPage struct {
	Records []*store.AssessmentRecord `json:"records"`
	Total   int                       `json:"total"`
	Page    int                       `json:"page"`
	Limit   int                       `json:"limit"`
	Pages   int                       `json:"pages"`
}

// GetHistory pages through the user's records. page is 1-based; out of range
// page and limit values are clamped.
func (m *Manager) GetHistory(ctx context.Context, userID, typeID string, page, limit int) (*HistoryPage, error) {
	if _, err := m.scorer.Registry().Get(typeID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = m.opts.DefaultPageSize
	}
	if limit > m.opts.MaxPageSize {
		limit = m.opts.MaxPageSize
	}

	total, err := m.store.CountRecords(ctx, userID, typeID)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	recs, err := m.store.ListRecords(ctx, store.RecordFilter{
		UserID:         userID,
		AssessmentType: typeID,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	if recs == nil {
		recs = []*store.AssessmentRecord{}
	}
	return &HistoryPage{
		Records: recs,
		Total:   total,
		Page:    page,
		Limit:   limit,
		Pages:   (total + limit - 1) / limit,
	}, nil
}

// Delete removes a record owned by userID. If it was the latest, the most
// recent remaining record is promoted in the same store operation.
func (m *Manager) Delete(ctx context.Context, recordID uuid.UUID, userID string) error {
	existing, err := m.Get(ctx, recordID, userID)
	if err != nil {
		return err
	}

	unlock, err := m.locker.Lock(ctx, lock.Key(userID, existing.AssessmentType))
	if err != nil {
		return fmt.Errorf("lock history: %w", err)
	}
	defer unlock()

	promoted, err := m.store.DeleteRecord(ctx, recordID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete record: %w", err)
	}
	metrics.RecordMutations.WithLabelValues(existing.AssessmentType, "delete").Inc()

	m.logger.Info("assessment deleted",
		"record_id", recordID,
		"user_id", userID,
		"assessment_type", existing.AssessmentType,
		"was_latest", existing.IsLatest,
	)
	existing.IsLatest = false
	m.publish(hermes.EventDeleted, existing)
	if promoted != nil {
		m.logger.Info("promoted record to latest", "record_id", promoted.ID, "user_id", userID)
		m.publish(hermes.EventPromoted, promoted)
	}
	return nil
}

func (m *Manager) publish(event string, rec *store.AssessmentRecord) {
	ev := hermes.AssessmentEvent{
		RecordID:       rec.ID.String(),
		UserID:         rec.UserID,
		AssessmentType: rec.AssessmentType,
		Event:          event,
		AggregateScore: rec.AggregateScore,
		RiskTier:       rec.RiskTier,
		IsLatest:       rec.IsLatest,
		Timestamp:      m.now(),
	}
	if err := m.hermes.Publish(hermes.SubjectAssessment(rec.AssessmentType, event), ev); err != nil {
		metrics.EventPublishFailures.Inc()
		m.logger.Warn("failed to publish assessment event", "event", event, "record_id", rec.ID, "error", err)
	}
}
