package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

// ErrNotFound is returned by mutations whose target record does not exist
// for the given user.
var ErrNotFound = errors.New("record not found")

// AssessmentRecord is one persisted submission.
type AssessmentRecord struct {
	ID             uuid.UUID       `json:"id"`
	UserID         string          `json:"user_id"`
	AssessmentType string          `json:"assessment_type"`
	Answers        scoring.Answers `json:"answers"`

	// Scoring result
	Scores            map[string]float64 `json:"scores"`
	AggregateScore    float64            `json:"aggregate_score"`
	RiskTier          string             `json:"risk_tier"`
	RiskDescription   string             `json:"risk_description"`
	Recommendations   []string           `json:"recommendations"`
	Dimensions        map[string]int     `json:"dimensions,omitempty"`
	DominantDimension string             `json:"dominant_dimension,omitempty"`

	AssessmentDate time.Time `json:"assessment_date"`
	IsLatest       bool      `json:"is_latest"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApplyResult copies a scoring result onto the record.
func (r *AssessmentRecord) ApplyResult(res *scoring.ScoringResult) {
	r.Scores = res.SubScores
	r.AggregateScore = res.AggregateScore
	r.RiskTier = res.RiskTier
	r.RiskDescription = res.RiskDescription
	r.Recommendations = res.Recommendations
	r.Dimensions = res.Dimensions
	r.DominantDimension = res.DominantDimension
}

// Result rebuilds the embedded scoring result.
func (r *AssessmentRecord) Result() *scoring.ScoringResult {
	return &scoring.ScoringResult{
		SubScores:         r.Scores,
		AggregateScore:    r.AggregateScore,
		RiskTier:          r.RiskTier,
		RiskDescription:   r.RiskDescription,
		Recommendations:   r.Recommendations,
		Dimensions:        r.Dimensions,
		DominantDimension: r.DominantDimension,
	}
}

type RecordFilter struct {
	UserID         string
	AssessmentType string
	Limit          int // 0 means no limit
	Offset         int
}

// Store persists assessment records. Implementations keep at most one
// record flagged latest per (user, assessment type) and perform every
// latest-flag transition atomically with the write that causes it.
type Store interface {
	// CreateRecord inserts rec as the latest record, demoting the previous one.
	CreateRecord(ctx context.Context, rec *AssessmentRecord) error
	// GetRecord returns nil, nil when no record has that id.
	GetRecord(ctx context.Context, id uuid.UUID) (*AssessmentRecord, error)
	// GetLatestRecord returns nil, nil when the user has no record of that type.
	GetLatestRecord(ctx context.Context, userID, assessmentType string) (*AssessmentRecord, error)
	// ListRecords orders by assessment date, newest first.
	ListRecords(ctx context.Context, filter RecordFilter) ([]*AssessmentRecord, error)
	CountRecords(ctx context.Context, userID, assessmentType string) (int, error)
	// UpdateRecord overwrites answers, scores and date of a record owned by
	// rec.UserID and makes it the latest. ErrNotFound if the user does not own it.
	UpdateRecord(ctx context.Context, rec *AssessmentRecord) error
	// DeleteRecord removes a record owned by userID. When it was the latest,
	// the most recent remaining record is promoted and returned.
	DeleteRecord(ctx context.Context, id uuid.UUID, userID string) (promoted *AssessmentRecord, err error)

	Close() error
}
