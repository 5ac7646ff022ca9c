package records

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/MikeSquared-Agency/Wellspring/internal/store"
)

type TimelinePoint struct {
	Date           time.Time `json:"date"`
	AggregateScore float64   `json:"aggregate_score"`
	RiskTier       string    `json:"risk_tier"`
}

// Improvement compares the two most recent records. Lower scores are
// healthier, so Improved means the score went down.
type Improvement struct {
	ScoreDifference float64 `json:"score_difference"`
	// PercentageChange is nil when the previous score was zero.
	PercentageChange *float64 `json:"percentage_change"`
	PreviousTier     string   `json:"previous_tier"`
	CurrentTier      string   `json:"current_tier"`
	TierChanged      bool     `json:"tier_changed"`
	Improved         bool     `json:"improved"`
}

type Stats struct {
	AssessmentType   string          `json:"assessment_type"`
	TotalAssessments int             `json:"total_assessments"`
	AverageScore     float64         `json:"average_score"`
	TierDistribution map[string]int  `json:"tier_distribution"`
	Timeline         []TimelinePoint `json:"timeline"`
	Improvement      *Improvement    `json:"improvement,omitempty"`
}

// GetStats summarises the user's full history of typeID. A user with no
// records gets zeroed stats rather than an error.
func (m *Manager) GetStats(ctx context.Context, userID, typeID string) (*Stats, error) {
	if _, err := m.scorer.Registry().Get(typeID); err != nil {
		return nil, err
	}
	recs, err := m.store.ListRecords(ctx, store.RecordFilter{UserID: userID, AssessmentType: typeID})
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return summarise(typeID, recs), nil
}

// summarise expects recs newest first.
func summarise(typeID string, recs []*store.AssessmentRecord) *Stats {
	st := &Stats{
		AssessmentType:   typeID,
		TotalAssessments: len(recs),
		TierDistribution: make(map[string]int),
		Timeline:         make([]TimelinePoint, 0, len(recs)),
	}
	if len(recs) == 0 {
		return st
	}

	var total float64
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		total += r.AggregateScore
		st.TierDistribution[r.RiskTier]++
		st.Timeline = append(st.Timeline, TimelinePoint{
			Date:           r.AssessmentDate,
			AggregateScore: r.AggregateScore,
			RiskTier:       r.RiskTier,
		})
	}
	st.AverageScore = round2(total / float64(len(recs)))

	if len(recs) >= 2 {
		cur, prev := recs[0], recs[1]
		imp := &Improvement{
			ScoreDifference: round2(cur.AggregateScore - prev.AggregateScore),
			PreviousTier:    prev.RiskTier,
			CurrentTier:     cur.RiskTier,
			TierChanged:     cur.RiskTier != prev.RiskTier,
			Improved:        cur.AggregateScore < prev.AggregateScore,
		}
		if prev.AggregateScore != 0 {
			pct := round2((cur.AggregateScore - prev.AggregateScore) / prev.AggregateScore * 100)
			imp.PercentageChange = &pct
		}
		st.Improvement = imp
	}
	return st
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
