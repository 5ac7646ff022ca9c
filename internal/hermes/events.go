package hermes

import "time"

// AssessmentEvent is published for every record lifecycle change. Answers
// are never included.
type AssessmentEvent struct {
	RecordID       string    `json:"record_id"`
	UserID         string    `json:"user_id"`
	AssessmentType string    `json:"assessment_type"`
	Event          string    `json:"event"`
	AggregateScore float64   `json:"aggregate_score,omitempty"`
	RiskTier       string    `json:"risk_tier,omitempty"`
	IsLatest       bool      `json:"is_latest"`
	Timestamp      time.Time `json:"timestamp"`
}
