package scoring

import (
	"log/slog"

	"github.com/MikeSquared-Agency/Wellspring/internal/metrics"
)

// Mode labels why an evaluation ran.
type Mode string

const (
	ModeSubmit   Mode = "submit"
	ModeReassess Mode = "reassess"
	ModePreview  Mode = "preview"
)

// Scorer runs validate → score → aggregate → classify over a Registry. It
// holds no mutable state and never touches storage.
type Scorer struct {
	registry *Registry
	logger   *slog.Logger
}

// NewScorer creates a Scorer and logs allowed answers that have no score
// table entry, since those silently take the question default.
func NewScorer(registry *Registry, logger *slog.Logger) *Scorer {
	for _, cfg := range registry.Types() {
		if unscored := registry.Unscored(cfg.ID); len(unscored) > 0 {
			logger.Warn("allowed answers without score entries will score the default",
				"assessment_type", cfg.ID,
				"answers", unscored,
			)
		}
	}
	return &Scorer{registry: registry, logger: logger}
}

// Registry returns the registry the scorer evaluates against.
func (s *Scorer) Registry() *Registry {
	return s.registry
}

// Evaluate scores answers for typeID. Validation failures return a
// *ValidationError before any scoring happens.
func (s *Scorer) Evaluate(typeID string, answers Answers, mode Mode) (*ScoringResult, error) {
	if err := s.registry.Validate(typeID, answers); err != nil {
		if IsValidation(err) {
			metrics.ValidationFailures.WithLabelValues(typeID).Inc()
		}
		return nil, err
	}
	ct := s.registry.types[typeID]

	result := &ScoringResult{SubScores: make(map[string]float64, len(ct.questions))}
	if len(ct.cfg.Dimensions) > 0 {
		result.Dimensions = make(map[string]int, len(ct.cfg.Dimensions))
		for _, d := range ct.cfg.Dimensions {
			result.Dimensions[d] = 0
		}
	}

	var total float64
	for _, q := range ct.questions {
		a, present := answers[q.Key]
		sub := q.DefaultScore
		if present {
			var matched bool
			sub, matched = q.score(a)
			if !matched {
				s.logger.Warn("answer has no score entry, using default",
					"assessment_type", typeID,
					"question", q.Key,
					"value", a.Value,
					"default", q.DefaultScore,
				)
				metrics.UnknownAnswers.WithLabelValues(typeID, q.Key).Inc()
			}
			tallyDimensions(result.Dimensions, q, a)
		}
		result.SubScores[q.Key] = sub
		total += sub
	}

	if ct.cfg.Aggregation == AggregateMean {
		total = roundScore(total / float64(len(ct.questions)))
	}
	result.AggregateScore = total

	c := ct.classify(total)
	result.RiskTier = c.Tier
	result.RiskDescription = c.Description
	result.Recommendations = c.Recommendations
	result.DominantDimension = dominant(ct.cfg.Dimensions, result.Dimensions)

	metrics.AssessmentsScored.WithLabelValues(typeID, result.RiskTier, string(mode)).Inc()
	return result, nil
}

// Preview is Evaluate for what-if calls; it exists so callers cannot
// confuse the two paths.
func (s *Scorer) Preview(typeID string, answers Answers) (*ScoringResult, error) {
	return s.Evaluate(typeID, answers, ModePreview)
}

func tallyDimensions(tally map[string]int, q *compiledQuestion, a Answer) {
	if tally == nil || len(q.DimensionMap) == 0 {
		return
	}
	values := a.Values
	if !a.Multi {
		values = []string{a.Value}
	}
	for _, v := range values {
		if d, ok := q.DimensionMap[v]; ok {
			tally[d]++
		}
	}
}

// dominant returns the dimension with the highest count. Ties go to the
// dimension declared first; all-zero tallies have no dominant dimension.
func dominant(order []string, tally map[string]int) string {
	best, bestN := "", 0
	for _, d := range order {
		if n := tally[d]; n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
