package scoring

import (
	"math"
	"sort"
)

type compiledQuestion struct {
	Question
	allowed  map[string]bool
	risk     map[string]bool
	unscored []string
}

type compiledType struct {
	cfg       TypeConfig
	questions []*compiledQuestion
	byKey     map[string]*compiledQuestion
	tiers     []RiskTier // ascending by MinScore
	minScore  float64
	maxScore  float64
}

// Registry holds the validated assessment type definitions. It is safe for
// concurrent use once constructed; nothing mutates it afterwards.
type Registry struct {
	types map[string]*compiledType
	order []string
}

// NewRegistry validates every configuration and builds the registry. Any
// defect yields a *ConfigurationError and no registry, so a misconfigured
// type is never served.
func NewRegistry(configs ...TypeConfig) (*Registry, error) {
	r := &Registry{types: make(map[string]*compiledType, len(configs))}
	for _, cfg := range configs {
		if cfg.ID == "" {
			return nil, configErrorf("", "assessment type without id")
		}
		if _, dup := r.types[cfg.ID]; dup {
			return nil, configErrorf(cfg.ID, "duplicate assessment type")
		}
		ct, err := compileType(cfg)
		if err != nil {
			return nil, err
		}
		r.types[cfg.ID] = ct
		r.order = append(r.order, cfg.ID)
	}
	return r, nil
}

// Types returns every registered configuration in registration order.
func (r *Registry) Types() []TypeConfig {
	out := make([]TypeConfig, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.types[id].cfg)
	}
	return out
}

// Get returns the configuration for typeID.
func (r *Registry) Get(typeID string) (TypeConfig, error) {
	ct, ok := r.types[typeID]
	if !ok {
		return TypeConfig{}, ErrUnknownType
	}
	return ct.cfg, nil
}

// Bounds returns the lowest and highest aggregate score typeID can produce.
func (r *Registry) Bounds(typeID string) (float64, float64, error) {
	ct, ok := r.types[typeID]
	if !ok {
		return 0, 0, ErrUnknownType
	}
	return ct.minScore, ct.maxScore, nil
}

// Unscored lists "key=value" pairs that are allowed answers but have no
// score table entry. They score the question's default.
func (r *Registry) Unscored(typeID string) []string {
	ct, ok := r.types[typeID]
	if !ok {
		return nil
	}
	var out []string
	for _, q := range ct.questions {
		for _, v := range q.unscored {
			out = append(out, q.Key+"="+v)
		}
	}
	return out
}

// Validate checks answers against the schema of typeID. It returns nil, a
// *ValidationError naming every offending key, or ErrUnknownType.
func (r *Registry) Validate(typeID string, answers Answers) error {
	ct, ok := r.types[typeID]
	if !ok {
		return ErrUnknownType
	}
	verr := &ValidationError{TypeID: typeID}
	for _, q := range ct.questions {
		a, present := answers[q.Key]
		if !present {
			if q.IsRequired() {
				verr.Missing = append(verr.Missing, q.Key)
			}
			continue
		}
		switch {
		case q.MultiSelect && !a.Multi:
			verr.Invalid = append(verr.Invalid, InvalidAnswer{Key: q.Key, Value: a.Value, Reason: "expected a list of values"})
		case !q.MultiSelect && a.Multi:
			verr.Invalid = append(verr.Invalid, InvalidAnswer{Key: q.Key, Reason: "expected a single value"})
		case q.MultiSelect:
			for _, v := range a.Values {
				if !q.allowed[v] {
					verr.Invalid = append(verr.Invalid, InvalidAnswer{Key: q.Key, Value: v, Reason: "not an allowed value"})
				}
			}
		default:
			if !q.allowed[a.Value] {
				verr.Invalid = append(verr.Invalid, InvalidAnswer{Key: q.Key, Value: a.Value, Reason: "not an allowed value"})
			}
		}
	}
	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

func compileType(cfg TypeConfig) (*compiledType, error) {
	switch cfg.Aggregation {
	case AggregateSum, AggregateMean:
	default:
		return nil, configErrorf(cfg.ID, "unknown aggregation %q", cfg.Aggregation)
	}
	if len(cfg.Questions) == 0 {
		return nil, configErrorf(cfg.ID, "no questions")
	}

	dims := make(map[string]bool, len(cfg.Dimensions))
	for _, d := range cfg.Dimensions {
		if d == "" || dims[d] {
			return nil, configErrorf(cfg.ID, "empty or duplicate dimension %q", d)
		}
		dims[d] = true
	}

	ct := &compiledType{cfg: cfg, byKey: make(map[string]*compiledQuestion, len(cfg.Questions))}
	var lo, hi float64
	for _, q := range cfg.Questions {
		cq, err := compileQuestion(cfg.ID, q, dims)
		if err != nil {
			return nil, err
		}
		if _, dup := ct.byKey[q.Key]; dup {
			return nil, configErrorf(cfg.ID, "duplicate question key %q", q.Key)
		}
		ct.byKey[q.Key] = cq
		ct.questions = append(ct.questions, cq)

		qlo, qhi := cq.bounds()
		lo += qlo
		hi += qhi
	}
	if cfg.Aggregation == AggregateMean {
		n := float64(len(ct.questions))
		lo, hi = roundScore(lo/n), roundScore(hi/n)
	}
	ct.minScore, ct.maxScore = lo, hi

	tiers, err := compileTiers(cfg.ID, cfg.RiskTiers, lo, hi)
	if err != nil {
		return nil, err
	}
	ct.tiers = tiers
	return ct, nil
}

func compileQuestion(typeID string, q Question, dims map[string]bool) (*compiledQuestion, error) {
	if q.Key == "" {
		return nil, configErrorf(typeID, "question without key")
	}
	if len(q.AllowedValues) == 0 {
		return nil, configErrorf(typeID, "question %q has no allowed values", q.Key)
	}
	cq := &compiledQuestion{Question: q, allowed: make(map[string]bool, len(q.AllowedValues))}
	for _, v := range q.AllowedValues {
		if cq.allowed[v] {
			return nil, configErrorf(typeID, "question %q lists %q twice", q.Key, v)
		}
		cq.allowed[v] = true
	}

	if q.MultiSelect {
		if len(q.ScoreTable) > 0 {
			return nil, configErrorf(typeID, "multi-select question %q scores by risk_values, not score_table", q.Key)
		}
		if len(q.RiskValues) == 0 {
			return nil, configErrorf(typeID, "multi-select question %q has no risk_values", q.Key)
		}
		if q.Cap < 0 {
			return nil, configErrorf(typeID, "question %q has negative cap", q.Key)
		}
		cq.risk = make(map[string]bool, len(q.RiskValues))
		for _, v := range q.RiskValues {
			if !cq.allowed[v] {
				return nil, configErrorf(typeID, "question %q risk value %q is not an allowed value", q.Key, v)
			}
			cq.risk[v] = true
		}
	} else {
		if len(q.RiskValues) > 0 || q.Cap != 0 {
			return nil, configErrorf(typeID, "single-select question %q cannot declare risk_values or cap", q.Key)
		}
		for v, s := range q.ScoreTable {
			if !cq.allowed[v] {
				return nil, configErrorf(typeID, "question %q score table references undefined answer %q", q.Key, v)
			}
			if math.IsNaN(s) || math.IsInf(s, 0) {
				return nil, configErrorf(typeID, "question %q score for %q is not finite", q.Key, v)
			}
		}
		for _, v := range q.AllowedValues {
			if _, ok := q.ScoreTable[v]; !ok {
				cq.unscored = append(cq.unscored, v)
			}
		}
	}

	for v, d := range q.DimensionMap {
		if !cq.allowed[v] {
			return nil, configErrorf(typeID, "question %q dimension map references undefined answer %q", q.Key, v)
		}
		if !dims[d] {
			return nil, configErrorf(typeID, "question %q maps %q to undeclared dimension %q", q.Key, v, d)
		}
	}
	return cq, nil
}

// bounds returns the smallest and largest sub-score the question can yield.
func (q *compiledQuestion) bounds() (float64, float64) {
	if q.MultiSelect {
		lo, hi := 0.0, float64(q.riskCap())
		if !q.IsRequired() {
			lo = math.Min(lo, q.DefaultScore)
			hi = math.Max(hi, q.DefaultScore)
		}
		return lo, hi
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range q.AllowedValues {
		s, ok := q.ScoreTable[v]
		if !ok {
			s = q.DefaultScore
		}
		lo, hi = math.Min(lo, s), math.Max(hi, s)
	}
	if !q.IsRequired() {
		lo = math.Min(lo, q.DefaultScore)
		hi = math.Max(hi, q.DefaultScore)
	}
	return lo, hi
}

func (q *compiledQuestion) riskCap() int {
	if q.Cap == 0 || q.Cap > len(q.RiskValues) {
		return len(q.RiskValues)
	}
	return q.Cap
}

// compileTiers sorts tiers ascending and rejects lists that leave part of
// [lo, hi] uncovered, overlap, or contain a tier no score can reach.
func compileTiers(typeID string, in []RiskTier, lo, hi float64) ([]RiskTier, error) {
	if len(in) == 0 {
		return nil, configErrorf(typeID, "no risk tiers")
	}
	tiers := make([]RiskTier, len(in))
	copy(tiers, in)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinScore < tiers[j].MinScore })

	seen := make(map[string]bool, len(tiers))
	for i, t := range tiers {
		if t.Tier == "" {
			return nil, configErrorf(typeID, "risk tier without name")
		}
		if seen[t.Tier] {
			return nil, configErrorf(typeID, "duplicate risk tier %q", t.Tier)
		}
		seen[t.Tier] = true
		if math.IsNaN(t.MinScore) || math.IsInf(t.MinScore, 0) {
			return nil, configErrorf(typeID, "risk tier %q has non-finite min_score", t.Tier)
		}
		if i > 0 && t.MinScore == tiers[i-1].MinScore {
			return nil, configErrorf(typeID, "risk tiers %q and %q overlap at %g", tiers[i-1].Tier, t.Tier, t.MinScore)
		}
		if t.MinScore > hi {
			return nil, configErrorf(typeID, "risk tier %q starts at %g, above the maximum score %g", t.Tier, t.MinScore, hi)
		}
	}
	if tiers[0].MinScore > lo {
		return nil, configErrorf(typeID, "scores in [%g, %g) map to no risk tier", lo, tiers[0].MinScore)
	}
	return tiers, nil
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}
