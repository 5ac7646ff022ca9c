package scoring

// Classify maps an aggregate score to the risk tier of typeID. Tiers are
// walked highest threshold first; a score below every threshold (which a
// validated registry cannot produce) resolves to the lowest tier.
func (r *Registry) Classify(typeID string, score float64) (Classification, error) {
	ct, ok := r.types[typeID]
	if !ok {
		return Classification{}, ErrUnknownType
	}
	return ct.classify(score), nil
}

func (ct *compiledType) classify(score float64) Classification {
	t := ct.tiers[0]
	for i := len(ct.tiers) - 1; i >= 0; i-- {
		if score >= ct.tiers[i].MinScore {
			t = ct.tiers[i]
			break
		}
	}
	recs := make([]string, len(t.Recommendations))
	copy(recs, t.Recommendations)
	return Classification{Tier: t.Tier, Description: t.Description, Recommendations: recs}
}
