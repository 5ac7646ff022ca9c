package scoring

// Score looks up the sub-score of one answer. It never fails: unknown types,
// unknown keys and unmapped values all yield the default score (0 unless
// the question declares another).
func (r *Registry) Score(typeID, key string, a Answer) float64 {
	ct, ok := r.types[typeID]
	if !ok {
		return 0
	}
	q, ok := ct.byKey[key]
	if !ok {
		return 0
	}
	s, _ := q.score(a)
	return s
}

// score returns the sub-score and whether it came from the table rather
// than the default.
func (q *compiledQuestion) score(a Answer) (float64, bool) {
	if q.MultiSelect {
		values := a.Values
		if !a.Multi {
			values = []string{a.Value}
		}
		seen := make(map[string]bool, len(values))
		n := 0
		for _, v := range values {
			if q.risk[v] && !seen[v] {
				seen[v] = true
				n++
			}
		}
		if limit := q.riskCap(); n > limit {
			n = limit
		}
		return float64(n), true
	}
	if a.Multi {
		return q.DefaultScore, false
	}
	s, ok := q.ScoreTable[a.Value]
	if !ok {
		return q.DefaultScore, false
	}
	return s, true
}
