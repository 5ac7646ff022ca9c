package scoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Aggregation selects how sub-scores are combined into the aggregate score.
type Aggregation string

const (
	AggregateSum  Aggregation = "sum"
	AggregateMean Aggregation = "mean"
)

// TypeConfig is the static definition of one assessment type.
type TypeConfig struct {
	ID          string      `yaml:"id" json:"id"`
	Name        string      `yaml:"name" json:"name"`
	Description string      `yaml:"description" json:"description,omitempty"`
	Aggregation Aggregation `yaml:"aggregation" json:"aggregation"`
	Dimensions  []string    `yaml:"dimensions" json:"dimensions,omitempty"`
	Questions   []Question  `yaml:"questions" json:"questions"`
	RiskTiers   []RiskTier  `yaml:"risk_tiers" json:"risk_tiers"`
}

// Question declares one answer key of an assessment type.
//
// Single-select questions score through ScoreTable. Multi-select questions
// score the number of selected RiskValues, capped at Cap.
type Question struct {
	Key           string             `yaml:"key" json:"key"`
	Text          string             `yaml:"text" json:"text"`
	AllowedValues []string           `yaml:"allowed_values" json:"allowed_values"`
	MultiSelect   bool               `yaml:"multi_select" json:"multi_select"`
	Required      *bool              `yaml:"required" json:"required,omitempty"`
	ScoreTable    map[string]float64 `yaml:"score_table" json:"score_table,omitempty"`
	DefaultScore  float64            `yaml:"default_score" json:"default_score"`
	RiskValues    []string           `yaml:"risk_values" json:"risk_values,omitempty"`
	Cap           int                `yaml:"cap" json:"cap,omitempty"`
	DimensionMap  map[string]string  `yaml:"dimension_map" json:"dimension_map,omitempty"`
}

// IsRequired reports whether the question must be answered. Questions are
// required unless explicitly marked otherwise.
func (q Question) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// RiskTier is one threshold rule. A tier covers [MinScore, next tier's MinScore).
type RiskTier struct {
	MinScore        float64  `yaml:"min_score" json:"min_score"`
	Tier            string   `yaml:"tier" json:"tier"`
	Description     string   `yaml:"description" json:"description"`
	Recommendations []string `yaml:"recommendations" json:"recommendations"`
}

// Answer is a submitted value: a scalar for single-select questions or a
// list for multi-select ones.
type Answer struct {
	Value  string
	Values []string
	Multi  bool
}

// Single builds a scalar answer.
func Single(v string) Answer { return Answer{Value: v} }

// Multi builds a list answer.
func Multi(vs ...string) Answer {
	if vs == nil {
		vs = []string{}
	}
	return Answer{Values: vs, Multi: true}
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Multi {
		vs := a.Values
		if vs == nil {
			vs = []string{}
		}
		return json.Marshal(vs)
	}
	return json.Marshal(a.Value)
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var vs []string
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		*a = Multi(vs...)
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("answer must be a string or a list of strings: %w", err)
	}
	*a = Single(v)
	return nil
}

// Answers maps question key to submitted answer.
type Answers map[string]Answer

// Keys returns the answer keys in sorted order.
func (a Answers) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ScoringResult is the immutable output of one evaluation.
type ScoringResult struct {
	SubScores         map[string]float64 `json:"scores"`
	AggregateScore    float64            `json:"aggregate_score"`
	RiskTier          string             `json:"risk_tier"`
	RiskDescription   string             `json:"risk_description"`
	Recommendations   []string           `json:"recommendations"`
	Dimensions        map[string]int     `json:"dimensions,omitempty"`
	DominantDimension string             `json:"dominant_dimension,omitempty"`
}

// Classification is the output of the risk classifier.
type Classification struct {
	Tier            string   `json:"tier"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations"`
}
