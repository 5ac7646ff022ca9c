package records

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
	"github.com/MikeSquared-Agency/Wellspring/internal/store"
)

func TestGetStatsEmptyHistory(t *testing.T) {
	f := newFixture(t)
	st, err := f.mgr.GetStats(context.Background(), "U", "thyroid")
	require.NoError(t, err)
	assert.Zero(t, st.TotalAssessments)
	assert.Nil(t, st.Improvement)
	assert.Empty(t, st.Timeline)

	_, err = f.mgr.GetStats(context.Background(), "U", "sleep")
	assert.ErrorIs(t, err, scoring.ErrUnknownType)
}

func TestGetStatsImprovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.mgr.Create(ctx, "U", "menopause", menopause("Severe"))
	require.NoError(t, err)
	_, err = f.mgr.Create(ctx, "U", "menopause", menopause("Moderate"))
	require.NoError(t, err)
	_, err = f.mgr.Create(ctx, "U", "menopause", menopause("Mild"))
	require.NoError(t, err)

	st, err := f.mgr.GetStats(ctx, "U", "menopause")
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalAssessments)
	assert.Equal(t, map[string]int{"High": 1, "Moderate": 1, "Low": 1}, st.TierDistribution)
	// (2.67 + 1.78 + 0.89) / 3
	assert.Equal(t, 1.78, st.AverageScore)

	require.Len(t, st.Timeline, 3)
	assert.Equal(t, "High", st.Timeline[0].RiskTier)
	assert.Equal(t, "Low", st.Timeline[2].RiskTier)

	imp := st.Improvement
	require.NotNil(t, imp)
	assert.Equal(t, -0.89, imp.ScoreDifference)
	require.NotNil(t, imp.PercentageChange)
	assert.Equal(t, -50.0, *imp.PercentageChange)
	assert.True(t, imp.TierChanged)
	assert.True(t, imp.Improved)
	assert.Equal(t, "Moderate", imp.PreviousTier)
	assert.Equal(t, "Low", imp.CurrentTier)
}

func TestSummariseZeroPreviousScore(t *testing.T) {
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	recs := []*store.AssessmentRecord{
		{AggregateScore: 3, RiskTier: "Low", AssessmentDate: day.AddDate(0, 0, 1)},
		{AggregateScore: 0, RiskTier: "Low", AssessmentDate: day},
	}
	st := summarise("thyroid", recs)
	require.NotNil(t, st.Improvement)
	assert.Nil(t, st.Improvement.PercentageChange)
	assert.Equal(t, 3.0, st.Improvement.ScoreDifference)
	assert.False(t, st.Improvement.TierChanged)
	assert.False(t, st.Improvement.Improved)
	assert.Equal(t, 1.5, st.AverageScore)
}
