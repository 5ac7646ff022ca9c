package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

var baseDate = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newRecord(user, typ string, day int, tier string) *AssessmentRecord {
	return &AssessmentRecord{
		UserID:          user,
		AssessmentType:  typ,
		Answers:         scoring.Answers{"acidity": scoring.Single("Yes"), "pastIllness": scoring.Multi("Diabetes")},
		Scores:          map[string]float64{"acidity": 1, "pastIllness": 1},
		AggregateScore:  float64(day),
		RiskTier:        tier,
		Recommendations: []string{"Recheck in 3 months"},
		AssessmentDate:  baseDate.AddDate(0, 0, day),
	}
}

func latestCount(t *testing.T, s Store, user, typ string) int {
	t.Helper()
	recs, err := s.ListRecords(context.Background(), RecordFilter{UserID: user, AssessmentType: typ})
	require.NoError(t, err)
	n := 0
	for _, r := range recs {
		if r.IsLatest {
			n++
		}
	}
	return n
}

// runStoreContract exercises the behaviour every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create demotes previous latest", func(t *testing.T) {
		s := newStore(t)
		first := newRecord("u1", "thyroid", 1, "Low")
		require.NoError(t, s.CreateRecord(ctx, first))
		assert.NotEqual(t, uuid.Nil, first.ID)
		assert.True(t, first.IsLatest)

		second := newRecord("u1", "thyroid", 2, "High")
		require.NoError(t, s.CreateRecord(ctx, second))

		latest, err := s.GetLatestRecord(ctx, "u1", "thyroid")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, second.ID, latest.ID)

		old, err := s.GetRecord(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, old)
		assert.False(t, old.IsLatest)
		assert.Equal(t, 1, latestCount(t, s, "u1", "thyroid"))
	})

	t.Run("latest is scoped per user and type", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateRecord(ctx, newRecord("u1", "thyroid", 1, "Low")))
		require.NoError(t, s.CreateRecord(ctx, newRecord("u1", "menopause", 1, "Low")))
		require.NoError(t, s.CreateRecord(ctx, newRecord("u2", "thyroid", 1, "Low")))

		assert.Equal(t, 1, latestCount(t, s, "u1", "thyroid"))
		assert.Equal(t, 1, latestCount(t, s, "u1", "menopause"))
		assert.Equal(t, 1, latestCount(t, s, "u2", "thyroid"))
	})

	t.Run("missing records read as nil", func(t *testing.T) {
		s := newStore(t)
		rec, err := s.GetRecord(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, rec)

		rec, err = s.GetLatestRecord(ctx, "nobody", "thyroid")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("answers round trip", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord("u1", "thyroid", 1, "Low")
		rec.Dimensions = map[string]int{"vata": 2}
		rec.DominantDimension = "vata"
		require.NoError(t, s.CreateRecord(ctx, rec))

		got, err := s.GetRecord(ctx, rec.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, rec.Answers, got.Answers)
		assert.Equal(t, rec.Scores, got.Scores)
		assert.Equal(t, []string{"Recheck in 3 months"}, got.Recommendations)
		assert.Equal(t, "vata", got.DominantDimension)
		assert.Equal(t, 2, got.Dimensions["vata"])
		assert.True(t, got.AssessmentDate.Equal(rec.AssessmentDate))
	})

	t.Run("list is newest first and paginates", func(t *testing.T) {
		s := newStore(t)
		for day := 1; day <= 5; day++ {
			require.NoError(t, s.CreateRecord(ctx, newRecord("u1", "thyroid", day, "Low")))
		}
		n, err := s.CountRecords(ctx, "u1", "thyroid")
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		page, err := s.ListRecords(ctx, RecordFilter{UserID: "u1", AssessmentType: "thyroid", Limit: 2, Offset: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, 3.0, page[0].AggregateScore)
		assert.Equal(t, 2.0, page[1].AggregateScore)

		past, err := s.ListRecords(ctx, RecordFilter{UserID: "u1", AssessmentType: "thyroid", Limit: 2, Offset: 10})
		require.NoError(t, err)
		assert.Empty(t, past)
	})

	t.Run("update makes record latest", func(t *testing.T) {
		s := newStore(t)
		first := newRecord("u1", "thyroid", 1, "Low")
		require.NoError(t, s.CreateRecord(ctx, first))
		second := newRecord("u1", "thyroid", 2, "Low")
		require.NoError(t, s.CreateRecord(ctx, second))

		first.RiskTier = "High"
		first.AggregateScore = 8
		first.AssessmentDate = baseDate.AddDate(0, 0, 3)
		require.NoError(t, s.UpdateRecord(ctx, first))

		latest, err := s.GetLatestRecord(ctx, "u1", "thyroid")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, first.ID, latest.ID)
		assert.Equal(t, "High", latest.RiskTier)
		assert.Equal(t, 1, latestCount(t, s, "u1", "thyroid"))
	})

	t.Run("update by another user is not found", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord("u1", "thyroid", 1, "Low")
		require.NoError(t, s.CreateRecord(ctx, rec))

		other := *rec
		other.UserID = "u2"
		err := s.UpdateRecord(ctx, &other)
		assert.True(t, errors.Is(err, ErrNotFound))

		missing := newRecord("u1", "thyroid", 1, "Low")
		missing.ID = uuid.New()
		assert.ErrorIs(t, s.UpdateRecord(ctx, missing), ErrNotFound)
	})

	t.Run("deleting latest promotes most recent remaining", func(t *testing.T) {
		s := newStore(t)
		a := newRecord("u1", "thyroid", 1, "Low")
		b := newRecord("u1", "thyroid", 3, "Moderate")
		c := newRecord("u1", "thyroid", 2, "High")
		for _, r := range []*AssessmentRecord{a, b, c} {
			require.NoError(t, s.CreateRecord(ctx, r))
		}

		// c was created last and is latest even though b is dated later.
		promoted, err := s.DeleteRecord(ctx, c.ID, "u1")
		require.NoError(t, err)
		require.NotNil(t, promoted)
		assert.Equal(t, b.ID, promoted.ID)
		assert.True(t, promoted.IsLatest)
		assert.Equal(t, 1, latestCount(t, s, "u1", "thyroid"))

		promoted, err = s.DeleteRecord(ctx, a.ID, "u1")
		require.NoError(t, err)
		assert.Nil(t, promoted, "deleting a non-latest record promotes nothing")

		promoted, err = s.DeleteRecord(ctx, b.ID, "u1")
		require.NoError(t, err)
		assert.Nil(t, promoted)

		latest, err := s.GetLatestRecord(ctx, "u1", "thyroid")
		require.NoError(t, err)
		assert.Nil(t, latest)
	})

	t.Run("delete by another user is not found", func(t *testing.T) {
		s := newStore(t)
		rec := newRecord("u1", "thyroid", 1, "Low")
		require.NoError(t, s.CreateRecord(ctx, rec))

		_, err := s.DeleteRecord(ctx, rec.ID, "u2")
		assert.ErrorIs(t, err, ErrNotFound)

		got, err := s.GetRecord(ctx, rec.ID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})

	t.Run("concurrent creates keep one latest", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(day int) {
				defer wg.Done()
				assert.NoError(t, s.CreateRecord(ctx, newRecord("u1", "thyroid", day, "Low")))
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, latestCount(t, s, "u1", "thyroid"))
	})
}
