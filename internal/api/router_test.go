package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Wellspring/internal/lock"
	"github.com/MikeSquared-Agency/Wellspring/internal/records"
	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
	"github.com/MikeSquared-Agency/Wellspring/internal/store"
)

type mockHermes struct {
	mu       sync.Mutex
	subjects []string
}

func (m *mockHermes) Publish(subject string, _ interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects = append(m.subjects, subject)
	return nil
}
func (m *mockHermes) Close() {}

type testServer struct {
	router http.Handler
	store  *store.MemoryStore
	hermes *mockHermes
}

func setupTestRouter(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg, err := scoring.LoadRegistry("")
	require.NoError(t, err)
	sc := scoring.NewScorer(reg, logger)
	ms := store.NewMemoryStore()
	mh := &mockHermes{}
	mgr := records.New(ms, sc, lock.NewLocalLocker(), mh, records.Options{DefaultPageSize: 10, MaxPageSize: 50}, logger)
	return &testServer{
		router: NewRouter(sc, mgr, "test-token", 0, logger),
		store:  ms,
		hermes: mh,
	}
}

func (s *testServer) do(method, path, user, body string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

const healthyThyroid = `{"answers":{
	"bowelMovements":"Regular","acidity":"No","weightChange":"No change","fatigue":"Rarely",
	"coldIntolerance":"No","hairLoss":"No","drySkin":"No","familyHistory":"No","pastIllness":["None"]}}`

const riskyThyroid = `{"answers":{
	"bowelMovements":"Constipated (>3 days)","acidity":"Yes","weightChange":"Unexplained gain","fatigue":"Often",
	"coldIntolerance":"Yes","hairLoss":"Yes","drySkin":"Yes","familyHistory":"Yes",
	"pastIllness":["Diabetes","Hypertension"]}}`

func decodeRecord(t *testing.T, w *httptest.ResponseRecorder) store.AssessmentRecord {
	t.Helper()
	var rec store.AssessmentRecord
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rec))
	return rec
}

func TestListTypes(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("GET", "/api/v1/assessments", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var types []TypeSummary
	require.NoError(t, json.NewDecoder(w.Body).Decode(&types))
	ids := make([]string, 0, len(types))
	for _, ty := range types {
		ids = append(ids, ty.ID)
	}
	assert.ElementsMatch(t, []string{"thyroid", "menopause", "dosha"}, ids)
}

func TestQuestions(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("GET", "/api/v1/assessments/thyroid/questions", "", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp QuestionsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "thyroid", resp.ID)
	assert.Equal(t, 10.0, resp.MaxPossibleScore)
	require.NotEmpty(t, resp.Questions)
	assert.NotContains(t, w.Body.String(), "score_table")

	w = s.do("GET", "/api/v1/assessments/sleep/questions", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewDoesNotPersist(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("POST", "/api/v1/assessments/thyroid/preview", "", riskyThyroid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res scoring.ScoringResult
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "High", res.RiskTier)

	w = s.do("GET", "/api/v1/assessments/thyroid/history", "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":0`)
	assert.Empty(t, s.hermes.subjects)
}

func TestSubmitAndLatest(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("POST", "/api/v1/assessments/thyroid", "U", healthyThyroid)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	first := decodeRecord(t, w)
	assert.Equal(t, "Low", first.RiskTier)
	assert.True(t, first.IsLatest)

	w = s.do("POST", "/api/v1/assessments/thyroid", "U", riskyThyroid)
	require.Equal(t, http.StatusCreated, w.Code)
	second := decodeRecord(t, w)
	assert.Equal(t, "High", second.RiskTier)
	assert.Equal(t, 2.0, second.Scores["pastIllness"])

	w = s.do("GET", "/api/v1/assessments/thyroid/latest", "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, second.ID, decodeRecord(t, w).ID)

	w = s.do("GET", "/api/v1/records/"+first.ID.String(), "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeRecord(t, w).IsLatest)
}

func TestSubmitRequiresUser(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("POST", "/api/v1/assessments/thyroid", "", healthyThyroid)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitValidationError(t *testing.T) {
	s := setupTestRouter(t)
	body := `{"answers":{"bowelMovements":"Regular","fatigue":"Constantly"}}`
	w := s.do("POST", "/api/v1/assessments/thyroid", "U", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp validationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Contains(t, resp.Missing, "acidity")
	assert.Contains(t, resp.Missing, "familyHistory")
	require.Len(t, resp.Invalid, 1)
	assert.Equal(t, "fatigue", resp.Invalid[0].Key)
	assert.Contains(t, resp.Error, "acidity")
}

func TestSubmitRejectsMalformedEnvelope(t *testing.T) {
	s := setupTestRouter(t)
	tests := map[string]string{
		"not json":        `{"answers":`,
		"missing answers": `{}`,
		"numeric answer":  `{"answers":{"acidity":1}}`,
		"extra field":     `{"answers":{},"user":"x"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			w := s.do("POST", "/api/v1/assessments/thyroid", "U", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), "invalid request body"), w.Body.String())
		})
	}
}

func TestUnknownTypeIs404(t *testing.T) {
	s := setupTestRouter(t)
	for _, path := range []string{"/latest", "/history", "/stats"} {
		w := s.do("GET", "/api/v1/assessments/sleep"+path, "U", "")
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := s.do("POST", "/api/v1/assessments/sleep", "U", `{"answers":{}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLatestNotFound(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("GET", "/api/v1/assessments/menopause/latest", "U", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"assessment not found"}`, w.Body.String())
}

func TestOtherUsersRecordIsNotFound(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("POST", "/api/v1/assessments/thyroid", "owner", healthyThyroid)
	require.Equal(t, http.StatusCreated, w.Code)
	rec := decodeRecord(t, w)
	path := "/api/v1/records/" + rec.ID.String()

	foreign := s.do("GET", path, "intruder", "")
	missing := s.do("GET", "/api/v1/records/"+uuid.NewString(), "intruder", "")
	malformed := s.do("GET", "/api/v1/records/not-a-uuid", "intruder", "")
	for _, w := range []*httptest.ResponseRecorder{foreign, missing, malformed} {
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"assessment not found"}`, w.Body.String())
	}

	assert.Equal(t, http.StatusNotFound, s.do("PUT", path, "intruder", riskyThyroid).Code)
	assert.Equal(t, http.StatusNotFound, s.do("DELETE", path, "intruder", "").Code)
}

func TestReassessAndDelete(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("POST", "/api/v1/assessments/thyroid", "U", healthyThyroid)
	first := decodeRecord(t, w)
	w = s.do("POST", "/api/v1/assessments/thyroid", "U", healthyThyroid)
	second := decodeRecord(t, w)

	w = s.do("PUT", "/api/v1/records/"+first.ID.String(), "U", riskyThyroid)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeRecord(t, w)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, "High", updated.RiskTier)
	assert.True(t, updated.IsLatest)

	w = s.do("DELETE", "/api/v1/records/"+first.ID.String(), "U", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = s.do("GET", "/api/v1/assessments/thyroid/latest", "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, second.ID, decodeRecord(t, w).ID)

	assert.Contains(t, s.hermes.subjects, "wellness.assessment.thyroid.promoted")
}

func TestHistoryAndStats(t *testing.T) {
	s := setupTestRouter(t)
	for i := 0; i < 3; i++ {
		body := healthyThyroid
		if i == 2 {
			body = riskyThyroid
		}
		require.Equal(t, http.StatusCreated, s.do("POST", "/api/v1/assessments/thyroid", "U", body).Code)
	}

	w := s.do("GET", "/api/v1/assessments/thyroid/history?page=1&limit=2", "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	var page records.HistoryPage
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.Pages)
	assert.Len(t, page.Records, 2)

	w = s.do("GET", "/api/v1/assessments/thyroid/history?page=abc", "U", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do("GET", "/api/v1/assessments/thyroid/stats", "U", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st records.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&st))
	assert.Equal(t, 3, st.TotalAssessments)
	assert.Equal(t, 2, st.TierDistribution["Low"])
	require.NotNil(t, st.Improvement)
	assert.True(t, st.Improvement.TierChanged)
	assert.False(t, st.Improvement.Improved)
	assert.Nil(t, st.Improvement.PercentageChange, "previous score was zero")
}

func TestAdminTypeConfig(t *testing.T) {
	s := setupTestRouter(t)
	w := s.do("GET", "/api/v1/admin/assessment-types/thyroid", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest("GET", "/api/v1/admin/assessment-types/thyroid", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "score_table")
	assert.Contains(t, rec.Body.String(), `"max_possible_score":10`)
}

func TestMetricsRouter(t *testing.T) {
	router := NewMetricsRouter()
	for _, path := range []string{"/health", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}
