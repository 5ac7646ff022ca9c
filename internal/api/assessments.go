package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Wellspring/internal/records"
	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

type AssessmentsHandler struct {
	scorer  *scoring.Scorer
	records *records.Manager
	logger  *slog.Logger
}

func NewAssessmentsHandler(sc *scoring.Scorer, m *records.Manager, logger *slog.Logger) *AssessmentsHandler {
	return &AssessmentsHandler{scorer: sc, records: m, logger: logger}
}

type TypeSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Questions   int    `json:"question_count"`
}

func (h *AssessmentsHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	types := h.scorer.Registry().Types()
	out := make([]TypeSummary, 0, len(types))
	for _, t := range types {
		out = append(out, TypeSummary{ID: t.ID, Name: t.Name, Description: t.Description, Questions: len(t.Questions)})
	}
	writeJSON(w, http.StatusOK, out)
}

// QuestionView is the display shape of a question. Score tables stay
// server-side.
type QuestionView struct {
	Key           string   `json:"key"`
	Text          string   `json:"text"`
	AllowedValues []string `json:"allowed_values"`
	MultiSelect   bool     `json:"multi_select"`
	Required      bool     `json:"required"`
}

type QuestionsResponse struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description,omitempty"`
	Aggregation      string         `json:"aggregation"`
	Dimensions       []string       `json:"dimensions,omitempty"`
	MinPossibleScore float64        `json:"min_possible_score"`
	MaxPossibleScore float64        `json:"max_possible_score"`
	Questions        []QuestionView `json:"questions"`
}

func (h *AssessmentsHandler) Questions(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "type")
	reg := h.scorer.Registry()
	cfg, err := reg.Get(typeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	lo, hi, err := reg.Bounds(typeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	resp := QuestionsResponse{
		ID:               cfg.ID,
		Name:             cfg.Name,
		Description:      cfg.Description,
		Aggregation:      string(cfg.Aggregation),
		Dimensions:       cfg.Dimensions,
		MinPossibleScore: lo,
		MaxPossibleScore: hi,
		Questions:        make([]QuestionView, 0, len(cfg.Questions)),
	}
	for _, q := range cfg.Questions {
		resp.Questions = append(resp.Questions, QuestionView{
			Key:           q.Key,
			Text:          q.Text,
			AllowedValues: q.AllowedValues,
			MultiSelect:   q.MultiSelect,
			Required:      q.IsRequired(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Preview scores answers without storing anything.
func (h *AssessmentsHandler) Preview(w http.ResponseWriter, r *http.Request) {
	answers, msg := decodeAnswers(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	res, err := h.scorer.Preview(chi.URLParam(r, "type"), answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *AssessmentsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	answers, msg := decodeAnswers(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	rec, err := h.records.Create(r.Context(), r.Header.Get(userIDHeader), chi.URLParam(r, "type"), answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *AssessmentsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.GetLatest(r.Context(), r.Header.Get(userIDHeader), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AssessmentsHandler) History(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid page"})
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		return
	}

	hist, err := h.records.GetHistory(r.Context(), r.Header.Get(userIDHeader), chi.URLParam(r, "type"), page, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

func (h *AssessmentsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.records.GetStats(r.Context(), r.Header.Get(userIDHeader), chi.URLParam(r, "type"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// queryInt returns 0 when the parameter is absent.
func queryInt(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
