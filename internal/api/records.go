package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Wellspring/internal/records"
)

type RecordsHandler struct {
	records *records.Manager
	logger  *slog.Logger
}

func NewRecordsHandler(m *records.Manager, logger *slog.Logger) *RecordsHandler {
	return &RecordsHandler{records: m, logger: logger}
}

// recordID parses the {id} param. Malformed ids read as not found so they
// reveal nothing more than an unknown one.
func recordID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assessment not found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	rec, err := h.records.Get(r.Context(), id, r.Header.Get(userIDHeader))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Reassess rescores the record with new answers in place.
func (h *RecordsHandler) Reassess(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	answers, msg := decodeAnswers(r)
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	rec, err := h.records.Update(r.Context(), id, r.Header.Get(userIDHeader), answers)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := h.records.Delete(r.Context(), id, r.Header.Get(userIDHeader)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
