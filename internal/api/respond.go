package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MikeSquared-Agency/Wellspring/internal/records"
	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type validationResponse struct {
	Error   string                  `json:"error"`
	Missing []string                `json:"missing,omitempty"`
	Invalid []scoring.InvalidAnswer `json:"invalid,omitempty"`
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *scoring.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationResponse{
			Error:   verr.Error(),
			Missing: verr.Missing,
			Invalid: verr.Invalid,
		})
	case errors.Is(err, scoring.ErrUnknownType):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown assessment type"})
	case errors.Is(err, records.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "assessment not found"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
