package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/Wellspring/internal/scoring"
)

type AdminHandler struct {
	registry *scoring.Registry
	logger   *slog.Logger
}

func NewAdminHandler(reg *scoring.Registry, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{registry: reg, logger: logger}
}

type TypeConfigResponse struct {
	scoring.TypeConfig
	MinPossibleScore float64  `json:"min_possible_score"`
	MaxPossibleScore float64  `json:"max_possible_score"`
	Unscored         []string `json:"unscored_answers,omitempty"`
}

// TypeConfig returns the full configuration of one type, score tables
// included.
func (h *AdminHandler) TypeConfig(w http.ResponseWriter, r *http.Request) {
	typeID := chi.URLParam(r, "type")
	cfg, err := h.registry.Get(typeID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	lo, hi, _ := h.registry.Bounds(typeID)
	writeJSON(w, http.StatusOK, TypeConfigResponse{
		TypeConfig:       cfg,
		MinPossibleScore: lo,
		MaxPossibleScore: hi,
		Unscored:         h.registry.Unscored(typeID),
	})
}
