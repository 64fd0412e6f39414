package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
	"github.com/sellermate/catalog-engine/pkg/config"
	"github.com/sellermate/catalog-engine/pkg/jsonutil"
	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/services"
)

// MatchSearchRequest for POST /api/matches/search. Inputs accepts a JSON
// array of strings or numbers; upstream exports are inconsistent about which.
type MatchSearchRequest struct {
	Inputs      json.RawMessage `json:"inputs"`
	InputType   string          `json:"input_type"`
	Limit       *int            `json:"limit,omitempty"`
	DedupeSizes bool            `json:"dedupe_sizes,omitempty"`
}

// MatchSearchResponse for POST /api/matches/search.
type MatchSearchResponse struct {
	Matches []models.Match `json:"matches"`
	Total   int            `json:"total"`
}

// MatchHandler handles exact-match HTTP requests.
type MatchHandler struct {
	matchService services.MatchService
	engine       config.EngineConfig
	logger       *zap.Logger
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(matchService services.MatchService, engine config.EngineConfig, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{
		matchService: matchService,
		engine:       engine,
		logger:       logger,
	}
}

// RegisterRoutes registers the match handler's routes on the given mux.
func (h *MatchHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/matches/search", h.Search)
}

// Search handles POST /api/matches/search
func (h *MatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req MatchSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	inputs, err := jsonutil.FlexibleStringList(req.Inputs)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_inputs", err.Error())
		return
	}
	if max := h.engine.MaxBatchSize; max > 0 && len(inputs) > max {
		writeError(w, h.logger, http.StatusBadRequest, "batch_too_large",
			fmt.Sprintf("at most %d inputs per request", max))
		return
	}

	limit := h.engine.DefaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}

	kind := services.InputKind(req.InputType)
	matches, err := h.matchService.BatchResolve(r.Context(), inputs, kind, limit)
	if err != nil {
		h.handleServiceError(w, err, "match search failed")
		return
	}

	if req.DedupeSizes {
		matches = h.matchService.DedupeSizes(matches, kind)
	}

	response := MatchSearchResponse{Matches: matches, Total: len(matches)}
	if response.Matches == nil {
		response.Matches = []models.Match{}
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *MatchHandler) handleServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, apperrors.ErrEmptyInput):
		writeError(w, h.logger, http.StatusBadRequest, "empty_input", err.Error())
	case errors.Is(err, apperrors.ErrUnknownInputKind):
		writeError(w, h.logger, http.StatusBadRequest, "unknown_input_type", err.Error())
	case errors.Is(err, apperrors.ErrReferenceUnavailable):
		writeError(w, h.logger, http.StatusServiceUnavailable, "reference_unavailable", err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "match_search_failed", err.Error())
	}
}
