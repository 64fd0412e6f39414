package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
	"github.com/sellermate/catalog-engine/pkg/jsonutil"
	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/services"
)

// SimilaritySearchRequest for POST /api/similarity/search. A nil Config runs
// with the production default weights; Debug includes stage counts in the
// response.
type SimilaritySearchRequest struct {
	SeedKeys json.RawMessage          `json:"seed_keys"`
	Config   *models.SimilarityConfig `json:"config,omitempty"`
	Debug    bool                     `json:"debug,omitempty"`
}

// SimilaritySearchResponse for POST /api/similarity/search.
type SimilaritySearchResponse struct {
	Rows  []models.MergedRow        `json:"rows"`
	Pairs []models.CandidatePair    `json:"pairs"`
	Total int                       `json:"total"`
	Stats *services.SimilarityStats `json:"stats,omitempty"`
}

// SimilarityHandler handles variant-similarity HTTP requests.
type SimilarityHandler struct {
	similarityService services.SimilarityService
	logger            *zap.Logger
}

// NewSimilarityHandler creates a new similarity handler.
func NewSimilarityHandler(similarityService services.SimilarityService, logger *zap.Logger) *SimilarityHandler {
	return &SimilarityHandler{similarityService: similarityService, logger: logger}
}

// RegisterRoutes registers the similarity handler's routes on the given mux.
func (h *SimilarityHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/similarity/search", h.Search)
}

// Search handles POST /api/similarity/search
func (h *SimilarityHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SimilaritySearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	seedKeys, err := jsonutil.FlexibleStringList(req.SeedKeys)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_seed_keys", err.Error())
		return
	}

	result, err := h.similarityService.FindSimilar(r.Context(), seedKeys, req.Config)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrEmptyInput):
			writeError(w, h.logger, http.StatusBadRequest, "empty_input", err.Error())
		case errors.Is(err, apperrors.ErrInvalidConfig):
			writeError(w, h.logger, http.StatusBadRequest, "invalid_config", err.Error())
		default:
			h.logger.Error("Similarity search failed", zap.Error(err))
			writeError(w, h.logger, http.StatusInternalServerError, "similarity_search_failed", err.Error())
		}
		return
	}

	response := SimilaritySearchResponse{
		Rows:  result.Rows,
		Pairs: result.Pairs,
		Total: len(result.Rows),
	}
	if response.Rows == nil {
		response.Rows = []models.MergedRow{}
	}
	if response.Pairs == nil {
		response.Pairs = []models.CandidatePair{}
	}
	if req.Debug {
		response.Stats = &result.Stats
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
