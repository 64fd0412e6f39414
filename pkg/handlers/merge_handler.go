package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/services"
)

// MarkDuplicatesRequest for POST /api/merge/mark-duplicates. GroupByKey
// buckets duplicates under each Catalog-B key instead of the merge group,
// for rows coming straight out of a match search. AssignCodes derives merge
// codes and group numbers first for rows that arrive without them.
type MarkDuplicatesRequest struct {
	Rows            []models.MergedRow `json:"rows"`
	PrimaryPrefix   string             `json:"primary_prefix,omitempty"`
	DuplicatePrefix string             `json:"duplicate_prefix,omitempty"`
	GroupByKey      bool               `json:"group_by_key,omitempty"`
	AssignCodes     bool               `json:"assign_codes,omitempty"`
}

// MarkDuplicatesResponse for POST /api/merge/mark-duplicates.
type MarkDuplicatesResponse struct {
	Rows  []models.MergedRow `json:"rows"`
	Total int                `json:"total"`
}

// MergeHandler handles merge-code post-processing HTTP requests.
type MergeHandler struct {
	logger *zap.Logger
}

// NewMergeHandler creates a new merge handler.
func NewMergeHandler(logger *zap.Logger) *MergeHandler {
	return &MergeHandler{logger: logger}
}

// RegisterRoutes registers the merge handler's routes on the given mux.
func (h *MergeHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/merge/mark-duplicates", h.MarkDuplicates)
}

// MarkDuplicates handles POST /api/merge/mark-duplicates
func (h *MergeHandler) MarkDuplicates(w http.ResponseWriter, r *http.Request) {
	var req MarkDuplicatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	grouping := services.GroupByGroupNumber
	if req.GroupByKey {
		grouping = services.GroupByBKey
	}

	input := req.Rows
	if req.AssignCodes {
		input = services.AddMergeFields(input)
	}

	rows := services.MarkDuplicateSizes(input, grouping, req.PrimaryPrefix, req.DuplicatePrefix)

	response := MarkDuplicatesResponse{Rows: rows, Total: len(rows)}
	if response.Rows == nil {
		response.Rows = []models.MergedRow{}
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
