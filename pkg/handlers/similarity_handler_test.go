package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/services"
)

// mockSimilarityService implements services.SimilarityService for handler tests.
type mockSimilarityService struct {
	result *services.SimilarityResult
	err    error

	gotSeedKeys []string
	gotConfig   *models.SimilarityConfig
}

func (m *mockSimilarityService) FindSimilar(ctx context.Context, seedKeys []string, cfg *models.SimilarityConfig) (*services.SimilarityResult, error) {
	m.gotSeedKeys, m.gotConfig = seedKeys, cfg
	return m.result, m.err
}

func TestSimilarityHandler_Search(t *testing.T) {
	svc := &mockSimilarityService{
		result: &services.SimilarityResult{
			Rows: []models.MergedRow{
				{GroupNumber: 1, BKey: 100, MergeCode: "C-64", MergeColor: "red; 64", SimilarityScore: 310},
			},
			Pairs: []models.CandidatePair{{SeedKey: 100, CandKey: 101, FinalScore: 310}},
			Stats: services.SimilarityStats{SeedsQueried: 1, PairsScored: 1, PairsKept: 1, Groups: 1, Rows: 1},
		},
	}
	h := NewSimilarityHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Search, map[string]any{
		"seed_keys": []any{100, "101"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"100", "101"}, svc.gotSeedKeys)
	assert.Nil(t, svc.gotConfig)

	var resp SimilaritySearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, "C-64", resp.Rows[0].MergeCode)
	require.Len(t, resp.Pairs, 1)
	assert.Nil(t, resp.Stats)
}

func TestSimilarityHandler_Search_DebugIncludesStats(t *testing.T) {
	svc := &mockSimilarityService{
		result: &services.SimilarityResult{
			Stats: services.SimilarityStats{SeedsQueried: 2, PairsScored: 5},
		},
	}
	h := NewSimilarityHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Search, map[string]any{
		"seed_keys": []any{"100"},
		"debug":     true,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp SimilaritySearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 2, resp.Stats.SeedsQueried)
	assert.Equal(t, 5, resp.Stats.PairsScored)
}

func TestSimilarityHandler_Search_ForwardsConfig(t *testing.T) {
	svc := &mockSimilarityService{result: &services.SimilarityResult{}}
	h := NewSimilarityHandler(svc, zap.NewNop())

	rec := postJSON(t, h.Search, map[string]any{
		"seed_keys": []any{"100"},
		"config": map[string]any{
			"base_score":     100,
			"max_group_size": 4,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotConfig)
	assert.Equal(t, 4, svc.gotConfig.MaxGroupSize)
}

func TestSimilarityHandler_Search_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{name: "empty input", err: apperrors.ErrEmptyInput, wantCode: http.StatusBadRequest, wantErr: "empty_input"},
		{name: "invalid config", err: apperrors.ErrInvalidConfig, wantCode: http.StatusBadRequest, wantErr: "invalid_config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSimilarityHandler(&mockSimilarityService{err: tt.err}, zap.NewNop())

			rec := postJSON(t, h.Search, map[string]any{"seed_keys": []any{"100"}})

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}
}

func TestSimilarityHandler_Search_InvalidSeedKeys(t *testing.T) {
	h := NewSimilarityHandler(&mockSimilarityService{}, zap.NewNop())

	rec := postJSON(t, h.Search, map[string]any{"seed_keys": "100"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_seed_keys", errorCode(t, rec))
}

func TestSimilarityHandler_Search_EmptyResultIsArrays(t *testing.T) {
	h := NewSimilarityHandler(&mockSimilarityService{result: &services.SimilarityResult{}}, zap.NewNop())

	rec := postJSON(t, h.Search, map[string]any{"seed_keys": []any{"100"}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
	assert.Contains(t, rec.Body.String(), `"pairs":[]`)
}
