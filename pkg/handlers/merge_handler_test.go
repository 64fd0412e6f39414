package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/models"
)

func TestMergeHandler_MarkDuplicates(t *testing.T) {
	h := NewMergeHandler(zap.NewNop())

	rec := postJSON(t, h.MarkDuplicates, map[string]any{
		"rows": []models.MergedRow{
			{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
			{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 80},
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MarkDuplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Total)
	assert.Equal(t, "C-64", resp.Rows[0].MergeCode)
	assert.Equal(t, "D-64", resp.Rows[1].MergeCode)
}

func TestMergeHandler_MarkDuplicates_CustomPrefixesAndKeyGrouping(t *testing.T) {
	h := NewMergeHandler(zap.NewNop())

	rec := postJSON(t, h.MarkDuplicates, map[string]any{
		"rows": []models.MergedRow{
			{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
			{GroupNumber: 2, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 80},
		},
		"primary_prefix":   "P",
		"duplicate_prefix": "X",
		"group_by_key":     true,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MarkDuplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "P-64", resp.Rows[0].MergeCode)
	assert.Equal(t, "X-64", resp.Rows[1].MergeCode)
}

func TestMergeHandler_MarkDuplicates_AssignCodes(t *testing.T) {
	h := NewMergeHandler(zap.NewNop())

	rec := postJSON(t, h.MarkDuplicates, map[string]any{
		"rows": []models.MergedRow{
			{BKey: 255, AVendorCode: "X100-red-42"},
		},
		"assign_codes": true,
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp MarkDuplicatesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "C-FF", resp.Rows[0].MergeCode)
	assert.Equal(t, "red; FF", resp.Rows[0].MergeColor)
	assert.Equal(t, 1, resp.Rows[0].GroupNumber)
}

func TestMergeHandler_MarkDuplicates_InvalidBody(t *testing.T) {
	h := NewMergeHandler(zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("[")))
	rec := httptest.NewRecorder()
	h.MarkDuplicates(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request_body", errorCode(t, rec))
}

func TestMergeHandler_MarkDuplicates_EmptyRows(t *testing.T) {
	h := NewMergeHandler(zap.NewNop())

	rec := postJSON(t, h.MarkDuplicates, map[string]any{})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
}
