package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellermate/catalog-engine/pkg/models"
)

func TestGenerateMergeCode_NumericKey(t *testing.T) {
	tests := []struct {
		key  string
		code string
		hex  string
	}{
		{key: "100", code: "C-64", hex: "64"},
		{key: "255", code: "C-FF", hex: "FF"},
		{key: "4095", code: "C-FFF", hex: "FFF"},
		{key: " 100 ", code: "C-64", hex: "64"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			mc, err := GenerateMergeCode(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.code, mc.Code)
			assert.Equal(t, tt.hex, mc.Hex)
			assert.False(t, mc.Fallback)
		})
	}
}

func TestGenerateMergeCode_FallbackDigest(t *testing.T) {
	mc, err := GenerateMergeCode("AB-123")
	require.NoError(t, err)
	assert.Equal(t, "C-559D32923BA9", mc.Code)
	assert.Equal(t, "559D32923BA9", mc.Hex)
	assert.True(t, mc.Fallback)

	mc, err = GenerateMergeCode("SKU-RED-01")
	require.NoError(t, err)
	assert.Equal(t, "C-D2E0C0CECE14", mc.Code)
	assert.True(t, mc.Fallback)
}

func TestGenerateMergeCode_EmptyKey(t *testing.T) {
	_, err := GenerateMergeCode("  ")
	assert.Error(t, err)
}

func TestMergeCodeForKey(t *testing.T) {
	mc := mergeCodeForKey(100)
	assert.Equal(t, "C-64", mc.Code)
	assert.Equal(t, "64", mc.Hex)
	assert.False(t, mc.Fallback)
}

func TestParseColorFromVendorCode(t *testing.T) {
	tests := []struct {
		name       string
		vendorCode string
		want       string
		ok         bool
	}{
		{name: "three segments", vendorCode: "X100-red-42", want: "red", ok: true},
		{name: "four segments take middle", vendorCode: "X100-navy-42-EU", want: "navy", ok: true},
		{name: "two segments", vendorCode: "X100-red", ok: false},
		{name: "no dashes", vendorCode: "X100", ok: false},
		{name: "empty middle", vendorCode: "X100--42", ok: false},
		{name: "padded middle", vendorCode: "X100- red -42", want: "red", ok: true},
		{name: "empty", vendorCode: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseColorFromVendorCode(tt.vendorCode)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMergeColor(t *testing.T) {
	assert.Equal(t, "red; 64", MergeColor("red", "64"))
	assert.Equal(t, "64", MergeColor("", "64"))
}

func TestAssignGroupNumbers(t *testing.T) {
	numbers := AssignGroupNumbers([]string{"C-FF", "C-64", "C-FF", "C-A1"})

	require.Len(t, numbers, 3)
	assert.Equal(t, 1, numbers["C-64"])
	assert.Equal(t, 2, numbers["C-A1"])
	assert.Equal(t, 3, numbers["C-FF"])
}

func TestAssignGroupNumbers_Empty(t *testing.T) {
	assert.Empty(t, AssignGroupNumbers(nil))
}

func TestAddMergeFields(t *testing.T) {
	rows := []models.MergedRow{
		{BKey: 255, AVendorCode: "X100-red-42"},
		{BKey: 100},
		{BKey: 255, AVendorCode: "X100-red-43"},
	}

	got := AddMergeFields(rows)

	require.Len(t, got, 3)
	assert.Equal(t, "C-FF", got[0].MergeCode)
	assert.Equal(t, "red; FF", got[0].MergeColor)
	assert.Equal(t, "C-64", got[1].MergeCode)
	assert.Equal(t, "64", got[1].MergeColor)
	assert.Equal(t, "C-FF", got[2].MergeCode)

	// Dense numbering over sorted distinct codes: C-64 < C-FF.
	assert.Equal(t, 2, got[0].GroupNumber)
	assert.Equal(t, 1, got[1].GroupNumber)
	assert.Equal(t, 2, got[2].GroupNumber)
}

func TestAddMergeFields_ExistingCodesKeptAndRenumbered(t *testing.T) {
	rows := []models.MergedRow{
		{BKey: 100, MergeCode: "C-FF", MergeColor: "red; FF", GroupNumber: 9},
		{BKey: 200},
	}

	got := AddMergeFields(rows)

	assert.Equal(t, "C-FF", got[0].MergeCode)
	assert.Equal(t, "red; FF", got[0].MergeColor)
	assert.Equal(t, "C-C8", got[1].MergeCode)
	assert.Equal(t, 2, got[0].GroupNumber)
	assert.Equal(t, 1, got[1].GroupNumber)
}

func TestMarkDuplicateSizes_TwoRowBucket(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 80},
	}

	got := MarkDuplicateSizes(rows, GroupByGroupNumber, "", "")

	require.Len(t, got, 2)
	assert.Equal(t, "C-64", got[0].MergeCode)
	assert.Equal(t, 1, got[0].GroupNumber)
	// Two-row buckets get no positional suffix.
	assert.Equal(t, "D-64", got[1].MergeCode)
	assert.Equal(t, 2, got[1].GroupNumber)
}

func TestMarkDuplicateSizes_ThreeRowBucketGetsSuffixes(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 85},
		{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 12, ASize: "42", MergeCode: "C-64", MatchScore: 80},
	}

	got := MarkDuplicateSizes(rows, GroupByGroupNumber, "", "")

	require.Len(t, got, 3)
	// Input order is preserved; the best-scored row keeps the primary prefix.
	assert.Equal(t, "D-64_2", got[0].MergeCode)
	assert.Equal(t, "C-64", got[1].MergeCode)
	assert.Equal(t, "D-64_3", got[2].MergeCode)

	// Duplicates move to fresh group numbers above the existing maximum.
	assert.Equal(t, 1, got[1].GroupNumber)
	assert.Equal(t, 2, got[0].GroupNumber)
	assert.Equal(t, 3, got[2].GroupNumber)
}

func TestMarkDuplicateSizes_DistinctSizesUntouched(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "43", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 2, BKey: 12, ASize: "42", MergeCode: "C-FF", MatchScore: 100},
	}

	got := MarkDuplicateSizes(rows, GroupByGroupNumber, "", "")
	assert.Equal(t, rows, got)
}

func TestMarkDuplicateSizes_UnknownSizePassesThrough(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "", MergeCode: "C-64", MatchScore: 80},
	}

	got := MarkDuplicateSizes(rows, GroupByGroupNumber, "", "")
	assert.Equal(t, rows, got)
}

func TestMarkDuplicateSizes_GroupByBKey(t *testing.T) {
	// Same group number but different B keys: under key grouping these are
	// separate buckets and stay untouched.
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 80},
	}

	got := MarkDuplicateSizes(rows, GroupByBKey, "", "")
	assert.Equal(t, rows, got)

	// The same B key with a repeated size is a duplicate.
	rows[1].BKey = 10
	got = MarkDuplicateSizes(rows, GroupByBKey, "", "")
	assert.Equal(t, "C-64", got[0].MergeCode)
	assert.Equal(t, "D-64", got[1].MergeCode)
}

func TestMarkDuplicateSizes_CustomPrefixes(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 80},
	}

	got := MarkDuplicateSizes(rows, GroupByGroupNumber, "P", "X")
	assert.Equal(t, "P-64", got[0].MergeCode)
	assert.Equal(t, "X-64", got[1].MergeCode)
}

func TestMarkDuplicateSizes_InputNotMutated(t *testing.T) {
	rows := []models.MergedRow{
		{GroupNumber: 1, BKey: 10, ASize: "42", MergeCode: "C-64", MatchScore: 100},
		{GroupNumber: 1, BKey: 11, ASize: "42", MergeCode: "C-64", MatchScore: 80},
	}

	_ = MarkDuplicateSizes(rows, GroupByGroupNumber, "", "")
	assert.Equal(t, "C-64", rows[1].MergeCode)
	assert.Equal(t, 1, rows[1].GroupNumber)
}
