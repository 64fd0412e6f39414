package services

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sellermate/catalog-engine/pkg/models"
)

const (
	// PrimaryMergePrefix marks the best row of a size bucket.
	PrimaryMergePrefix = "C"
	// DuplicateMergePrefix marks rows superseded by a better-scored row of
	// the same size within their group.
	DuplicateMergePrefix = "D"
)

// MergeCode is a deterministic, human-inspectable group code.
type MergeCode struct {
	Code string
	Hex  string
	// Fallback is set when the key was not numeric and the MD5 digest path
	// was taken; uniqueness guarantees are degraded on that path.
	Fallback bool
}

// GenerateMergeCode derives the merge code for a representative key. Numeric
// keys use their uppercase hexadecimal form; anything else falls back to the
// first 12 hex characters of an MD5 digest of the string form.
func GenerateMergeCode(key string) (MergeCode, error) {
	s := strings.TrimSpace(key)
	if s == "" {
		return MergeCode{}, fmt.Errorf("merge code key is empty")
	}

	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		h := strings.ToUpper(strconv.FormatUint(n, 16))
		return MergeCode{Code: PrimaryMergePrefix + "-" + h, Hex: h}, nil
	}

	sum := md5.Sum([]byte(s))
	h := strings.ToUpper(hex.EncodeToString(sum[:])[:12])
	return MergeCode{Code: PrimaryMergePrefix + "-" + h, Hex: h, Fallback: true}, nil
}

// mergeCodeForKey is the numeric-key fast path used on the similarity result,
// where keys are always int64.
func mergeCodeForKey(key int64) MergeCode {
	h := strings.ToUpper(strconv.FormatInt(key, 16))
	return MergeCode{Code: PrimaryMergePrefix + "-" + h, Hex: h}
}

// ParseColorFromVendorCode extracts the display color token from a vendor
// code of the form "prefix-color-suffix". Codes with fewer than three
// dash-delimited segments, or an empty middle segment, yield ("", false).
func ParseColorFromVendorCode(vendorCode string) (string, bool) {
	s := strings.TrimSpace(vendorCode)
	if s == "" {
		return "", false
	}
	parts := strings.Split(s, "-")
	if len(parts) < 3 {
		return "", false
	}
	color := strings.TrimSpace(parts[1])
	if color == "" {
		return "", false
	}
	return color, true
}

// MergeColor composes the visible color token: "<color>; <HEX>", or the hex
// alone when no color was parsed.
func MergeColor(color, hexToken string) string {
	if color == "" {
		return hexToken
	}
	return color + "; " + hexToken
}

// AssignGroupNumbers builds the dense 1..N mapping over the lexicographically
// sorted set of distinct merge codes.
func AssignGroupNumbers(codes []string) map[string]int {
	distinct := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		distinct[c] = struct{}{}
	}
	sorted := make([]string, 0, len(distinct))
	for c := range distinct {
		sorted = append(sorted, c)
	}
	sort.Strings(sorted)

	numbers := make(map[string]int, len(sorted))
	for i, c := range sorted {
		numbers[c] = i + 1
	}
	return numbers
}

// AddMergeFields fills in the merge code, display color and fallback flag for
// rows that do not carry a code yet, using each row's own key as its
// representative, then renumbers all groups densely. Rows that already carry
// a code keep it and only get renumbered.
func AddMergeFields(rows []models.MergedRow) []models.MergedRow {
	out := make([]models.MergedRow, len(rows))
	copy(out, rows)

	codes := make([]string, 0, len(out))
	for i := range out {
		if out[i].MergeCode == "" {
			mc := mergeCodeForKey(out[i].BKey)
			color, _ := ParseColorFromVendorCode(out[i].AVendorCode)
			out[i].MergeCode = mc.Code
			out[i].MergeColor = MergeColor(color, mc.Hex)
			out[i].FallbackHex = mc.Fallback
		}
		codes = append(codes, out[i].MergeCode)
	}

	numbers := AssignGroupNumbers(codes)
	for i := range out {
		out[i].GroupNumber = numbers[out[i].MergeCode]
	}
	return out
}

// DuplicateGrouping selects the bucket key for duplicate-size marking.
type DuplicateGrouping int

const (
	// GroupByGroupNumber buckets duplicates within a merge group (the
	// similarity path).
	GroupByGroupNumber DuplicateGrouping = iota
	// GroupByBKey buckets duplicates under each Catalog-B key (the plain
	// matching path, where no merge groups exist yet).
	GroupByBKey
)

// MarkDuplicateSizes rewrites merge codes so that within each (bucket, size)
// group only the best-scored row keeps the primary prefix. The remaining rows
// get the duplicate prefix, with positional suffixes _2.._N appended when the
// bucket holds more than two rows. Duplicate rows also receive fresh group
// numbers above every primary group number. Rows with an unknown size pass
// through untouched.
//
// The input order is preserved in the returned slice.
func MarkDuplicateSizes(rows []models.MergedRow, grouping DuplicateGrouping, primaryPrefix, duplicatePrefix string) []models.MergedRow {
	if len(rows) == 0 {
		return rows
	}
	if primaryPrefix == "" {
		primaryPrefix = PrimaryMergePrefix
	}
	if duplicatePrefix == "" {
		duplicatePrefix = DuplicateMergePrefix
	}

	out := make([]models.MergedRow, len(rows))
	copy(out, rows)

	type bucketKey struct {
		group int64
		size  string
	}
	groupOf := func(r models.MergedRow) int64 {
		if grouping == GroupByBKey {
			return r.BKey
		}
		return int64(r.GroupNumber)
	}

	nextGroup := 0
	buckets := make(map[bucketKey][]int)
	for i, r := range out {
		if r.GroupNumber > nextGroup {
			nextGroup = r.GroupNumber
		}
		size := strings.TrimSpace(r.ASize)
		if size == "" {
			continue
		}
		k := bucketKey{group: groupOf(r), size: size}
		buckets[k] = append(buckets[k], i)
	}
	nextGroup++

	// Deterministic bucket order so duplicate group numbers do not depend on
	// map iteration.
	keys := make([]bucketKey, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].group != keys[j].group {
			return keys[i].group < keys[j].group
		}
		return keys[i].size < keys[j].size
	})

	for _, k := range keys {
		idxs := buckets[k]
		if len(idxs) < 2 {
			continue
		}
		// Best score first; equal scores keep their original order.
		sort.SliceStable(idxs, func(i, j int) bool {
			return out[idxs[i]].MatchScore > out[idxs[j]].MatchScore
		})

		for pos, idx := range idxs {
			base := stripMergePrefix(out[idx].MergeCode)
			if pos == 0 {
				out[idx].MergeCode = primaryPrefix + "-" + base
				continue
			}
			code := duplicatePrefix + "-" + base
			if len(idxs) > 2 {
				code = fmt.Sprintf("%s_%d", code, pos+1)
			}
			out[idx].MergeCode = code
			out[idx].GroupNumber = nextGroup
			nextGroup++
		}
	}

	return out
}

// stripMergePrefix drops the leading prefix segment of a merge code, leaving
// the hex (and any color) portion.
func stripMergePrefix(code string) string {
	if i := strings.Index(code, "-"); i >= 0 {
		return code[i+1:]
	}
	return code
}
