package models

// MergedRow is one row of the similarity/merge result: a Catalog-B product,
// its matched Catalog-A product (when one exists) and the merge-group
// assignment derived for it.
type MergedRow struct {
	GroupNumber int    `json:"group_number"`
	BKey        int64  `json:"b_key"`
	AKey        *int64 `json:"a_key,omitempty"`
	AVendorCode string `json:"a_vendor_code,omitempty"`
	ASize       string `json:"a_size,omitempty"`

	MergeCode  string `json:"merge_code"`
	MergeColor string `json:"merge_color"`
	// FallbackHex is set when the hex token came from the MD5 fallback path,
	// i.e. the key was not numeric and uniqueness guarantees are degraded.
	FallbackHex bool `json:"fallback_hex,omitempty"`

	MatchScore      int     `json:"match_score"`
	SimilarityScore float64 `json:"similarity_score"`
}
