package models

// Side identifies which catalog an input key belongs to.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Tier classifies a barcode hit by which side matched via its primary barcode.
type Tier string

const (
	TierPrimaryBoth Tier = "primary↔primary"
	TierPrimaryA    Tier = "primary↔any"
	TierPrimaryB    Tier = "any↔primary"
	TierAnyBoth     Tier = "any↔any"
)

// TierFor returns the tier for a hit given each side's primary flag.
func TierFor(aPrimary, bPrimary bool) Tier {
	switch {
	case aPrimary && bPrimary:
		return TierPrimaryBoth
	case aPrimary:
		return TierPrimaryA
	case bPrimary:
		return TierPrimaryB
	default:
		return TierAnyBoth
	}
}

// Score returns the confidence score for the tier. The two mixed tiers are
// intentionally equal: downstream consumers sort by score only.
func (t Tier) Score() int {
	switch t {
	case TierPrimaryBoth:
		return 100
	case TierPrimaryA, TierPrimaryB:
		return 80
	default:
		return 60
	}
}

// Match is one barcode hit between a Catalog-A and a Catalog-B product,
// carrying both sides' display attributes and the optional reference tags.
// Matches are ephemeral query results; they are never persisted.
type Match struct {
	// InputValue is the caller-supplied value this row was found for
	// (a key, a barcode, or an external code depending on the query mode).
	InputValue string `json:"input_value"`

	AKey        *int64  `json:"a_key,omitempty"`
	AVendorCode *string `json:"a_vendor_code,omitempty"`
	BKey        *int64  `json:"b_key,omitempty"`

	BarcodeHit  string `json:"barcode_hit"`
	APrimaryHit bool   `json:"a_primary_hit"`
	BPrimaryHit bool   `json:"b_primary_hit"`
	Tier        Tier   `json:"tier"`
	Score       int    `json:"score"`
	Rank        int    `json:"rank"`

	APrimaryBarcode *string `json:"a_primary_barcode,omitempty"`
	ASize           *string `json:"a_size,omitempty"`
	AName           *string `json:"a_name,omitempty"`
	ABrand          *string `json:"a_brand,omitempty"`
	AColor          *string `json:"a_color,omitempty"`

	BPrimaryBarcode *string `json:"b_primary_barcode,omitempty"`
	BSize           *string `json:"b_size,omitempty"`
	BArticle        *string `json:"b_article,omitempty"`
	BBrand          *string `json:"b_brand,omitempty"`
	BColor          *string `json:"b_color,omitempty"`

	// Reference enrichment, resolved via each side's primary barcode.
	// All nil when the reference tables are absent.
	RefCollectionA *string `json:"ref_collection_a,omitempty"`
	RefExternalA   *string `json:"ref_external_a,omitempty"`
	RefCollectionB *string `json:"ref_collection_b,omitempty"`
	RefExternalB   *string `json:"ref_external_b,omitempty"`
	RefEqual       *bool   `json:"ref_equal,omitempty"`
}
