//go:build integration

package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/testhelpers"
)

// matchRepoTest wires a MatchRepository against the shared test container and
// wipes the catalog tables when the test finishes.
type matchRepoTest struct {
	ctx  context.Context
	db   *testhelpers.TestDB
	repo MatchRepository
}

func newMatchRepoTest(t *testing.T) *matchRepoTest {
	t.Helper()

	db := testhelpers.GetTestDB(t)
	tc := &matchRepoTest{
		ctx:  context.Background(),
		db:   db,
		repo: NewMatchRepository(db.DB),
	}

	t.Cleanup(func() {
		_, err := db.DB.Exec(tc.ctx,
			`TRUNCATE catalog_a_products, catalog_a_attributes, catalog_b_products`)
		require.NoError(t, err)
	})

	return tc
}

func (tc *matchRepoTest) seedAProduct(t *testing.T, aKey int64, vendorCode, declaredPrimary string) {
	t.Helper()
	_, err := tc.db.DB.Exec(tc.ctx,
		`INSERT INTO catalog_a_products (a_key, vendor_code, primary_barcode) VALUES ($1, $2, $3)`,
		aKey, vendorCode, declaredPrimary)
	require.NoError(t, err)
}

func (tc *matchRepoTest) seedAAttributes(t *testing.T, vendorCode, primary string, barcodes string) {
	t.Helper()
	_, err := tc.db.DB.Exec(tc.ctx,
		`INSERT INTO catalog_a_attributes (vendor_code, barcodes, primary_barcode, manufacturer_size, product_name, brand, color)
		 VALUES ($1, $2::jsonb, $3, '42', 'Test Boot', 'Acme', 'red')`,
		vendorCode, barcodes, primary)
	require.NoError(t, err)
}

func (tc *matchRepoTest) seedBProduct(t *testing.T, bKey int64, primary string, barcodes string) {
	t.Helper()
	_, err := tc.db.DB.Exec(tc.ctx,
		`INSERT INTO catalog_b_products (b_key, article, barcodes, primary_barcode, size, brand, color)
		 VALUES ($1, $2, $3::jsonb, $4, '42', 'Acme', 'red')`,
		bKey, "ART-"+primary, barcodes, primary)
	require.NoError(t, err)
}

// seedTierFixture builds one Catalog-A product whose barcodes hit four
// Catalog-B products, one per confidence tier.
func (tc *matchRepoTest) seedTierFixture(t *testing.T) {
	t.Helper()

	// A key 1: primary "111", secondary "222".
	tc.seedAProduct(t, 1, "V1-red-42", "111")
	tc.seedAAttributes(t, "V1-red-42", "111", `["111", "222"]`)

	tc.seedBProduct(t, 10, "111", `["111"]`)        // primary meets primary
	tc.seedBProduct(t, 11, "333", `["111", "333"]`) // primary meets listed extra
	tc.seedBProduct(t, 12, "222", `["222"]`)        // secondary meets primary
	tc.seedBProduct(t, 13, "444", `["222"]`)        // secondary meets secondary
}

func TestMatchRepository_ResolveAKeys_TierScores(t *testing.T) {
	tc := newMatchRepoTest(t)
	tc.seedTierFixture(t)

	matches, err := tc.repo.ResolveAKeys(tc.ctx, []int64{1}, 0)
	require.NoError(t, err)
	require.Len(t, matches, 4)

	type hit struct {
		bKey  int64
		tier  models.Tier
		score int
	}
	want := []hit{
		{10, models.TierPrimaryBoth, 100},
		{11, models.TierPrimaryA, 80},
		{12, models.TierPrimaryB, 80},
		{13, models.TierAnyBoth, 60},
	}

	for i, w := range want {
		m := matches[i]
		require.NotNil(t, m.BKey, "row %d has no b_key", i)
		assert.Equal(t, w.bKey, *m.BKey)
		assert.Equal(t, w.tier, m.Tier)
		assert.Equal(t, w.score, m.Score)
		assert.Equal(t, i+1, m.Rank)
		assert.Equal(t, "1", m.InputValue)
	}

	// Display attributes ride along from both sides.
	first := matches[0]
	require.NotNil(t, first.AVendorCode)
	assert.Equal(t, "V1-red-42", *first.AVendorCode)
	require.NotNil(t, first.AName)
	assert.Equal(t, "Test Boot", *first.AName)
	require.NotNil(t, first.BArticle)
	assert.Equal(t, "ART-111", *first.BArticle)
}

func TestMatchRepository_ResolveAKeys_LimitKeepsTopRanked(t *testing.T) {
	tc := newMatchRepoTest(t)
	tc.seedTierFixture(t)

	matches, err := tc.repo.ResolveAKeys(tc.ctx, []int64{1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	// Best score first, then the lower b_key of the tied 80s.
	assert.Equal(t, int64(10), *matches[0].BKey)
	assert.Equal(t, 100, matches[0].Score)
	assert.Equal(t, int64(11), *matches[1].BKey)
	assert.Equal(t, 80, matches[1].Score)
	assert.Equal(t, 2, matches[1].Rank)
}

func TestMatchRepository_ResolveAKeys_SynthesizesDeclaredPrimary(t *testing.T) {
	tc := newMatchRepoTest(t)

	// The declared primary "555" is missing from the attribute barcode list,
	// so the query must synthesize a primary row for it.
	tc.seedAProduct(t, 2, "V2-blue-10", "555")
	tc.seedAAttributes(t, "V2-blue-10", "555", `["556"]`)
	tc.seedBProduct(t, 20, "555", `["555"]`)

	matches, err := tc.repo.ResolveAKeys(tc.ctx, []int64{2}, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	m := matches[0]
	assert.Equal(t, "555", m.BarcodeHit)
	assert.True(t, m.APrimaryHit)
	assert.True(t, m.BPrimaryHit)
	assert.Equal(t, models.TierPrimaryBoth, m.Tier)
	assert.Equal(t, 100, m.Score)

	// Synthesized rows carry no attribute-row display fields.
	assert.Nil(t, m.ASize)
	assert.Nil(t, m.AName)
	require.NotNil(t, m.APrimaryBarcode)
	assert.Equal(t, "555", *m.APrimaryBarcode)
}

func TestMatchRepository_ResolveBarcodes(t *testing.T) {
	tc := newMatchRepoTest(t)
	tc.seedTierFixture(t)
	tc.seedBProduct(t, 30, "777", `["777"]`) // no Catalog-A counterpart

	matches, err := tc.repo.ResolveBarcodes(tc.ctx, []string{"111", "777", "888"}, 0)
	require.NoError(t, err)

	byInput := make(map[string][]models.Match)
	for _, m := range matches {
		byInput[m.InputValue] = append(byInput[m.InputValue], m)
	}

	// "111" resolves on both sides; best hit pairs the two primaries.
	require.NotEmpty(t, byInput["111"])
	best := byInput["111"][0]
	require.NotNil(t, best.AKey)
	assert.Equal(t, int64(1), *best.AKey)
	require.NotNil(t, best.BKey)
	assert.Equal(t, int64(10), *best.BKey)
	assert.Equal(t, models.TierPrimaryBoth, best.Tier)

	// "777" resolves only on the B side; the A columns stay null.
	require.Len(t, byInput["777"], 1)
	oneSided := byInput["777"][0]
	assert.Nil(t, oneSided.AKey)
	require.NotNil(t, oneSided.BKey)
	assert.Equal(t, int64(30), *oneSided.BKey)
	assert.Equal(t, models.TierPrimaryB, oneSided.Tier)
	assert.Equal(t, 80, oneSided.Score)

	// Unknown barcodes produce no rows at all.
	assert.Empty(t, byInput["888"])
}

func TestMatchRepository_AKeysForVendorCodes(t *testing.T) {
	tc := newMatchRepoTest(t)
	tc.seedAProduct(t, 5, "V5-black-44", "901")
	tc.seedAProduct(t, 6, "V6-white-38", "902")

	keys, err := tc.repo.AKeysForVendorCodes(tc.ctx, []string{"V6-white-38", "V5-black-44", "NO-SUCH"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 6}, keys)
}
