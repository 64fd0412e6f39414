package repositories

import (
	"context"
	"fmt"

	"github.com/sellermate/catalog-engine/pkg/database"
	"github.com/sellermate/catalog-engine/pkg/models"
)

// SimilarityRepository fetches prefiltered candidate pairs for the similarity
// scorer. The prefilter (shared category and gender, candidate != seed, and
// the material hard gate) runs in SQL; scoring happens in the service.
type SimilarityRepository interface {
	FetchCandidatePairs(ctx context.Context, seeds []int64) ([]models.PairAttributes, error)
	AttributesAvailable(ctx context.Context) (bool, error)
}

type similarityRepository struct {
	db *database.DB
}

// NewSimilarityRepository creates a new SimilarityRepository over the given pool.
func NewSimilarityRepository(db *database.DB) SimilarityRepository {
	return &similarityRepository{db: db}
}

var _ SimilarityRepository = (*similarityRepository)(nil)

// candidatePairsSQL finds same-category, same-gender candidates for the seed
// set. Products with a null category or gender never join (both sides must be
// known for the prefilter to hold).
const candidatePairsSQL = `
WITH seed AS (
    SELECT DISTINCT k AS seed_key FROM unnest($1::bigint[]) AS k
),
seed_enriched AS (
    SELECT s.seed_key, p.category, p.gender
    FROM seed AS s
    JOIN catalog_b_products AS p ON p.b_key = s.seed_key
),
candidates AS (
    SELECT s.seed_key, c.b_key AS cand_key
    FROM catalog_b_products AS c
    JOIN seed_enriched AS s ON s.category = c.category AND s.gender = c.gender
    WHERE c.b_key <> s.seed_key
)
SELECT c.seed_key, c.cand_key
FROM candidates AS c
ORDER BY c.seed_key, c.cand_key`

// candidatePairsWithAttributesSQL additionally joins both sides' similarity
// attributes and applies the material hard gate: a candidate survives only
// when either side's material is unknown or the two are equal.
const candidatePairsWithAttributesSQL = `
WITH seed AS (
    SELECT DISTINCT k AS seed_key FROM unnest($1::bigint[]) AS k
),
seed_enriched AS (
    SELECT s.seed_key, p.category, p.gender
    FROM seed AS s
    JOIN catalog_b_products AS p ON p.b_key = s.seed_key
),
candidates AS (
    SELECT s.seed_key, c.b_key AS cand_key
    FROM catalog_b_products AS c
    JOIN seed_enriched AS s ON s.category = c.category AND s.gender = c.gender
    WHERE c.b_key <> s.seed_key
)
SELECT c.seed_key, c.cand_key,
       ra_s.season, ra_s.color, ra_s.material, ra_s.fastener,
       ra_s.mega_last, ra_s.best_last, ra_s.new_last, ra_s.model_name,
       ra_c.season, ra_c.color, ra_c.material, ra_c.fastener,
       ra_c.mega_last, ra_c.best_last, ra_c.new_last, ra_c.model_name
FROM candidates AS c
LEFT JOIN ref_attributes AS ra_s ON ra_s.b_key = c.seed_key
LEFT JOIN ref_attributes AS ra_c ON ra_c.b_key = c.cand_key
WHERE (ra_s.material IS NULL OR ra_c.material IS NULL OR ra_s.material = ra_c.material)
ORDER BY c.seed_key, c.cand_key`

func (r *similarityRepository) AttributesAvailable(ctx context.Context) (bool, error) {
	return r.db.TableExists(ctx, "ref_attributes")
}

func (r *similarityRepository) FetchCandidatePairs(ctx context.Context, seeds []int64) ([]models.PairAttributes, error) {
	withAttrs, err := r.AttributesAvailable(ctx)
	if err != nil {
		return nil, err
	}

	sql := candidatePairsSQL
	if withAttrs {
		sql = candidatePairsWithAttributesSQL
	}

	rows, err := r.db.Query(ctx, sql, seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate pairs: %w", err)
	}
	defer rows.Close()

	var pairs []models.PairAttributes
	for rows.Next() {
		var p models.PairAttributes
		p.HasAttributes = withAttrs

		if withAttrs {
			err = rows.Scan(
				&p.SeedKey, &p.CandKey,
				&p.Seed.Season, &p.Seed.Color, &p.Seed.Material, &p.Seed.Fastener,
				&p.Seed.MegaLast, &p.Seed.BestLast, &p.Seed.NewLast, &p.Seed.ModelName,
				&p.Cand.Season, &p.Cand.Color, &p.Cand.Material, &p.Cand.Fastener,
				&p.Cand.MegaLast, &p.Cand.BestLast, &p.Cand.NewLast, &p.Cand.ModelName,
			)
		} else {
			err = rows.Scan(&p.SeedKey, &p.CandKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate pair: %w", err)
		}

		pairs = append(pairs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate pairs: %w", err)
	}

	return pairs, nil
}
