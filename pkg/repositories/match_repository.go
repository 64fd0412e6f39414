package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
	"github.com/sellermate/catalog-engine/pkg/database"
	"github.com/sellermate/catalog-engine/pkg/models"
)

// MatchRepository executes the exact-match queries against the catalog tables.
type MatchRepository interface {
	ResolveAKeys(ctx context.Context, keys []int64, limit int) ([]models.Match, error)
	ResolveBKeys(ctx context.Context, keys []int64, limit int) ([]models.Match, error)
	ResolveBarcodes(ctx context.Context, barcodes []string, limit int) ([]models.Match, error)
	ResolveExternalCodes(ctx context.Context, codes []string, limit int) ([]models.Match, error)
	AKeysForVendorCodes(ctx context.Context, vendorCodes []string) ([]int64, error)
	ReferenceTablesExist(ctx context.Context) (bool, error)
}

type matchRepository struct {
	db *database.DB
}

// NewMatchRepository creates a new MatchRepository over the given pool.
func NewMatchRepository(db *database.DB) MatchRepository {
	return &matchRepository{db: db}
}

var _ MatchRepository = (*matchRepository)(nil)

func (r *matchRepository) ResolveAKeys(ctx context.Context, keys []int64, limit int) ([]models.Match, error) {
	return r.resolve(ctx, modeByAKey, keys, limit)
}

func (r *matchRepository) ResolveBKeys(ctx context.Context, keys []int64, limit int) ([]models.Match, error) {
	return r.resolve(ctx, modeByBKey, keys, limit)
}

func (r *matchRepository) ResolveBarcodes(ctx context.Context, barcodes []string, limit int) ([]models.Match, error) {
	return r.resolve(ctx, modeByBarcode, barcodes, limit)
}

func (r *matchRepository) ResolveExternalCodes(ctx context.Context, codes []string, limit int) ([]models.Match, error) {
	exists, err := r.ReferenceTablesExist(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, apperrors.ErrReferenceUnavailable
	}
	return r.resolve(ctx, modeByExternalCode, codes, limit)
}

// resolve runs the assembled query for the mode. input must be []int64 for
// the key modes and []string otherwise; pgx binds both as arrays.
func (r *matchRepository) resolve(ctx context.Context, mode matchMode, input any, limit int) ([]models.Match, error) {
	enrich, err := r.ReferenceTablesExist(ctx)
	if err != nil {
		return nil, err
	}
	// External-code mode always carries the overlay: its input join already
	// requires the reference tables.
	if mode == modeByExternalCode {
		enrich = true
	}

	sql := buildMatchQuery(mode, enrich)

	rows, err := r.db.Query(ctx, sql, input, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating matches: %w", err)
	}

	return matches, nil
}

func (r *matchRepository) AKeysForVendorCodes(ctx context.Context, vendorCodes []string) ([]int64, error) {
	rows, err := r.db.Query(ctx, vendorCodeKeysSQL, vendorCodes)
	if err != nil {
		return nil, fmt.Errorf("failed to map vendor codes: %w", err)
	}
	defer rows.Close()

	var keys []int64
	for rows.Next() {
		var k int64
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan vendor code key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vendor code keys: %w", err)
	}

	return keys, nil
}

func (r *matchRepository) ReferenceTablesExist(ctx context.Context) (bool, error) {
	for _, table := range []string{"ref_barcodes", "ref_product_codes"} {
		exists, err := r.db.TableExists(ctx, table)
		if err != nil {
			return false, err
		}
		if !exists {
			return false, nil
		}
	}
	return true, nil
}

// scanMatch reads one row in the fixed projection order of buildMatchQuery.
func scanMatch(row pgx.Row) (models.Match, error) {
	var m models.Match
	var tier string

	err := row.Scan(
		&m.InputValue,
		&m.AKey,
		&m.AVendorCode,
		&m.BKey,
		&m.APrimaryHit,
		&m.BPrimaryHit,
		&m.APrimaryBarcode,
		&m.ASize,
		&m.AName,
		&m.ABrand,
		&m.AColor,
		&m.BPrimaryBarcode,
		&m.BSize,
		&m.BArticle,
		&m.BBrand,
		&m.BColor,
		&m.BarcodeHit,
		&tier,
		&m.Score,
		&m.RefCollectionA,
		&m.RefExternalA,
		&m.RefCollectionB,
		&m.RefExternalB,
		&m.RefEqual,
		&m.Rank,
	)
	if err != nil {
		return models.Match{}, fmt.Errorf("failed to scan match: %w", err)
	}

	m.Tier = models.Tier(tier)
	return m, nil
}
