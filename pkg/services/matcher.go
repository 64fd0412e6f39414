package services

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
	"github.com/sellermate/catalog-engine/pkg/models"
	"github.com/sellermate/catalog-engine/pkg/repositories"
)

// InputKind selects how a batch of input values is interpreted.
type InputKind string

const (
	InputAKey         InputKind = "a_key"
	InputBKey         InputKind = "b_key"
	InputBarcode      InputKind = "barcode"
	InputVendorCode   InputKind = "vendor_code"
	InputExternalCode InputKind = "external_code"
)

// MatchService resolves exact barcode matches between the two catalogs.
type MatchService interface {
	// ResolveByKey finds opposite-side matches for catalog keys, ranked per
	// input key and truncated to limit when limit > 0.
	ResolveByKey(ctx context.Context, side models.Side, keys []string, limit int) ([]models.Match, error)
	// ResolveByBarcode finds matches for raw barcode values; a hit must
	// resolve to a product on at least one side.
	ResolveByBarcode(ctx context.Context, barcodes []string, limit int) ([]models.Match, error)
	// ResolveByExternalCode finds matches via the reference barcode mapping.
	// Fails with apperrors.ErrReferenceUnavailable when the mapping tables
	// are absent.
	ResolveByExternalCode(ctx context.Context, codes []string, limit int) ([]models.Match, error)
	// BatchResolve dispatches on the input kind; vendor codes are expanded
	// to Catalog-A keys first.
	BatchResolve(ctx context.Context, inputs []string, kind InputKind, limit int) ([]models.Match, error)
	// DedupeSizes keeps the best-scored row per (input key, size); rows with
	// an unknown size always survive.
	DedupeSizes(matches []models.Match, kind InputKind) []models.Match
}

type matchService struct {
	repo   repositories.MatchRepository
	logger *zap.Logger
}

// NewMatchService creates a new MatchService.
func NewMatchService(repo repositories.MatchRepository, logger *zap.Logger) MatchService {
	return &matchService{repo: repo, logger: logger}
}

var _ MatchService = (*matchService)(nil)

func (s *matchService) ResolveByKey(ctx context.Context, side models.Side, keys []string, limit int) ([]models.Match, error) {
	parsed, err := s.parseKeys(keys)
	if err != nil {
		return nil, err
	}

	switch side {
	case models.SideA:
		return s.repo.ResolveAKeys(ctx, parsed, limit)
	case models.SideB:
		return s.repo.ResolveBKeys(ctx, parsed, limit)
	default:
		return nil, fmt.Errorf("%w: side %q", apperrors.ErrUnknownInputKind, side)
	}
}

func (s *matchService) ResolveByBarcode(ctx context.Context, barcodes []string, limit int) ([]models.Match, error) {
	vals := normalizeTokens(barcodes)
	if len(vals) == 0 {
		return nil, apperrors.ErrEmptyInput
	}
	return s.repo.ResolveBarcodes(ctx, vals, limit)
}

func (s *matchService) ResolveByExternalCode(ctx context.Context, codes []string, limit int) ([]models.Match, error) {
	vals := normalizeTokens(codes)
	if len(vals) == 0 {
		return nil, apperrors.ErrEmptyInput
	}
	return s.repo.ResolveExternalCodes(ctx, vals, limit)
}

func (s *matchService) BatchResolve(ctx context.Context, inputs []string, kind InputKind, limit int) ([]models.Match, error) {
	switch kind {
	case InputAKey:
		return s.ResolveByKey(ctx, models.SideA, inputs, limit)
	case InputBKey:
		return s.ResolveByKey(ctx, models.SideB, inputs, limit)
	case InputBarcode:
		return s.ResolveByBarcode(ctx, inputs, limit)
	case InputExternalCode:
		return s.ResolveByExternalCode(ctx, inputs, limit)
	case InputVendorCode:
		vals := normalizeTokens(inputs)
		if len(vals) == 0 {
			return nil, apperrors.ErrEmptyInput
		}
		keys, err := s.repo.AKeysForVendorCodes(ctx, vals)
		if err != nil {
			return nil, err
		}
		if len(keys) == 0 {
			return nil, nil
		}
		return s.repo.ResolveAKeys(ctx, keys, limit)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownInputKind, kind)
	}
}

func (s *matchService) DedupeSizes(matches []models.Match, kind InputKind) []models.Match {
	var sizeOf func(m models.Match) string
	switch kind {
	case InputBKey:
		sizeOf = func(m models.Match) string { return deref(m.BSize) }
	case InputAKey, InputVendorCode:
		sizeOf = func(m models.Match) string { return deref(m.ASize) }
	default:
		return matches
	}

	// Best score wins per (input, size); the sort is stable so equal scores
	// keep the repository's deterministic order.
	idx := make([]int, len(matches))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return matches[idx[i]].Score > matches[idx[j]].Score
	})

	type sizeKey struct {
		input string
		size  string
	}
	seen := make(map[sizeKey]bool)
	keep := make(map[int]bool, len(matches))
	for _, i := range idx {
		size := strings.TrimSpace(sizeOf(matches[i]))
		if size == "" {
			keep[i] = true
			continue
		}
		k := sizeKey{input: matches[i].InputValue, size: size}
		if !seen[k] {
			seen[k] = true
			keep[i] = true
		}
	}

	out := make([]models.Match, 0, len(keep))
	for i, m := range matches {
		if keep[i] {
			out = append(out, m)
		}
	}
	return out
}

// parseKeys normalizes and parses key tokens. Non-numeric tokens are dropped
// with a warning; an empty remainder is a validation failure.
func (s *matchService) parseKeys(keys []string) ([]int64, error) {
	vals := normalizeTokens(keys)
	parsed := make([]int64, 0, len(vals))
	for _, v := range vals {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			s.logger.Warn("Dropping non-numeric key", zap.String("key", v))
			continue
		}
		parsed = append(parsed, n)
	}
	if len(parsed) == 0 {
		return nil, apperrors.ErrEmptyInput
	}
	return parsed, nil
}

// normalizeTokens strips whitespace and drops empty values.
func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if s := strings.TrimSpace(t); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
