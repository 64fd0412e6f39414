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

// SimilarityStats counts the stages of a similarity run, for debugging.
type SimilarityStats struct {
	SeedsQueried int `json:"seeds_queried"`
	PairsScored  int `json:"pairs_scored"`
	PairsKept    int `json:"pairs_kept"`
	Groups       int `json:"groups"`
	Rows         int `json:"rows"`
}

// SimilarityResult is the full output of a similarity run: the merged rows
// with group assignments, the surviving scored pairs and the stage counts.
type SimilarityResult struct {
	Rows  []models.MergedRow     `json:"rows"`
	Pairs []models.CandidatePair `json:"pairs"`
	Stats SimilarityStats        `json:"stats"`
}

// SimilarityService scores variant similarity between Catalog-B products and
// clusters them into bounded merge groups.
type SimilarityService interface {
	FindSimilar(ctx context.Context, seedKeys []string, cfg *models.SimilarityConfig) (*SimilarityResult, error)
}

type similarityService struct {
	matchRepo repositories.MatchRepository
	simRepo   repositories.SimilarityRepository
	logger    *zap.Logger
}

// NewSimilarityService creates a new SimilarityService.
func NewSimilarityService(matchRepo repositories.MatchRepository, simRepo repositories.SimilarityRepository, logger *zap.Logger) SimilarityService {
	return &similarityService{matchRepo: matchRepo, simRepo: simRepo, logger: logger}
}

var _ SimilarityService = (*similarityService)(nil)

func (s *similarityService) FindSimilar(ctx context.Context, seedKeys []string, cfg *models.SimilarityConfig) (*SimilarityResult, error) {
	if cfg == nil {
		def := models.DefaultSimilarityConfig()
		cfg = &def
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seeds, err := s.parseSeeds(seedKeys)
	if err != nil {
		return nil, err
	}

	raw, err := s.simRepo.FetchCandidatePairs(ctx, seeds)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidate pairs: %w", err)
	}

	pairs := s.scoreAndRank(raw, cfg)

	s.logger.Debug("Similarity pairs scored",
		zap.Int("seeds", len(seeds)),
		zap.Int("scored", len(raw)),
		zap.Int("kept", len(pairs)))

	scores := similarityScores(seeds, pairs, cfg)
	groups := buildGroups(seeds, pairs, cfg.MaxGroupSize)

	rows, err := s.mergeRows(ctx, groups, scores)
	if err != nil {
		return nil, err
	}

	return &SimilarityResult{
		Rows:  rows,
		Pairs: pairs,
		Stats: SimilarityStats{
			SeedsQueried: len(seeds),
			PairsScored:  len(raw),
			PairsKept:    len(pairs),
			Groups:       len(groups),
			Rows:         len(rows),
		},
	}, nil
}

// parseSeeds normalizes and parses the seed key tokens. Non-numeric tokens
// are dropped with a warning; an empty remainder is a validation failure.
// The result is sorted and deduplicated.
func (s *similarityService) parseSeeds(seedKeys []string) ([]int64, error) {
	distinct := make(map[int64]struct{})
	for _, t := range normalizeTokens(seedKeys) {
		n, err := strconv.ParseInt(t, 10, 64)
		if err != nil {
			s.logger.Warn("Dropping non-numeric seed key", zap.String("key", t))
			continue
		}
		distinct[n] = struct{}{}
	}
	if len(distinct) == 0 {
		return nil, apperrors.ErrEmptyInput
	}

	seeds := make([]int64, 0, len(distinct))
	for k := range distinct {
		seeds = append(seeds, k)
	}
	sort.Slice(seeds, func(i, j int) bool { return seeds[i] < seeds[j] })
	return seeds, nil
}

// scoreAndRank scores every prefiltered pair, drops pairs below the
// threshold, collapses duplicates to their maximum score and ranks the
// survivors per seed (score descending, candidate key ascending), truncated
// to MaxCandidatesPerSeed.
func (s *similarityService) scoreAndRank(raw []models.PairAttributes, cfg *models.SimilarityConfig) []models.CandidatePair {
	type pairID struct {
		seed, cand int64
	}
	best := make(map[pairID]float64, len(raw))
	for _, pa := range raw {
		score := scorePair(cfg, pa)
		if score < cfg.MinScoreThreshold {
			continue
		}
		id := pairID{seed: pa.SeedKey, cand: pa.CandKey}
		if prev, ok := best[id]; !ok || score > prev {
			best[id] = score
		}
	}

	bySeed := make(map[int64][]models.CandidatePair)
	for id, score := range best {
		bySeed[id.seed] = append(bySeed[id.seed], models.CandidatePair{
			SeedKey:    id.seed,
			CandKey:    id.cand,
			FinalScore: score,
		})
	}

	seedOrder := make([]int64, 0, len(bySeed))
	for seed := range bySeed {
		seedOrder = append(seedOrder, seed)
	}
	sort.Slice(seedOrder, func(i, j int) bool { return seedOrder[i] < seedOrder[j] })

	var out []models.CandidatePair
	for _, seed := range seedOrder {
		cands := bySeed[seed]
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].FinalScore != cands[j].FinalScore {
				return cands[i].FinalScore > cands[j].FinalScore
			}
			return cands[i].CandKey < cands[j].CandKey
		})
		if len(cands) > cfg.MaxCandidatesPerSeed {
			cands = cands[:cfg.MaxCandidatesPerSeed]
		}
		out = append(out, cands...)
	}
	return out
}

// scorePair computes the weighted similarity score for one pair. Without
// attribute data every pair scores the base alone; the SQL prefilter already
// guaranteed category and gender agreement.
func scorePair(cfg *models.SimilarityConfig, pa models.PairAttributes) float64 {
	if !pa.HasAttributes {
		return float64(cfg.BaseScore)
	}

	score := float64(cfg.BaseScore)

	// For season through fastener only NULL means unknown: empty strings are
	// values and compare like any other, including drawing the season
	// mismatch penalty against a non-empty season.
	if pa.Seed.Season != nil && pa.Cand.Season != nil {
		if *pa.Seed.Season == *pa.Cand.Season {
			score += float64(cfg.SeasonMatchBonus)
		} else {
			score += float64(cfg.SeasonMismatchPenalty)
		}
	}
	if knownEqual(pa.Seed.Color, pa.Cand.Color) {
		score += float64(cfg.ColorMatchBonus)
	}
	if knownEqual(pa.Seed.Material, pa.Cand.Material) {
		score += float64(cfg.MaterialMatchBonus)
	}
	if knownEqual(pa.Seed.Fastener, pa.Cand.Fastener) {
		score += float64(cfg.FastenerMatchBonus)
	}

	// Only the strongest matching last tier counts, and empty last
	// identifiers never match (upstream uses '' as a placeholder there).
	lastScore := 0.0
	switch {
	case setEqual(pa.Seed.MegaLast, pa.Cand.MegaLast):
		lastScore = float64(cfg.MegaLastBonus)
	case setEqual(pa.Seed.BestLast, pa.Cand.BestLast):
		lastScore = float64(cfg.BestLastBonus)
	case setEqual(pa.Seed.NewLast, pa.Cand.NewLast):
		lastScore = float64(cfg.NewLastBonus)
	}
	score += lastScore

	if setEqual(pa.Seed.ModelName, pa.Cand.ModelName) {
		score += float64(cfg.ModelMatchBonus)
	}

	if lastScore == 0 {
		score *= cfg.NoLastPenaltyMultiplier
	}
	if max := float64(cfg.MaxScore); score > max {
		score = max
	}
	return score
}

// similarityScores assigns each key the maximum score it participated in.
// Queried seeds that never appear as a candidate fall back to the base score
// so singleton rows still carry a value.
func similarityScores(seeds []int64, pairs []models.CandidatePair, cfg *models.SimilarityConfig) map[int64]float64 {
	scores := make(map[int64]float64, len(seeds)+len(pairs))
	for _, seed := range seeds {
		scores[seed] = float64(cfg.BaseScore)
	}
	for _, p := range pairs {
		if p.FinalScore > scores[p.SeedKey] {
			scores[p.SeedKey] = p.FinalScore
		}
		if p.FinalScore > scores[p.CandKey] {
			scores[p.CandKey] = p.FinalScore
		}
	}
	return scores
}

// buildGroups clusters the surviving pairs by connectivity and bounds the
// resulting components. Every queried seed is registered so seeds without
// matches come back as singletons.
func buildGroups(seeds []int64, pairs []models.CandidatePair, maxGroupSize int) [][]int64 {
	uf := newUnionFind()
	for _, seed := range seeds {
		uf.add(seed)
	}
	for _, p := range pairs {
		uf.union(p.SeedKey, p.CandKey)
	}

	edges := buildEdgeWeights(pairs)
	return boundComponents(uf.components(), edges, maxGroupSize)
}

// mergeRows resolves the A-side attributes of every grouped key and assembles
// the final merged rows with merge codes and dense group numbers.
func (s *similarityService) mergeRows(ctx context.Context, groups [][]int64, scores map[int64]float64) ([]models.MergedRow, error) {
	codeByKey := make(map[int64]MergeCode)
	var allKeys []int64
	for _, group := range groups {
		code := mergeCodeForKey(group[0])
		for _, k := range group {
			codeByKey[k] = code
			allKeys = append(allKeys, k)
		}
	}
	sort.Slice(allKeys, func(i, j int) bool { return allKeys[i] < allKeys[j] })

	matches, err := s.matchRepo.ResolveBKeys(ctx, allKeys, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve grouped keys: %w", err)
	}

	matchesByKey := make(map[int64][]models.Match, len(allKeys))
	for _, m := range matches {
		if m.BKey == nil {
			continue
		}
		matchesByKey[*m.BKey] = append(matchesByKey[*m.BKey], m)
	}

	var rows []models.MergedRow
	for _, k := range allKeys {
		code := codeByKey[k]
		// The code comes from the group representative; the displayed color
		// token carries each row's own key hex.
		rowHex := mergeCodeForKey(k).Hex
		ms := matchesByKey[k]
		if len(ms) == 0 {
			rows = append(rows, models.MergedRow{
				BKey:            k,
				MergeCode:       code.Code,
				MergeColor:      rowHex,
				FallbackHex:     code.Fallback,
				SimilarityScore: scores[k],
			})
			continue
		}
		for _, m := range ms {
			vendorCode := deref(m.AVendorCode)
			color, _ := ParseColorFromVendorCode(vendorCode)
			rows = append(rows, models.MergedRow{
				BKey:            k,
				AKey:            m.AKey,
				AVendorCode:     vendorCode,
				ASize:           deref(m.ASize),
				MergeCode:       code.Code,
				MergeColor:      MergeColor(color, rowHex),
				FallbackHex:     code.Fallback,
				MatchScore:      m.Score,
				SimilarityScore: scores[k],
			})
		}
	}

	rows = dedupeRowSizes(rows)

	codes := make([]string, 0, len(rows))
	for _, r := range rows {
		codes = append(codes, r.MergeCode)
	}
	numbers := AssignGroupNumbers(codes)
	for i := range rows {
		rows[i].GroupNumber = numbers[rows[i].MergeCode]
	}

	return rows, nil
}

// dedupeRowSizes keeps the best-scored row per (b_key, a_key, size). Matches
// ranked lower duplicate the same physical variant through extra barcodes.
func dedupeRowSizes(rows []models.MergedRow) []models.MergedRow {
	type variantKey struct {
		bKey int64
		aKey int64
		size string
	}
	bestIdx := make(map[variantKey]int, len(rows))
	for i, r := range rows {
		size := strings.TrimSpace(r.ASize)
		if size == "" {
			continue
		}
		k := variantKey{bKey: r.BKey, size: size}
		if r.AKey != nil {
			k.aKey = *r.AKey
		}
		if prev, ok := bestIdx[k]; !ok || r.MatchScore > rows[prev].MatchScore {
			bestIdx[k] = i
		}
	}

	keep := make(map[int]bool, len(bestIdx))
	for _, i := range bestIdx {
		keep[i] = true
	}

	out := make([]models.MergedRow, 0, len(rows))
	for i, r := range rows {
		if strings.TrimSpace(r.ASize) == "" || keep[i] {
			out = append(out, r)
		}
	}
	return out
}

// knownEqual reports whether both values are present and equal. Empty
// strings count as present.
func knownEqual(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

// setEqual additionally requires a non-empty value on both sides.
func setEqual(a, b *string) bool {
	return a != nil && b != nil && *a != "" && *a == *b
}
