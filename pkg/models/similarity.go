package models

import (
	"fmt"

	"github.com/sellermate/catalog-engine/pkg/apperrors"
)

// SimilarityConfig holds the weights for the variant-similarity scoring.
// Callers may override any field per request; zero-value requests should go
// through DefaultSimilarityConfig instead.
type SimilarityConfig struct {
	BaseScore int `json:"base_score" yaml:"base_score"`
	MaxScore  int `json:"max_score" yaml:"max_score"`

	SeasonMatchBonus      int `json:"season_match_bonus" yaml:"season_match_bonus"`
	SeasonMismatchPenalty int `json:"season_mismatch_penalty" yaml:"season_mismatch_penalty"`

	ColorMatchBonus    int `json:"color_match_bonus" yaml:"color_match_bonus"`
	MaterialMatchBonus int `json:"material_match_bonus" yaml:"material_match_bonus"`
	FastenerMatchBonus int `json:"fastener_match_bonus" yaml:"fastener_match_bonus"`

	MegaLastBonus int `json:"mega_last_bonus" yaml:"mega_last_bonus"`
	BestLastBonus int `json:"best_last_bonus" yaml:"best_last_bonus"`
	NewLastBonus  int `json:"new_last_bonus" yaml:"new_last_bonus"`

	ModelMatchBonus int `json:"model_match_bonus" yaml:"model_match_bonus"`

	// NoLastPenaltyMultiplier scales the whole accumulated score when no last
	// tier matched. Must be in (0, 1].
	NoLastPenaltyMultiplier float64 `json:"no_last_penalty_multiplier" yaml:"no_last_penalty_multiplier"`

	MinScoreThreshold    float64 `json:"min_score_threshold" yaml:"min_score_threshold"`
	MaxCandidatesPerSeed int     `json:"max_candidates_per_seed" yaml:"max_candidates_per_seed"`

	// MaxGroupSize bounds merge-group size; zero disables splitting.
	MaxGroupSize int `json:"max_group_size" yaml:"max_group_size"`
}

// DefaultSimilarityConfig returns the production default weights.
func DefaultSimilarityConfig() SimilarityConfig {
	return SimilarityConfig{
		BaseScore: 100,
		MaxScore:  600,

		SeasonMatchBonus:      80,
		SeasonMismatchPenalty: -40,

		ColorMatchBonus:    40,
		MaterialMatchBonus: 40,
		FastenerMatchBonus: 30,

		MegaLastBonus: 90,
		BestLastBonus: 70,
		NewLastBonus:  50,

		ModelMatchBonus: 40,

		NoLastPenaltyMultiplier: 0.7,

		MinScoreThreshold:    300.0,
		MaxCandidatesPerSeed: 30,
		MaxGroupSize:         10,
	}
}

// Validate checks the configuration bounds.
func (c *SimilarityConfig) Validate() error {
	if c.BaseScore <= 0 {
		return fmt.Errorf("%w: base_score must be > 0", apperrors.ErrInvalidConfig)
	}
	if c.MinScoreThreshold <= 0 || c.MinScoreThreshold >= float64(c.MaxScore) {
		return fmt.Errorf("%w: min_score_threshold must be between 0 and max_score", apperrors.ErrInvalidConfig)
	}
	if c.MaxCandidatesPerSeed <= 0 {
		return fmt.Errorf("%w: max_candidates_per_seed must be > 0", apperrors.ErrInvalidConfig)
	}
	if c.NoLastPenaltyMultiplier <= 0 || c.NoLastPenaltyMultiplier > 1 {
		return fmt.Errorf("%w: no_last_penalty_multiplier must be in (0,1]", apperrors.ErrInvalidConfig)
	}
	if c.MaxGroupSize < 0 {
		return fmt.Errorf("%w: max_group_size must be >= 0", apperrors.ErrInvalidConfig)
	}
	return nil
}

// SimilarityAttributes are one product's similarity-relevant attributes from
// the optional reference source. Nil fields are unknown.
type SimilarityAttributes struct {
	Season    *string
	Color     *string
	Material  *string
	Fastener  *string
	MegaLast  *string
	BestLast  *string
	NewLast   *string
	ModelName *string
}

// PairAttributes is one prefiltered (seed, candidate) pair with both sides'
// attributes attached. HasAttributes is false when the reference attribute
// table is absent, in which case both attribute sets are empty.
type PairAttributes struct {
	SeedKey       int64
	CandKey       int64
	HasAttributes bool
	Seed          SimilarityAttributes
	Cand          SimilarityAttributes
}

// CandidatePair is a scored (seed, candidate) pair after threshold filtering,
// deduplication and ranking.
type CandidatePair struct {
	SeedKey    int64   `json:"seed_key"`
	CandKey    int64   `json:"cand_key"`
	FinalScore float64 `json:"final_score"`
}
