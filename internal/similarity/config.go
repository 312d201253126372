package similarity

import (
	"errors"
	"fmt"
	"math"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// Sentinel errors for the similarity core.
var (
	// ErrInvalidConfig indicates a rejected configuration value.
	ErrInvalidConfig = errors.New("invalid similarity configuration")

	// ErrEmptyDocumentID is returned when an index operation is attempted
	// without a document id.
	ErrEmptyDocumentID = errors.New("document id is required")
)

// Weights are the per-signal fusion weights. They must sum to 1.
type Weights struct {
	Structural float64 `json:"structural" koanf:"structural"`
	Content    float64 `json:"content" koanf:"content"`
	Visual     float64 `json:"visual" koanf:"visual"`
	Semantic   float64 `json:"semantic" koanf:"semantic"`
}

// Config tunes the similarity core.
//
// Bands and RowsPerBand shape the MinHash signature; changing them on a live
// service only takes effect for new signatures, so callers must follow such a
// change with OptimizeIndex to rebuild existing band tables. Querying in
// between is caller misuse, not an error.
type Config struct {
	// Dimension is the embedding length all fingerprints must share.
	Dimension int `json:"dimension" koanf:"dimension"`

	// Bands and RowsPerBand control the LSH banding; bands*rows_per_band is
	// the total number of MinHash functions.
	Bands       int `json:"bands" koanf:"bands"`
	RowsPerBand int `json:"rows_per_band" koanf:"rows_per_band"`

	// HashScale quantizes embedding components before MinHash element mixing.
	HashScale float64 `json:"hash_scale" koanf:"hash_scale"`

	// SimilarityThreshold admits a scored candidate into the similar list;
	// DuplicateThreshold additionally admits it into the duplicate list.
	SimilarityThreshold float64 `json:"similarity_threshold" koanf:"similarity_threshold"`
	DuplicateThreshold  float64 `json:"duplicate_threshold" koanf:"duplicate_threshold"`

	// SignalThreshold is the per-signal cutoff for the matched-signals list.
	SignalThreshold float64 `json:"signal_threshold" koanf:"signal_threshold"`

	// Weights fuse the four signals into the overall score.
	Weights Weights `json:"weights" koanf:"weights"`

	// CacheSize bounds the pairwise score cache.
	CacheSize int `json:"cache_size" koanf:"cache_size"`

	// ExhaustiveLimit is the index size up to which approximate search still
	// compares against every entry. Small indexes get exact recall cheaply;
	// large ones trade a small false-negative risk for sub-linear lookup.
	ExhaustiveLimit int `json:"exhaustive_limit" koanf:"exhaustive_limit"`
}

// DefaultConfig returns the reference tuning.
func DefaultConfig() Config {
	return Config{
		Dimension:           fingerprint.DefaultDimension,
		Bands:               20,
		RowsPerBand:         5,
		HashScale:           16,
		SimilarityThreshold: 0.7,
		DuplicateThreshold:  0.95,
		SignalThreshold:     0.9,
		Weights: Weights{
			Structural: 0.2,
			Content:    0.4,
			Visual:     0.2,
			Semantic:   0.2,
		},
		CacheSize:       10000,
		ExhaustiveLimit: 1000,
	}
}

// Validate rejects configurations the core cannot run with.
func (c Config) Validate() error {
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive, got %d", ErrInvalidConfig, c.Dimension)
	}
	if c.Bands <= 0 || c.RowsPerBand <= 0 {
		return fmt.Errorf("%w: bands (%d) and rows_per_band (%d) must be positive",
			ErrInvalidConfig, c.Bands, c.RowsPerBand)
	}
	if c.HashScale <= 0 {
		return fmt.Errorf("%w: hash_scale must be positive, got %v", ErrInvalidConfig, c.HashScale)
	}
	for name, v := range map[string]float64{
		"similarity_threshold": c.SimilarityThreshold,
		"duplicate_threshold":  c.DuplicateThreshold,
		"signal_threshold":     c.SignalThreshold,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %s must be in [0,1], got %v", ErrInvalidConfig, name, v)
		}
	}
	sum := c.Weights.Structural + c.Weights.Content + c.Weights.Visual + c.Weights.Semantic
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: signal weights must sum to 1, got %v", ErrInvalidConfig, sum)
	}
	if c.Weights.Structural < 0 || c.Weights.Content < 0 || c.Weights.Visual < 0 || c.Weights.Semantic < 0 {
		return fmt.Errorf("%w: signal weights must be non-negative", ErrInvalidConfig)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("%w: cache_size must be positive, got %d", ErrInvalidConfig, c.CacheSize)
	}
	if c.ExhaustiveLimit < 0 {
		return fmt.Errorf("%w: exhaustive_limit must be non-negative, got %d", ErrInvalidConfig, c.ExhaustiveLimit)
	}
	return nil
}

// ConfigPatch is a partial update for threshold and weight tuning. Nil fields
// keep their current value. Patching Bands or RowsPerBand requires a
// subsequent OptimizeIndex to rebuild existing signatures.
type ConfigPatch struct {
	SimilarityThreshold *float64 `json:"similarity_threshold"`
	DuplicateThreshold  *float64 `json:"duplicate_threshold"`
	SignalThreshold     *float64 `json:"signal_threshold"`
	Weights             *Weights `json:"weights"`
	Bands               *int     `json:"bands"`
	RowsPerBand         *int     `json:"rows_per_band"`
}

// apply merges the patch into a copy of cfg.
func (p ConfigPatch) apply(cfg Config) Config {
	if p.SimilarityThreshold != nil {
		cfg.SimilarityThreshold = *p.SimilarityThreshold
	}
	if p.DuplicateThreshold != nil {
		cfg.DuplicateThreshold = *p.DuplicateThreshold
	}
	if p.SignalThreshold != nil {
		cfg.SignalThreshold = *p.SignalThreshold
	}
	if p.Weights != nil {
		cfg.Weights = *p.Weights
	}
	if p.Bands != nil {
		cfg.Bands = *p.Bands
	}
	if p.RowsPerBand != nil {
		cfg.RowsPerBand = *p.RowsPerBand
	}
	return cfg
}
