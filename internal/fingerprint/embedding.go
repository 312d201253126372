package fingerprint

import (
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// DefaultDimension is the embedding dimension. It matches the output size of
// the small sentence-transformer models the pipeline may substitute later, so
// a trained model can replace the hash-trick builder without touching the
// scorer or the LSH.
const DefaultDimension = 384

// DefaultTermWeights boosts claim-domain vocabulary above the 1.0 baseline.
// Terms are matched post-tokenization, so they must be lowercase single tokens.
var DefaultTermWeights = map[string]float64{
	"claim":     2.0,
	"policy":    2.0,
	"invoice":   2.0,
	"diagnosis": 1.8,
	"treatment": 1.8,
	"hospital":  1.5,
	"admission": 1.5,
	"discharge": 1.5,
	"surgery":   1.5,
	"bảo":       2.0,
	"hiểm":      2.0,
	"hóa":       1.8,
	"đơn":       1.8,
	"viện":      1.5,
	"phí":       1.5,
	"thuốc":     1.5,
	"khám":      1.5,
	"bệnh":      1.5,
}

// EmbeddingBuilder maps token streams to fixed-dimension vectors using the
// hashing trick: each token lands at a stable index and its weight accumulates
// additively, so hash collisions add rather than overwrite.
type EmbeddingBuilder struct {
	dim     int
	weights map[string]float64
}

// NewEmbeddingBuilder creates a builder with the given dimension and term
// weight table. Zero or negative dim falls back to DefaultDimension; a nil
// table falls back to DefaultTermWeights.
func NewEmbeddingBuilder(dim int, weights map[string]float64) *EmbeddingBuilder {
	if dim <= 0 {
		dim = DefaultDimension
	}
	if weights == nil {
		weights = DefaultTermWeights
	}
	return &EmbeddingBuilder{dim: dim, weights: weights}
}

// Dimension returns the output vector length.
func (b *EmbeddingBuilder) Dimension() int {
	return b.dim
}

// Build accumulates token weights into a vector and L2-normalizes it.
// Identical token multisets always produce bit-identical vectors; the cache
// and the reproducibility tests depend on that. No eligible tokens yields the
// zero vector, deliberately un-normalized.
func (b *EmbeddingBuilder) Build(tokens []string) []float64 {
	vec := make([]float64, b.dim)
	seen := false
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		seen = true
		w := 1.0
		if boost, ok := b.weights[tok]; ok {
			w = boost
		}
		idx := xxhash.Sum64String(tok) % uint64(b.dim)
		vec[idx] += w
	}
	if !seen {
		return vec
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] /= norm
	}
	return vec
}

// Tokenize lowercases text and splits it on anything that is neither a letter
// nor a digit. Whitespace and punctuation variants of the same text therefore
// tokenize identically.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// Shingles returns the word n-grams of the token stream joined by a single
// space. Fewer than n tokens yields one shingle covering all of them.
func Shingles(tokens []string, n int) []string {
	if len(tokens) == 0 || n <= 0 {
		return nil
	}
	if len(tokens) <= n {
		return []string{strings.Join(tokens, " ")}
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}
