package similarity

import (
	"math"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// Metrics are the per-signal similarity values between two fingerprints plus
// the fused overall score and the inter-signal agreement confidence. All
// values lie in [0,1]. Derived, never persisted outside the score cache.
type Metrics struct {
	Structural float64 `json:"structural"`
	Content    float64 `json:"content"`
	Visual     float64 `json:"visual"`
	Semantic   float64 `json:"semantic"`
	Overall    float64 `json:"overall"`
	Confidence float64 `json:"confidence"`
}

// Scorer computes pairwise similarity metrics. All paths are total functions:
// degenerate inputs score 0.0, never an error, so one malformed candidate can
// never abort a batch search.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer with the given fusion weights.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Score compares two fingerprints. Symmetric: Score(a,b) and Score(b,a) are
// bit-identical.
func (s *Scorer) Score(a, b fingerprint.Fingerprint) Metrics {
	m := Metrics{
		Visual:   hammingSimilarity(a.Visual, b.Visual),
		Semantic: cosineSimilarity(a.Embedding, b.Embedding),
	}
	// Structural and content hashes already encode quantized equivalence
	// classes, so these signals are exact-match rather than distance-based.
	if a.Structural != "" && a.Structural == b.Structural {
		m.Structural = 1.0
	}
	if a.Content != "" && a.Content == b.Content {
		m.Content = 1.0
	}

	m.Overall = s.weights.Structural*m.Structural +
		s.weights.Content*m.Content +
		s.weights.Visual*m.Visual +
		s.weights.Semantic*m.Semantic
	m.Confidence = confidence(m)
	return m
}

// confidence measures inter-signal agreement: the lower the spread of the
// non-zero signals, the higher the confidence. A single strong signal with no
// corroboration scores lower than four agreeing ones. All-zero signals yield
// zero confidence.
func confidence(m Metrics) float64 {
	signals := make([]float64, 0, 4)
	for _, v := range []float64{m.Structural, m.Content, m.Visual, m.Semantic} {
		if v != 0 {
			signals = append(signals, v)
		}
	}
	if len(signals) == 0 {
		return 0
	}

	var mean float64
	for _, v := range signals {
		mean += v
	}
	mean /= float64(len(signals))

	var variance float64
	for _, v := range signals {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(signals))

	return math.Max(0.1, 1-math.Sqrt(variance))
}

// hammingSimilarity scores two hash strings by character agreement.
// Mismatched lengths score 0.0.
func hammingSimilarity(a, b fingerprint.Hash) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	same := 0
	for i := 0; i < len(a); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return float64(same) / float64(len(a))
}

// cosineSimilarity compares two embeddings. Dimension mismatch or a
// zero-norm vector scores 0.0, never NaN. Negative cosine values are clamped
// to zero; opposed embeddings carry no duplicate signal.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	cos := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if cos < 0 {
		return 0
	}
	if cos > 1 {
		return 1
	}
	return cos
}
