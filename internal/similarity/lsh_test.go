package similarity

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

func newTestLSH(t *testing.T) *LSH {
	t.Helper()
	cfg := DefaultConfig()
	l, err := NewLSH(cfg.Bands, cfg.RowsPerBand, cfg.HashScale)
	require.NoError(t, err)
	return l
}

func TestNewLSHRejectsBadShape(t *testing.T) {
	for _, tc := range [][3]float64{{0, 5, 16}, {20, 0, 16}, {-1, 5, 16}, {20, 5, 0}} {
		_, err := NewLSH(int(tc[0]), int(tc[1]), tc[2])
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}

func TestSignatureDeterministic(t *testing.T) {
	l := newTestLSH(t)
	b := fingerprint.NewEmbeddingBuilder(fingerprint.DefaultDimension, nil)
	emb := b.Build(fingerprint.Tokenize("hóa đơn viện phí 2,500,000 VNĐ"))

	require.Equal(t, l.Signature(emb), l.Signature(emb))
	assert.Len(t, l.Signature(emb), 20*5)
}

func TestSignatureEmptySupport(t *testing.T) {
	l := newTestLSH(t)
	assert.Nil(t, l.Signature(make([]float64, fingerprint.DefaultDimension)))
}

func TestInsertAndCandidates(t *testing.T) {
	l := newTestLSH(t)
	b := fingerprint.NewEmbeddingBuilder(fingerprint.DefaultDimension, nil)
	emb := b.Build(fingerprint.Tokenize("giấy ra viện bệnh viện chợ rẫy"))

	l.Insert("D1", l.Signature(emb))
	cands := l.Candidates(l.Signature(emb))
	assert.Contains(t, cands, "D1", "an identical embedding must always be a candidate")
}

func TestRemoveCleansBuckets(t *testing.T) {
	l := newTestLSH(t)
	b := fingerprint.NewEmbeddingBuilder(fingerprint.DefaultDimension, nil)
	emb := b.Build(fingerprint.Tokenize("đơn thuốc ngoại trú"))
	sig := l.Signature(emb)

	l.Insert("D1", sig)
	l.Remove("D1")

	assert.NotContains(t, l.Candidates(sig), "D1")
	assert.Zero(t, l.Len())
	for band, table := range l.tables {
		assert.Emptyf(t, table, "band %d retained empty buckets", band)
	}

	// Removing an absent id is a no-op.
	l.Remove("D1")
}

func TestReinsertReplacesMemberships(t *testing.T) {
	l := newTestLSH(t)
	b := fingerprint.NewEmbeddingBuilder(fingerprint.DefaultDimension, nil)
	oldSig := l.Signature(b.Build(fingerprint.Tokenize("hóa đơn viện phí tháng một")))
	newSig := l.Signature(b.Build(fingerprint.Tokenize("biên lai tạm ứng khác hẳn")))

	l.Insert("D1", oldSig)
	l.Insert("D1", newSig)

	assert.NotContains(t, l.Candidates(oldSig), "D1", "stale band memberships must be removed on re-insert")
	assert.Contains(t, l.Candidates(newSig), "D1")
	assert.Equal(t, 1, l.Len())
}

func TestEmptySignatureNotIndexed(t *testing.T) {
	l := newTestLSH(t)
	l.Insert("D1", nil)
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Candidates(nil))
}

// TestCandidateRecall checks the documented statistical bound: for token sets
// whose embeddings have cosine similarity at or above 0.95, the approximate
// filter must miss less than 5% of true near-duplicates with the default
// bands=20, rows_per_band=5 shape. Statistical, seeded for reproducibility.
func TestCandidateRecall(t *testing.T) {
	const trials = 200

	rng := rand.New(rand.NewSource(42))
	b := fingerprint.NewEmbeddingBuilder(fingerprint.DefaultDimension, map[string]float64{})

	misses, eligible := 0, 0
	for trial := 0; trial < trials; trial++ {
		base := make([]string, 60)
		for i := range base {
			base[i] = randomWord(rng)
		}
		variant := make([]string, len(base))
		copy(variant, base)
		variant[rng.Intn(len(variant))] = randomWord(rng)

		baseEmb := b.Build(base)
		varEmb := b.Build(variant)
		if cosineSimilarity(baseEmb, varEmb) < 0.95 {
			continue
		}
		eligible++

		l := newTestLSH(t)
		l.Insert(fmt.Sprintf("doc-%d", trial), l.Signature(baseEmb))
		if _, ok := l.Candidates(l.Signature(varEmb))[fmt.Sprintf("doc-%d", trial)]; !ok {
			misses++
		}
	}

	require.Greater(t, eligible, trials/2, "most trials should produce near-duplicate pairs")
	missRate := float64(misses) / float64(eligible)
	assert.Less(t, missRate, 0.05, "LSH recall bound violated: %d/%d misses", misses, eligible)
}

func randomWord(rng *rand.Rand) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	n := 5 + rng.Intn(4)
	word := make([]byte, n)
	for i := range word {
		word[i] = letters[rng.Intn(len(letters))]
	}
	return string(word)
}
