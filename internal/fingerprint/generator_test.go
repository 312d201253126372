package fingerprint

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFeatures() *DocumentFeatures {
	return &DocumentFeatures{
		PageCount:    3,
		BlockCount:   24,
		LineCount:    120,
		TableCount:   2,
		AspectRatio:  0.707,
		TextDensity:  0.61,
		ImageDensity: 0.12,
		HasSignature: true,
		SizeBytes:    182_044,
		MimeType:     "application/pdf",
		Language:     "vi",
	}
}

func TestGenerateDeterministic(t *testing.T) {
	g := NewGenerator(nil, nil)
	raw := bytes.Repeat([]byte("claim scan "), 500)

	a := g.Generate(raw, testFeatures(), "hóa đơn viện phí 2,500,000 VNĐ")
	b := g.Generate(raw, testFeatures(), "hóa đơn viện phí 2,500,000 VNĐ")

	assert.Equal(t, a.Structural, b.Structural)
	assert.Equal(t, a.Content, b.Content)
	assert.Equal(t, a.Visual, b.Visual)
	assert.Equal(t, a.Metadata, b.Metadata)
	require.Equal(t, a.Embedding, b.Embedding, "embedding must be bit-identical across runs")
}

func TestGenerateQuantizationAbsorbsFeatureNoise(t *testing.T) {
	g := NewGenerator(nil, nil)

	noisy := testFeatures()
	noisy.LineCount++
	noisy.TextDensity += 0.004
	noisy.SizeBytes += 100

	a := g.Generate(nil, testFeatures(), "")
	b := g.Generate(nil, noisy, "")
	assert.Equal(t, a.Structural, b.Structural, "sub-bucket layout noise must not change the structural hash")
	assert.Equal(t, a.Metadata, b.Metadata, "sub-bucket file noise must not change the metadata hash")
}

func TestGenerateAbsentFeaturesNeverMatch(t *testing.T) {
	g := NewGenerator(nil, nil)

	a := g.Generate(nil, nil, "some text")
	b := g.Generate(nil, nil, "some text")
	assert.NotEqual(t, a.Structural, b.Structural, "two feature-less documents must not share a structural hash")
	assert.NotEqual(t, a.Metadata, b.Metadata)
}

func TestGenerateAbsentTextNeverMatches(t *testing.T) {
	g := NewGenerator(nil, nil)

	a := g.Generate(nil, testFeatures(), "")
	b := g.Generate(nil, testFeatures(), "")
	assert.NotEqual(t, a.Content, b.Content, "two text-less documents must not share a content hash")

	for _, v := range a.Embedding {
		require.Zero(t, v, "no text means the zero embedding")
	}
}

func TestGenerateEmptyBytesDeterministicVisualHash(t *testing.T) {
	g := NewGenerator(nil, nil)

	// Empty bytes are allowed and hash to the hash-of-nothing, not an error
	// and not a random value.
	a := g.Generate(nil, nil, "")
	b := g.Generate([]byte{}, nil, "")
	assert.Equal(t, a.Visual, b.Visual)
}

func TestGenerateWhitespaceVariantsShareContentHash(t *testing.T) {
	g := NewGenerator(nil, nil)

	a := g.Generate(nil, nil, "hóa đơn viện phí 2,500,000 VNĐ")
	b := g.Generate(nil, nil, "hóa  đơn\tviện phí   2,500,000 VNĐ")
	assert.Equal(t, a.Content, b.Content)
	assert.Equal(t, a.Embedding, b.Embedding)
}

func TestPrefixVisualHashLocalEdit(t *testing.T) {
	// The byte-prefix strategy is deliberately not perceptual hashing: it
	// only promises that an edit confined to one prefix segment flips a
	// bounded part of the hash.
	strat := DefaultVisualHash()
	raw := bytes.Repeat([]byte{0xAB}, 4096)

	edited := make([]byte, len(raw))
	copy(edited, raw)
	edited[4000] ^= 0xFF // inside the last segment

	a := strat.Hash(raw)
	b := strat.Hash(edited)
	require.Len(t, string(a), 32)
	require.Len(t, string(b), 32)

	diff := 0
	for i := range a {
		if a[i] != b[i] {
			diff++
		}
	}
	assert.LessOrEqual(t, diff, 2, "an edit in one segment must flip at most one segment's characters")
}

func TestPrefixVisualHashIgnoresBytesPastPrefix(t *testing.T) {
	strat := DefaultVisualHash()
	raw := bytes.Repeat([]byte{0x11}, 8192)

	edited := make([]byte, len(raw))
	copy(edited, raw)
	edited[5000] = 0x99

	assert.Equal(t, strat.Hash(raw), strat.Hash(edited))
}
