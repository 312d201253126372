package fingerprint

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is the compact multi-signal summary of one document. Immutable
// once created; the embedding slice must not be mutated by callers.
type Fingerprint struct {
	Structural Hash      `json:"structural_hash"`
	Content    Hash      `json:"content_hash"`
	Visual     Hash      `json:"visual_hash"`
	Metadata   Hash      `json:"metadata_hash"`
	Embedding  []float64 `json:"embedding"`
}

// Discriminator is a short stable identifier for cache keying. Two
// fingerprints with equal structural and content hashes are treated as the
// same comparison operand.
func (f Fingerprint) Discriminator() string {
	return string(f.Structural) + string(f.Content)
}

// VisualHashStrategy derives a visual hash from raw document bytes.
//
// The default byte-prefix strategy is intentionally weak and fast rather than
// true perceptual hashing over decoded pixels; swapping in a dHash/pHash
// implementation changes matching behavior and must be a deliberate,
// configured choice.
type VisualHashStrategy interface {
	Hash(raw []byte) Hash
}

// PrefixVisualHash hashes a fixed-length byte prefix segment by segment, so
// localized edits flip only a few characters of the result and the hamming
// based visual score degrades gradually.
type PrefixVisualHash struct {
	// PrefixLen is how many leading bytes participate. Shorter documents use
	// whatever is available.
	PrefixLen int
	// Segments is the number of independently hashed chunks; each contributes
	// two hex characters.
	Segments int
}

// DefaultVisualHash returns the baseline strategy: 4 KiB prefix, 16 segments.
func DefaultVisualHash() *PrefixVisualHash {
	return &PrefixVisualHash{PrefixLen: 4096, Segments: 16}
}

// Hash implements VisualHashStrategy. Empty input hashes deterministically to
// the hash-of-nothing, never to a random value.
func (p *PrefixVisualHash) Hash(raw []byte) Hash {
	prefixLen := p.PrefixLen
	if prefixLen <= 0 {
		prefixLen = 4096
	}
	segments := p.Segments
	if segments <= 0 {
		segments = 16
	}
	if len(raw) > prefixLen {
		raw = raw[:prefixLen]
	}

	out := make([]byte, 0, segments*2)
	chunk := prefixLen / segments
	if chunk == 0 {
		chunk = 1
	}
	for i := 0; i < segments; i++ {
		lo := i * chunk
		hi := lo + chunk
		if lo > len(raw) {
			lo = len(raw)
		}
		if hi > len(raw) {
			hi = len(raw)
		}
		sum := xxhash.Sum64(raw[lo:hi])
		out = append(out, []byte(fmt.Sprintf("%02x", byte(sum)))...)
	}
	return Hash(out)
}

// Generator composes the hash codec, the embedding builder and a visual hash
// strategy into full document fingerprints.
type Generator struct {
	codec    *Codec
	embedder *EmbeddingBuilder
	visual   VisualHashStrategy
}

// NewGenerator creates a generator. A nil visual strategy falls back to the
// byte-prefix default.
func NewGenerator(embedder *EmbeddingBuilder, visual VisualHashStrategy) *Generator {
	if embedder == nil {
		embedder = NewEmbeddingBuilder(DefaultDimension, nil)
	}
	if visual == nil {
		visual = DefaultVisualHash()
	}
	return &Generator{
		codec:    NewCodec(),
		embedder: embedder,
		visual:   visual,
	}
}

// Dimension returns the embedding dimension fingerprints will carry.
func (g *Generator) Dimension() int {
	return g.embedder.Dimension()
}

// Generate builds a fingerprint from raw bytes plus optional extracted
// features and text. It never fails: absent features yield random structural
// and metadata hashes, absent text yields a random content hash and a zero
// embedding, and empty bytes hash to the deterministic hash-of-nothing.
func (g *Generator) Generate(raw []byte, features *DocumentFeatures, text string) Fingerprint {
	fp := Fingerprint{
		Visual: g.visual.Hash(raw),
	}

	if features != nil {
		fp.Structural = g.structuralHash(features)
		fp.Metadata = g.metadataHash(features)
	} else {
		fp.Structural = g.codec.RandomHash()
		fp.Metadata = g.codec.RandomHash()
	}

	tokens := Tokenize(text)
	if len(tokens) > 0 {
		fp.Content = g.codec.HashShingles(Shingles(tokens, 3))
	} else {
		fp.Content = g.codec.RandomHash()
	}
	fp.Embedding = g.embedder.Build(tokens)

	return fp
}

// structuralHash covers quantized layout signals. Bucket widths absorb the
// jitter OCR introduces between two scans of the same paper.
func (g *Generator) structuralHash(f *DocumentFeatures) Hash {
	return g.codec.HashRecord([]Field{
		{Name: "blocks", Value: QuantizeInt(int64(f.BlockCount), 5)},
		{Name: "lines", Value: QuantizeInt(int64(f.LineCount), 10)},
		{Name: "tables", Value: QuantizeInt(int64(f.TableCount), 1)},
		{Name: "aspect", Value: QuantizeFloat(f.AspectRatio, 0.1)},
		{Name: "text_density", Value: QuantizeFloat(f.TextDensity, 0.05)},
		{Name: "signature", Value: FormatBool(f.HasSignature)},
		{Name: "stamp", Value: FormatBool(f.HasStamp)},
	})
}

// metadataHash covers quantized file and page attributes.
func (g *Generator) metadataHash(f *DocumentFeatures) Hash {
	return g.codec.HashRecord([]Field{
		{Name: "size", Value: QuantizeInt(f.SizeBytes, 4096)},
		{Name: "pages", Value: QuantizeInt(int64(f.PageCount), 1)},
		{Name: "image_density", Value: QuantizeFloat(f.ImageDensity, 0.05)},
		{Name: "mime", Value: f.MimeType},
		{Name: "lang", Value: f.Language},
	})
}
