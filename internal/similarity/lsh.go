package similarity

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Signature is a banded MinHash signature: bands × rowsPerBand minimum hash
// values derived deterministically from an embedding. A nil signature marks
// an embedding with empty support (no text); such documents are never
// inserted into band tables since they carry no semantic signal to match on.
type Signature []uint64

// LSH maintains banded MinHash tables mapping band-slice keys to candidate
// document id sets.
//
// This is MinHash over the quantized support of a dense embedding, used as a
// coarse recall-biased similarity filter rather than exact Jaccard
// estimation: candidate sets may include false positives, and two true
// near-duplicates can miss each other only if they share no band at all.
// Tune the miss risk with bands and rowsPerBand.
//
// LSH is not internally synchronized; the owning Index serializes access.
type LSH struct {
	bands int
	rows  int
	scale float64

	// tables[band][sliceKey] = set of document ids sharing that band slice.
	tables []map[string]map[string]struct{}
	// signatures keeps each member's full signature so removal never needs
	// the original embedding.
	signatures map[string]Signature
}

// NewLSH creates a banded MinHash structure. Bands and rows must be positive
// for the lifetime of the instance; changing them means building a new LSH
// and re-inserting every member (see Index.Rebuild).
func NewLSH(bands, rows int, scale float64) (*LSH, error) {
	if bands <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: bands (%d) and rows (%d) must be positive",
			ErrInvalidConfig, bands, rows)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("%w: hash scale must be positive, got %v", ErrInvalidConfig, scale)
	}
	tables := make([]map[string]map[string]struct{}, bands)
	for i := range tables {
		tables[i] = make(map[string]map[string]struct{})
	}
	return &LSH{
		bands:      bands,
		rows:       rows,
		scale:      scale,
		tables:     tables,
		signatures: make(map[string]Signature),
	}, nil
}

// Signature derives the MinHash signature of an embedding. Identical
// embeddings always produce identical signatures. An embedding with no
// non-zero components returns nil.
func (l *LSH) Signature(embedding []float64) Signature {
	elems := make([]uint64, 0, len(embedding)/4)
	for j, v := range embedding {
		if v == 0 {
			continue
		}
		// Element identity is the component index plus its coarsely quantized
		// weight. The bucket width 1/scale must stay wide relative to the
		// norm jitter of near-duplicate embeddings, or every element shifts
		// at once and recall collapses.
		q := uint64(uint32(int32(math.Floor(v * l.scale))))
		elems = append(elems, uint64(j)<<32|q)
	}
	if len(elems) == 0 {
		return nil
	}

	sig := make(Signature, l.bands*l.rows)
	for i := range sig {
		seed := mix64(uint64(i) + 0x9e3779b97f4a7c15)
		min := uint64(math.MaxUint64)
		for _, e := range elems {
			if h := mix64(e ^ seed); h < min {
				min = h
			}
		}
		sig[i] = min
	}
	return sig
}

// Insert adds a document under every band bucket its signature selects.
// Re-inserting an id replaces its previous memberships.
func (l *LSH) Insert(id string, sig Signature) {
	if _, ok := l.signatures[id]; ok {
		l.Remove(id)
	}
	if len(sig) == 0 {
		return
	}
	l.signatures[id] = sig
	for band := 0; band < l.bands; band++ {
		key := l.bandKey(sig, band)
		bucket, ok := l.tables[band][key]
		if !ok {
			bucket = make(map[string]struct{})
			l.tables[band][key] = bucket
		}
		bucket[id] = struct{}{}
	}
}

// Remove clears a document from every band table, deleting emptied buckets
// to bound memory growth. Removing an absent id is a no-op.
func (l *LSH) Remove(id string) {
	sig, ok := l.signatures[id]
	if !ok {
		return
	}
	delete(l.signatures, id)
	for band := 0; band < l.bands; band++ {
		key := l.bandKey(sig, band)
		bucket, ok := l.tables[band][key]
		if !ok {
			continue
		}
		delete(bucket, id)
		if len(bucket) == 0 {
			delete(l.tables[band], key)
		}
	}
}

// Candidates returns the union of bucket members across all bands for the
// query signature. Documents sharing at least one band slice are candidates.
func (l *LSH) Candidates(sig Signature) map[string]struct{} {
	out := make(map[string]struct{})
	if len(sig) == 0 {
		return out
	}
	for band := 0; band < l.bands; band++ {
		for id := range l.tables[band][l.bandKey(sig, band)] {
			out[id] = struct{}{}
		}
	}
	return out
}

// Len returns the number of indexed signatures.
func (l *LSH) Len() int {
	return len(l.signatures)
}

// bandKey concatenates one band's row values into a table key.
func (l *LSH) bandKey(sig Signature, band int) string {
	buf := make([]byte, 8*l.rows)
	for r := 0; r < l.rows; r++ {
		binary.BigEndian.PutUint64(buf[r*8:], sig[band*l.rows+r])
	}
	return string(buf)
}

// mix64 is the splitmix64 finalizer; used as the per-function element hash.
func mix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e9b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
