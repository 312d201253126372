package fingerprint

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// Hash is a fixed-size hex-encoded digest. Record hashes are 16 hex
// characters; visual hashes are longer (see PrefixVisualHash).
type Hash string

// Field is one named, already-quantized record field.
type Field struct {
	Name  string
	Value string
}

// Codec produces deterministic hashes over quantized feature records.
//
// Quantization before hashing is what makes near-identical documents collide:
// two scans whose numeric features differ by less than a bucket width hash to
// the same value. The codec itself is stateless and safe for concurrent use.
type Codec struct{}

// NewCodec creates a Codec.
func NewCodec() *Codec {
	return &Codec{}
}

// HashRecord hashes a set of independent fields. Fields are sorted by name
// before digesting, so field order never affects the result.
func (c *Codec) HashRecord(fields []Field) Hash {
	sorted := make([]Field, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	d := xxhash.New()
	for _, f := range sorted {
		_, _ = d.WriteString(f.Name)
		_, _ = d.Write([]byte{'='})
		_, _ = d.WriteString(f.Value)
		_, _ = d.Write([]byte{0})
	}
	return Hash(fmt.Sprintf("%016x", d.Sum64()))
}

// HashShingles hashes an order-independent summary of text shingles.
// Duplicates are collapsed so repeated phrases do not shift the digest.
func (c *Codec) HashShingles(shingles []string) Hash {
	uniq := make(map[string]struct{}, len(shingles))
	for _, s := range shingles {
		uniq[s] = struct{}{}
	}
	sorted := make([]string, 0, len(uniq))
	for s := range uniq {
		sorted = append(sorted, s)
	}
	sort.Strings(sorted)

	d := xxhash.New()
	for _, s := range sorted {
		_, _ = d.WriteString(s)
		_, _ = d.Write([]byte{0})
	}
	return Hash(fmt.Sprintf("%016x", d.Sum64()))
}

// RandomHash returns a fresh hash that cannot collide with any record hash at
// a meaningful rate. Used when a signal's input is absent entirely, so that
// two feature-less documents never spuriously match each other.
func (c *Codec) RandomHash() Hash {
	id := uuid.New()
	return Hash(fmt.Sprintf("%016x", xxhash.Sum64(id[:])))
}

// QuantizeFloat buckets v by divide-and-floor with the given bucket width.
func QuantizeFloat(v, bucket float64) string {
	if bucket <= 0 {
		bucket = 1
	}
	return strconv.FormatInt(int64(math.Floor(v/bucket)), 10)
}

// QuantizeInt buckets v by integer division.
func QuantizeInt(v, bucket int64) string {
	if bucket <= 0 {
		bucket = 1
	}
	q := v / bucket
	if v < 0 && v%bucket != 0 {
		q--
	}
	return strconv.FormatInt(q, 10)
}

// FormatBool stringifies a boolean feature field.
func FormatBool(v bool) string {
	return strconv.FormatBool(v)
}
