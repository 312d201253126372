package similarity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// Metadata describes an indexed document. Supplied by the caller alongside
// the fingerprint; the index never inspects it.
type Metadata struct {
	DocumentType      string `json:"document_type"`
	Language          string `json:"language"`
	Source            string `json:"source"`
	SizeBytes         int64  `json:"size_bytes"`
	PageCount         int    `json:"page_count"`
	ProcessingVersion string `json:"processing_version"`
}

// Entry is one indexed document. Entries are never mutated in place;
// re-adding a document id replaces the whole entry.
type Entry struct {
	DocumentID  string                  `json:"document_id"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Metadata    Metadata                `json:"metadata"`
	InsertedAt  time.Time               `json:"inserted_at"`

	// Sequence is a monotonic insertion counter used as the final ranking
	// tie-break so result ordering is deterministic.
	Sequence uint64 `json:"-"`
}

// Index is the authoritative store of document fingerprints plus the MinHash
// structure it keeps in sync on every insert and removal.
//
// A single read-write lock guards both structures: searches run fully in
// parallel, writes are exclusive, and no reader can observe a partially
// updated bucket set. Writes are rare relative to reads in this workload, so
// finer sharding is not worth its complexity.
type Index struct {
	mu sync.RWMutex

	entries         map[string]*Entry
	lsh             *LSH
	exhaustiveLimit int
	nextSeq         uint64
}

// NewIndex creates an empty index from a validated configuration.
func NewIndex(cfg Config) (*Index, error) {
	lsh, err := NewLSH(cfg.Bands, cfg.RowsPerBand, cfg.HashScale)
	if err != nil {
		return nil, err
	}
	return &Index{
		entries:         make(map[string]*Entry),
		lsh:             lsh,
		exhaustiveLimit: cfg.ExhaustiveLimit,
	}, nil
}

// Add inserts or replaces a document. Replacement removes the old signature's
// bucket memberships before inserting the new ones.
func (x *Index) Add(id string, fp fingerprint.Fingerprint, md Metadata) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.entries[id]; ok {
		x.lsh.Remove(id)
	}
	x.nextSeq++
	x.entries[id] = &Entry{
		DocumentID:  id,
		Fingerprint: fp,
		Metadata:    md,
		InsertedAt:  time.Now().UTC(),
		Sequence:    x.nextSeq,
	}
	x.lsh.Insert(id, x.lsh.Signature(fp.Embedding))
	indexedDocuments.Set(float64(len(x.entries)))
}

// Remove deletes a document from both structures. Idempotent: removing an
// absent id is a no-op.
func (x *Index) Remove(id string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	delete(x.entries, id)
	x.lsh.Remove(id)
	indexedDocuments.Set(float64(len(x.entries)))
}

// Get returns a copy of the entry for id.
func (x *Index) Get(id string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	e, ok := x.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of indexed documents.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Candidates returns the ids to score against the query fingerprint. With
// approximate search enabled and the index above the exhaustive limit, only
// documents sharing at least one LSH band are returned; otherwise every
// stored id is.
func (x *Index) Candidates(fp fingerprint.Fingerprint, approximate bool) []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if approximate && len(x.entries) > x.exhaustiveLimit {
		set := x.lsh.Candidates(x.lsh.Signature(fp.Embedding))
		out := make([]string, 0, len(set))
		for id := range set {
			out = append(out, id)
		}
		return out
	}

	out := make([]string, 0, len(x.entries))
	for id := range x.entries {
		out = append(out, id)
	}
	return out
}

// Rebuild replaces the MinHash structure with one using the given shape and
// re-inserts every entry. Required after a bands or rows_per_band change.
// Cancellable between entries; on cancellation the old structure stays
// untouched.
func (x *Index) Rebuild(ctx context.Context, bands, rows int, scale float64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	lsh, err := NewLSH(bands, rows, scale)
	if err != nil {
		return err
	}
	for id, e := range x.entries {
		select {
		case <-ctx.Done():
			return fmt.Errorf("index rebuild cancelled: %w", ctx.Err())
		default:
		}
		lsh.Insert(id, lsh.Signature(e.Fingerprint.Embedding))
	}
	x.lsh = lsh
	return nil
}
