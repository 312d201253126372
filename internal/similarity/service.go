package similarity

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/claimlens/similarityd/internal/fingerprint"
)

// MatchType classifies how a similar document matches the query.
type MatchType string

const (
	MatchExact            MatchType = "EXACT"
	MatchSimilarVisual    MatchType = "SIMILAR_VISUAL"
	MatchSimilarContent   MatchType = "SIMILAR_CONTENT"
	MatchSimilarStructure MatchType = "SIMILAR_STRUCTURE"
	MatchNearDuplicate    MatchType = "NEAR_DUPLICATE"
)

// DuplicateType classifies a detected duplicate submission.
type DuplicateType string

const (
	DuplicateIdentical     DuplicateType = "IDENTICAL"
	DuplicateNearIdentical DuplicateType = "NEAR_IDENTICAL"
	DuplicateResubmission  DuplicateType = "RESUBMISSION"
	DuplicateAlteredCopy   DuplicateType = "ALTERED_COPY"
)

// Classification cutoffs. These are contract constants, not tuning knobs:
// downstream claims handling keys business decisions off them.
const (
	exactOverall         = 0.98
	strongSignal         = 0.9
	identicalOverall     = 0.99
	nearIdenticalOverall = 0.95
)

// Options controls one findSimilar call.
type Options struct {
	// UseApproximateSearch enables LSH candidate narrowing once the index
	// exceeds the exhaustive limit.
	UseApproximateSearch bool

	// MaxResults caps the similar list; zero means unlimited.
	MaxResults int

	// Progress, when non-nil, is invoked after each candidate is scored with
	// the running count and the candidate total.
	Progress func(scored, total int)
}

// Match is one entry of the ranked similar list.
type Match struct {
	DocumentID     string    `json:"document_id"`
	Similarity     float64   `json:"similarity"`
	MatchType      MatchType `json:"match_type"`
	Confidence     float64   `json:"confidence"`
	MatchedSignals []string  `json:"matched_signals"`
}

// Duplicate is one entry of the duplicate list.
type Duplicate struct {
	DocumentID    string        `json:"document_id"`
	Similarity    float64       `json:"similarity"`
	IsDuplicate   bool          `json:"is_duplicate"`
	Confidence    float64       `json:"confidence"`
	DuplicateType DuplicateType `json:"duplicate_type"`
}

// Result is the outcome of a findSimilar call. The fingerprint is returned so
// the caller can persist it and later register it via AddToIndex.
type Result struct {
	Similar     []Match                 `json:"similar"`
	Duplicates  []Duplicate             `json:"duplicates"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// Statistics summarize index and cache occupancy.
type Statistics struct {
	TotalDocuments int `json:"total_documents"`
	CacheSize      int `json:"cache_size"`
}

// Service orchestrates fingerprint generation, candidate retrieval, cached
// scoring and match classification. Stateless across calls apart from the
// owned index and cache; safe for concurrent use.
type Service struct {
	cfgMu sync.RWMutex
	cfg   Config

	gen   *fingerprint.Generator
	index *Index
	cache *Cache
	log   *zap.Logger
}

// NewService creates a service from a validated configuration. A nil
// generator gets the default hash-trick embedding and byte-prefix visual
// hashing; a nil logger is replaced with a no-op logger.
func NewService(cfg Config, gen *fingerprint.Generator, log *zap.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		gen = fingerprint.NewGenerator(fingerprint.NewEmbeddingBuilder(cfg.Dimension, nil), nil)
	}
	if log == nil {
		log = zap.NewNop()
	}

	index, err := NewIndex(cfg)
	if err != nil {
		return nil, err
	}
	cache, err := NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:   cfg,
		gen:   gen,
		index: index,
		cache: cache,
		log:   log.Named("similarity"),
	}, nil
}

// FindSimilar fingerprints the query document and returns the ranked similar
// and duplicate lists. The only error sources are context cancellation during
// candidate scoring; malformed candidates score 0.0 and never abort a search.
func (s *Service) FindSimilar(ctx context.Context, raw []byte, features *fingerprint.DocumentFeatures, text string, opts Options) (*Result, error) {
	start := time.Now()

	s.cfgMu.RLock()
	cfg := s.cfg
	s.cfgMu.RUnlock()
	scorer := NewScorer(cfg.Weights)

	fp := s.gen.Generate(raw, features, text)
	ids := s.index.Candidates(fp, opts.UseApproximateSearch)

	strategy := "exhaustive"
	if opts.UseApproximateSearch && s.index.Len() > cfg.ExhaustiveLimit {
		strategy = "approximate"
	}

	type scored struct {
		entry Entry
		m     Metrics
		ok    bool
	}
	results := make([]scored, len(ids))

	var progressMu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, id := range ids {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			entry, ok := s.index.Get(id)
			if ok {
				m := s.cache.GetOrCompute(fp, entry.Fingerprint, func() Metrics {
					return scorer.Score(fp, entry.Fingerprint)
				})
				results[i] = scored{entry: entry, m: m, ok: true}
			}
			if opts.Progress != nil {
				progressMu.Lock()
				done++
				opts.Progress(done, len(ids))
				progressMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}

	// Rank: overall desc, confidence desc, insertion order asc. The final
	// tie-break keeps result ordering deterministic across runs.
	ranked := results[:0]
	for _, r := range results {
		if r.ok && r.m.Overall >= cfg.SimilarityThreshold {
			ranked = append(ranked, r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.m.Overall != b.m.Overall {
			return a.m.Overall > b.m.Overall
		}
		if a.m.Confidence != b.m.Confidence {
			return a.m.Confidence > b.m.Confidence
		}
		return a.entry.Sequence < b.entry.Sequence
	})

	res := &Result{Fingerprint: fp}
	for _, r := range ranked {
		if opts.MaxResults > 0 && len(res.Similar) >= opts.MaxResults {
			break
		}
		res.Similar = append(res.Similar, Match{
			DocumentID:     r.entry.DocumentID,
			Similarity:     r.m.Overall,
			MatchType:      classifyMatch(r.m),
			Confidence:     r.m.Confidence,
			MatchedSignals: matchedSignals(r.m, cfg.SignalThreshold),
		})
		if r.m.Overall >= cfg.DuplicateThreshold {
			res.Duplicates = append(res.Duplicates, Duplicate{
				DocumentID:    r.entry.DocumentID,
				Similarity:    r.m.Overall,
				IsDuplicate:   true,
				Confidence:    r.m.Confidence,
				DuplicateType: classifyDuplicate(r.m),
			})
		}
	}

	searchesTotal.WithLabelValues(strategy).Inc()
	searchDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	duplicatesFound.Add(float64(len(res.Duplicates)))

	s.log.Debug("similarity search complete",
		zap.String("strategy", strategy),
		zap.Int("candidates", len(ids)),
		zap.Int("similar", len(res.Similar)),
		zap.Int("duplicates", len(res.Duplicates)),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

// GenerateFingerprint fingerprints a document without searching or indexing.
func (s *Service) GenerateFingerprint(raw []byte, features *fingerprint.DocumentFeatures, text string) fingerprint.Fingerprint {
	return s.gen.Generate(raw, features, text)
}

// AddToIndex registers a fingerprint under a document id, replacing any
// previous entry for that id.
func (s *Service) AddToIndex(id string, fp fingerprint.Fingerprint, md Metadata) error {
	if id == "" {
		return ErrEmptyDocumentID
	}
	s.index.Add(id, fp, md)
	s.log.Debug("document indexed", zap.String("document_id", id))
	return nil
}

// RemoveFromIndex deletes a document. Idempotent.
func (s *Service) RemoveFromIndex(id string) {
	s.index.Remove(id)
}

// GetEntry returns a copy of the indexed entry for id.
func (s *Service) GetEntry(id string) (Entry, bool) {
	return s.index.Get(id)
}

// OptimizeIndex rebuilds the LSH band tables from the current entries using
// the current configuration. Must be called after patching bands or
// rows_per_band; cancellable between entries.
func (s *Service) OptimizeIndex(ctx context.Context) error {
	s.cfgMu.RLock()
	cfg := s.cfg
	s.cfgMu.RUnlock()

	start := time.Now()
	if err := s.index.Rebuild(ctx, cfg.Bands, cfg.RowsPerBand, cfg.HashScale); err != nil {
		return err
	}
	s.log.Info("index optimized",
		zap.Int("documents", s.index.Len()),
		zap.Int("bands", cfg.Bands),
		zap.Int("rows_per_band", cfg.RowsPerBand),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// ClearCache drops all cached pairwise scores.
func (s *Service) ClearCache() {
	s.cache.Clear()
}

// Statistics reports index and cache occupancy.
func (s *Service) Statistics() Statistics {
	return Statistics{
		TotalDocuments: s.index.Len(),
		CacheSize:      s.cache.Len(),
	}
}

// Config returns the current configuration.
func (s *Service) Config() Config {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// UpdateConfig applies a partial threshold/weight update. A weight change
// invalidates the score cache, since cached overall values were fused under
// the old weights. A bands or rows_per_band change requires a subsequent
// OptimizeIndex before approximate queries reflect it.
func (s *Service) UpdateConfig(patch ConfigPatch) error {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	merged := patch.apply(s.cfg)
	if err := merged.Validate(); err != nil {
		return err
	}

	if patch.Weights != nil && *patch.Weights != s.cfg.Weights {
		s.cache.Clear()
	}
	if patch.Bands != nil || patch.RowsPerBand != nil {
		s.log.Warn("LSH shape changed; call OptimizeIndex to rebuild band tables",
			zap.Int("bands", merged.Bands),
			zap.Int("rows_per_band", merged.RowsPerBand),
		)
	}
	s.cfg = merged
	return nil
}

// classifyMatch applies the match type rules in contract order; the first
// matching rule wins.
func classifyMatch(m Metrics) MatchType {
	switch {
	case m.Overall >= exactOverall:
		return MatchExact
	case m.Visual >= strongSignal:
		return MatchSimilarVisual
	case m.Content >= strongSignal:
		return MatchSimilarContent
	case m.Structural >= strongSignal:
		return MatchSimilarStructure
	default:
		return MatchNearDuplicate
	}
}

// classifyDuplicate applies the duplicate type rules in contract order.
func classifyDuplicate(m Metrics) DuplicateType {
	switch {
	case m.Overall >= identicalOverall:
		return DuplicateIdentical
	case m.Overall >= nearIdenticalOverall:
		return DuplicateNearIdentical
	case m.Content >= strongSignal:
		return DuplicateResubmission
	default:
		return DuplicateAlteredCopy
	}
}

// matchedSignals lists the signals at or above the per-signal threshold.
func matchedSignals(m Metrics, threshold float64) []string {
	out := make([]string, 0, 4)
	if m.Structural >= threshold {
		out = append(out, "structural")
	}
	if m.Content >= threshold {
		out = append(out, "content")
	}
	if m.Visual >= threshold {
		out = append(out, "visual")
	}
	if m.Semantic >= threshold {
		out = append(out, "semantic")
	}
	return out
}
