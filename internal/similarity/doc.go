// Package similarity implements the queryable fingerprint index and the
// multi-signal scoring pipeline behind duplicate-claim detection.
//
// The index keeps one entry per document id and a banded MinHash structure
// over the semantic embeddings. Small indexes are searched exhaustively;
// past a configurable size, approximate search narrows candidates to the
// documents sharing at least one LSH band with the query. Candidate scoring
// fuses four independent signals into an overall similarity plus a
// confidence derived from how much the signals agree.
package similarity
