// Package fingerprint converts scanned claim documents into compact
// multi-signal fingerprints.
//
// A fingerprint combines four deterministic hashes (structural, content,
// visual, metadata) with a fixed-dimension semantic embedding. Hashes are
// computed over quantized feature buckets so that small OCR or layout noise
// still collides; the embedding is a feature-hashed bag of terms, L2
// normalized, comparable by cosine similarity.
//
// All operations in this package are total: missing inputs degrade to random
// or zero fields per signal, never to an error.
package fingerprint
