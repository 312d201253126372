package server

import (
	"fmt"

	"github.com/claimlens/similarityd/internal/fingerprint"
	"github.com/claimlens/similarityd/internal/similarity"
)

// SimilarRequest is the body for POST /v1/documents/similar. Content carries
// the raw document bytes base64-encoded; features and text are the optional
// upstream extraction outputs.
type SimilarRequest struct {
	Content              string                        `json:"content"`
	Text                 string                        `json:"text"`
	Features             *fingerprint.DocumentFeatures `json:"features"`
	UseApproximateSearch bool                          `json:"use_approximate_search"`
	MaxResults           int                           `json:"max_results"`
}

// IndexRequest is the body for PUT /v1/index/:id. Either a previously
// returned fingerprint or the raw inputs to compute one must be present.
type IndexRequest struct {
	Fingerprint *fingerprint.Fingerprint      `json:"fingerprint"`
	Content     string                        `json:"content"`
	Text        string                        `json:"text"`
	Features    *fingerprint.DocumentFeatures `json:"features"`
	Metadata    similarity.Metadata           `json:"metadata"`
}

// StatusResponse is the generic acknowledgement body.
type StatusResponse struct {
	Status string `json:"status"`
}

// HealthResponse is the body for GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
}

// validateFeatures rejects feature records that cannot have come from the
// extraction pipeline. Validation happens here, once, at the boundary; the
// core treats features as trusted afterwards.
func validateFeatures(f *fingerprint.DocumentFeatures) error {
	if f == nil {
		return nil
	}
	if f.PageCount < 0 || f.BlockCount < 0 || f.LineCount < 0 || f.TableCount < 0 {
		return fmt.Errorf("feature counts must be non-negative")
	}
	if f.SizeBytes < 0 {
		return fmt.Errorf("size_bytes must be non-negative")
	}
	if f.AspectRatio < 0 {
		return fmt.Errorf("aspect_ratio must be non-negative")
	}
	if f.TextDensity < 0 || f.TextDensity > 1 || f.ImageDensity < 0 || f.ImageDensity > 1 {
		return fmt.Errorf("densities must be in [0,1]")
	}
	return nil
}
