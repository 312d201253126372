package fingerprint

// DocumentFeatures is the structured feature record the extraction pipeline
// produces for a scanned document. All fields are quantizable scalars or
// booleans; validation happens once at the service boundary, never inside the
// codec.
type DocumentFeatures struct {
	// Layout / structural signals.
	PageCount    int     `json:"page_count"`
	BlockCount   int     `json:"block_count"`
	LineCount    int     `json:"line_count"`
	TableCount   int     `json:"table_count"`
	AspectRatio  float64 `json:"aspect_ratio"`
	TextDensity  float64 `json:"text_density"`
	ImageDensity float64 `json:"image_density"`
	HasSignature bool    `json:"has_signature"`
	HasStamp     bool    `json:"has_stamp"`

	// File-level metadata signals.
	SizeBytes int64  `json:"size_bytes"`
	MimeType  string `json:"mime_type"`
	Language  string `json:"language"`
}
