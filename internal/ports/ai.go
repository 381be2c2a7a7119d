package ports

import "context"

// Embedder wraps the external vector-embedding service. It is used both at
// check time and offline when precomputing dictionary entry vectors.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

type OCRResult struct {
	Text             string
	Provider         string
	Model            string
	Width            int
	Height           int
	ProcessingTimeMS int64
}

// TextExtractor wraps the external vision service that turns an image
// reference into text. Only invoked for image input.
type TextExtractor interface {
	ExtractText(ctx context.Context, imageRef string) (OCRResult, error)
}

type NGReference struct {
	EntryID string
	Phrase  string
	Notes   string
}

type DetectionInput struct {
	Text       string
	References []NGReference
}

type DetectedViolation struct {
	StartPos     int
	EndPos       int
	Quote        string
	Reason       string
	DictionaryID string
}

type DetectionResult struct {
	ModifiedText string
	Violations   []DetectedViolation
}

// CompletionService wraps the external language-model completion service.
// Adapters normalize both response shapes (structured tool call or raw JSON
// body) into DetectionResult before it reaches the pipeline.
type CompletionService interface {
	Detect(ctx context.Context, input DetectionInput) (DetectionResult, error)
}
