package interfaces

import "context"

// Classifier represents an external, pre-loaded statistical model used by
// classifier-based scanners. The gateway treats it as a stateless scoring
// function with no knowledge of its internals.
type Classifier interface {
	// Score returns a score in [0,1] for the given text
	Score(ctx context.Context, text string) (float64, error)

	// Name returns the name of the classifier backend
	Name() string
}

// Entity is one detected sensitive span in a text.
type Entity struct {
	// Category is the entity category, e.g. "EMAIL" or "CREDIT_CARD"
	Category string

	// Start is the byte offset where the span begins
	Start int

	// End is the byte offset one past the span's last byte
	End int
}

// EntityRecognizer represents a named-entity detection backend used by the
// PII redactor. Spans are reported as byte ranges into the scanned text.
type EntityRecognizer interface {
	// Recognize returns the sensitive spans detected in text, in order of
	// appearance and non-overlapping
	Recognize(ctx context.Context, text string) ([]Entity, error)
}

// OCREngine represents an optical-character-recognition backend used by the
// image extractor.
type OCREngine interface {
	// Recognize extracts text from an encoded image
	Recognize(ctx context.Context, image []byte) (string, error)
}
