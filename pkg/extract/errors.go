package extract

import "fmt"

// UnsupportedFormatError is returned when no extractor is registered for an
// artifact's declared media type. It is a client-visible error.
type UnsupportedFormatError struct {
	MediaType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported media type: %s", e.MediaType)
}

// ExtractionError wraps an internal parser or OCR failure for one artifact.
type ExtractionError struct {
	MediaType string
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.MediaType, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
