package extract

import (
	"bytes"
	"context"
	"fmt"

	"code.sajari.com/docconv"
)

// DocxExtractor extracts the full plain text of a word-processor document.
type DocxExtractor struct{}

// NewDocxExtractor creates a new DOCX extractor
func NewDocxExtractor() *DocxExtractor {
	return &DocxExtractor{}
}

// Extract implements Extractor
func (e *DocxExtractor) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(artifact.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to read document text: %w", err)
	}

	return &ExtractedText{
		Text:   text,
		Format: FormatPlain,
	}, nil
}
