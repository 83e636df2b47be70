package extract

import (
	"context"
	"strings"
)

// TextExtractor decodes generic text artifacts as UTF-8, replacing invalid
// byte sequences with the replacement character.
type TextExtractor struct{}

// NewTextExtractor creates a new plain-text extractor
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract implements Extractor
func (e *TextExtractor) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	return &ExtractedText{
		Text:   strings.ToValidUTF8(string(artifact.Data), "�"),
		Format: FormatPlain,
	}, nil
}
