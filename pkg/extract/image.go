package extract

import (
	"bytes"
	"context"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/talakunchi/chatguard/pkg/interfaces"
)

// ImageExtractor runs optical character recognition over an image artifact.
// The image is normalized to grayscale before recognition, which improves
// OCR accuracy on photographed or low-contrast input.
type ImageExtractor struct {
	engine interfaces.OCREngine
}

// NewImageExtractor creates a new image extractor backed by the given engine
func NewImageExtractor(engine interfaces.OCREngine) *ImageExtractor {
	return &ImageExtractor{engine: engine}
}

// Extract implements Extractor
func (e *ImageExtractor) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("no OCR engine configured")
	}

	img, err := imaging.Decode(bytes.NewReader(artifact.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, imaging.Grayscale(img), imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode normalized image: %w", err)
	}

	text, err := e.engine.Recognize(ctx, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	return &ExtractedText{
		Text:   text,
		Format: FormatPlain,
	}, nil
}
