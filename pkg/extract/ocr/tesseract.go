// Package ocr provides the tesseract-backed OCR engine used by the image
// extractor. It is kept in its own package so that the cgo dependency stays
// out of the gateway core.
package ocr

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract implements interfaces.OCREngine using the tesseract engine.
type Tesseract struct {
	languages []string
}

// Option represents an option for configuring the engine
type Option func(*Tesseract)

// WithLanguages sets the recognition languages, e.g. "eng"
func WithLanguages(languages ...string) Option {
	return func(t *Tesseract) {
		t.languages = languages
	}
}

// New creates a new tesseract engine
func New(options ...Option) *Tesseract {
	t := &Tesseract{}
	for _, option := range options {
		option(t)
	}
	return t
}

// Recognize extracts text from an encoded image. A fresh client is used per
// call; tesseract clients are not safe for concurrent use.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if len(t.languages) > 0 {
		if err := client.SetLanguage(t.languages...); err != nil {
			return "", fmt.Errorf("failed to set OCR languages: %w", err)
		}
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to recognize text: %w", err)
	}

	return text, nil
}
