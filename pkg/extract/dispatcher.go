package extract

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/talakunchi/chatguard/pkg/interfaces"
	"github.com/talakunchi/chatguard/pkg/logging"
)

// Extractor converts one artifact into its text rendering. Implementations
// must be deterministic: identical bytes and media type yield identical
// ExtractedText.
type Extractor interface {
	Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error)
}

// Dispatcher selects an extractor solely from an artifact's declared media
// type and guarantees that any transient storage spooled for the artifact is
// released before Extract returns, on every exit path.
type Dispatcher struct {
	extractors map[string]Extractor
	logger     logging.Logger
}

// Option represents an option for configuring the dispatcher
type Option func(*Dispatcher)

// WithLogger sets the logger for the dispatcher
func WithLogger(logger logging.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithExtractor registers an extractor for a media type, replacing any
// default registration for that type
func WithExtractor(mediaType string, extractor Extractor) Option {
	return func(d *Dispatcher) {
		d.extractors[normalizeMediaType(mediaType)] = extractor
	}
}

// WithOCR registers the image extractors backed by the given OCR engine
func WithOCR(engine interfaces.OCREngine) Option {
	return func(d *Dispatcher) {
		image := NewImageExtractor(engine)
		d.extractors["image/png"] = image
		d.extractors["image/jpeg"] = image
	}
}

// MediaTypeDocx is the declared media type for word-processor documents.
const MediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// NewDispatcher creates a dispatcher with the built-in extractors registered.
// Image extraction requires an OCR engine supplied via WithOCR.
func NewDispatcher(options ...Option) *Dispatcher {
	d := &Dispatcher{
		extractors: map[string]Extractor{
			"application/pdf": NewPDFExtractor(),
			MediaTypeDocx:     NewDocxExtractor(),
			"text/csv":        NewCSVExtractor(),
			"text/plain":      NewTextExtractor(),
		},
		logger: logging.New(),
	}

	for _, option := range options {
		option(d)
	}

	return d
}

// Extract converts the artifact into text. The artifact's scratch storage
// exists only for the duration of this call.
func (d *Dispatcher) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	extractor, err := d.lookup(artifact.MediaType)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "chatguard-artifact-")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch storage: %w", err)
	}
	artifact.scratch = scratch
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			d.logger.Error(ctx, "Failed to remove scratch storage", map[string]interface{}{
				"path":  scratch,
				"error": rmErr.Error(),
			})
		}
		artifact.scratch = ""
		artifact.spooled = ""
	}()

	spooled := filepath.Join(scratch, "payload")
	if err := os.WriteFile(spooled, artifact.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to spool artifact: %w", err)
	}
	artifact.spooled = spooled

	d.logger.Debug(ctx, "Extracting artifact", map[string]interface{}{
		"name":       artifact.Name,
		"media_type": artifact.MediaType,
		"bytes":      len(artifact.Data),
	})

	text, err := extractor.Extract(ctx, artifact)
	if err != nil {
		d.logger.Warn(ctx, "Extraction failed", map[string]interface{}{
			"name":       artifact.Name,
			"media_type": artifact.MediaType,
			"error":      err.Error(),
		})
		return nil, &ExtractionError{MediaType: artifact.MediaType, Err: err}
	}

	return text, nil
}

func (d *Dispatcher) lookup(mediaType string) (Extractor, error) {
	normalized := normalizeMediaType(mediaType)

	if extractor, ok := d.extractors[normalized]; ok {
		return extractor, nil
	}

	// Generic text types decode as plain text.
	if strings.HasPrefix(normalized, "text/") {
		if extractor, ok := d.extractors["text/plain"]; ok {
			return extractor, nil
		}
	}

	return nil, &UnsupportedFormatError{MediaType: mediaType}
}

// normalizeMediaType strips parameters such as charset and lower-cases the type
func normalizeMediaType(mediaType string) string {
	parsed, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(mediaType))
	}
	return parsed
}
