package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CSVExtractor renders tabular input as a stable, machine-readable sequence
// of row-objects: one JSON object per line, fields keyed positionally
// (col_1, col_2, ...) so that field order is preserved exactly as read.
type CSVExtractor struct{}

// NewCSVExtractor creates a new CSV extractor
func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

// Extract implements Extractor
func (e *CSVExtractor) Extract(ctx context.Context, artifact *Artifact) (*ExtractedText, error) {
	reader := csv.NewReader(bytes.NewReader(artifact.Data))
	reader.FieldsPerRecord = -1

	var b strings.Builder
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}

		b.WriteByte('{')
		for i, field := range record {
			if i > 0 {
				b.WriteByte(',')
			}
			value, err := json.Marshal(field)
			if err != nil {
				return nil, fmt.Errorf("failed to encode CSV field: %w", err)
			}
			fmt.Fprintf(&b, "%q:%s", fmt.Sprintf("col_%d", i+1), value)
		}
		b.WriteString("}\n")
	}

	return &ExtractedText{
		Text:   b.String(),
		Format: FormatRows,
	}, nil
}
