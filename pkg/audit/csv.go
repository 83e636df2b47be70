// Package audit persists completed exchanges to append-only sinks. Sinks
// implement gateway.AuditSink and never fail an exchange; callers treat
// recording errors as log-and-continue.
package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
)

var csvHeader = []string{
	"attack_type",
	"prompt_text",
	"blocked_input",
	"input_score",
	"model_response",
	"unsafe_output",
	"output_score",
	"duration_sec",
}

// CSVSink appends one row per exchange to a CSV file. The header row is
// written once when the file is created; an existing file is appended to.
type CSVSink struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens or creates the audit file at path
func NewCSVSink(path string) (*CSVSink, error) {
	info, statErr := os.Stat(path)
	empty := statErr != nil || info.Size() == 0

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit file: %w", err)
	}

	sink := &CSVSink{
		file:   file,
		writer: csv.NewWriter(file),
	}

	if empty {
		if err := sink.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write audit header: %w", err)
		}
		sink.writer.Flush()
		if err := sink.writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write audit header: %w", err)
		}
	}

	return sink, nil
}

// Record implements gateway.AuditSink
func (s *CSVSink) Record(ctx context.Context, exchange *gateway.Exchange) error {
	row := []string{
		exchange.Label,
		exchange.CombinedInput,
		strconv.FormatBool(exchange.State == gateway.StateInputBlocked),
		formatScore(exchange.InputReport),
		exchange.ModelResponse,
		strconv.FormatBool(exchange.State == gateway.StateOutputBlocked),
		formatScore(exchange.OutputReport),
		strconv.FormatFloat(exchange.Duration().Seconds(), 'f', 3, 64),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write audit row: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush audit row: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// formatScore renders the highest triggered score of a report, or empty when
// nothing triggered
func formatScore(report *guardrails.Report) string {
	if report == nil {
		return ""
	}
	var max float64
	found := false
	for _, outcome := range report.Outcomes {
		if !outcome.Triggered || outcome.Score == nil {
			continue
		}
		if !found || *outcome.Score > max {
			max = *outcome.Score
			found = true
		}
	}
	if !found {
		return ""
	}
	return strconv.FormatFloat(max, 'f', 4, 64)
}
