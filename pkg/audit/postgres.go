package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
)

// PostgresSink records exchanges to an append-only postgres table. Rows are
// only ever inserted; retention is left to the operator.
type PostgresSink struct {
	db    *sql.DB
	table string
}

// NewPostgresSink connects to postgres and ensures the audit table exists
func NewPostgresSink(dsn, table string) (*PostgresSink, error) {
	if table == "" {
		table = "exchanges"
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}

	sink := &PostgresSink{db: db, table: table}
	if err := sink.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return sink, nil
}

func (s *PostgresSink) ensureSchema() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL,
			state TEXT NOT NULL,
			verdict TEXT NOT NULL,
			model_invoked BOOLEAN NOT NULL,
			input_report JSONB,
			output_report JSONB,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)
	`, s.table)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create audit table: %w", err)
	}
	return nil
}

// Record implements gateway.AuditSink
func (s *PostgresSink) Record(ctx context.Context, exchange *gateway.Exchange) error {
	inputReport, err := marshalReport(exchange.InputReport)
	if err != nil {
		return err
	}
	outputReport, err := marshalReport(exchange.OutputReport)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, label, model, state, verdict, model_invoked, input_report, output_report, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, s.table)

	_, err = s.db.ExecContext(ctx, query,
		exchange.ID,
		exchange.Label,
		exchange.Model,
		string(exchange.State),
		string(exchange.Verdict()),
		exchange.ModelInvoked,
		inputReport,
		outputReport,
		exchange.StartedAt,
		exchange.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit row: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresSink) Close() error {
	return s.db.Close()
}

func marshalReport(report *guardrails.Report) ([]byte, error) {
	if report == nil {
		return nil, nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return data, nil
}
