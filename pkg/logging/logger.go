package logging

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is an interface for logging
type Logger interface {
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
	Debug(ctx context.Context, msg string, fields map[string]interface{})
}

type contextKey string

const (
	traceIDKey    contextKey = "trace_id"
	exchangeIDKey contextKey = "exchange_id"
)

// WithTraceID returns a context carrying a trace ID that will be attached to
// every log line emitted with it.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// WithExchangeID returns a context carrying the ID of the chat exchange being
// processed.
func WithExchangeID(ctx context.Context, exchangeID string) context.Context {
	return context.WithValue(ctx, exchangeIDKey, exchangeID)
}

// ExchangeID returns the exchange ID carried by ctx, if any.
func ExchangeID(ctx context.Context) string {
	id, _ := ctx.Value(exchangeIDKey).(string)
	return id
}

// ZeroLogger implements Logger using zerolog
type ZeroLogger struct {
	logger zerolog.Logger
}

// New creates a new ZeroLogger
func New(options ...func(*ZeroLogger)) *ZeroLogger {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()
	l := &ZeroLogger{logger: logger}
	for _, option := range options {
		option(l)
	}
	return l
}

// WithLevel creates a new ZeroLogger with the specified level
func WithLevel(level string) func(*ZeroLogger) {
	return func(l *ZeroLogger) {
		switch level {
		case "debug":
			l.logger = l.logger.Level(zerolog.DebugLevel)
		case "info":
			l.logger = l.logger.Level(zerolog.InfoLevel)
		case "warn":
			l.logger = l.logger.Level(zerolog.WarnLevel)
		case "error":
			l.logger = l.logger.Level(zerolog.ErrorLevel)
		default:
			l.logger = l.logger.Level(zerolog.InfoLevel)
		}
	}
}

// emit attaches context-carried IDs and caller fields before writing the event
func emit(ctx context.Context, event *zerolog.Event, msg string, fields map[string]interface{}) {
	if traceID, ok := ctx.Value(traceIDKey).(string); ok {
		event = event.Str("trace_id", traceID)
	}
	if exchangeID, ok := ctx.Value(exchangeIDKey).(string); ok {
		event = event.Str("exchange_id", exchangeID)
	}
	for k, v := range fields {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}

// Info logs an info message
func (l *ZeroLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Info(), msg, fields)
}

// Warn logs a warning message
func (l *ZeroLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Warn(), msg, fields)
}

// Error logs an error message
func (l *ZeroLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Error(), msg, fields)
}

// Debug logs a debug message
func (l *ZeroLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	emit(ctx, l.logger.Debug(), msg, fields)
}
