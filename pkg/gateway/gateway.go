// Package gateway composes extraction, the two guardrail pipelines, and the
// model relay into the end-to-end request lifecycle.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/guardrails"
	"github.com/talakunchi/chatguard/pkg/interfaces"
	"github.com/talakunchi/chatguard/pkg/logging"
)

// ErrEmptyInput is returned when a request carries neither text nor artifact.
var ErrEmptyInput = errors.New("no text and no artifact supplied")

// AuditSink records completed exchanges for an external audit trail. Sinks
// are append-only collaborators; recording failures never fail the exchange.
type AuditSink interface {
	Record(ctx context.Context, exchange *Exchange) error
}

// Gateway is the orchestrator. All of its fields are wired once at startup
// and read-only afterward; concurrent exchanges share nothing else.
type Gateway struct {
	dispatcher    *extract.Dispatcher
	input         *guardrails.Pipeline
	output        *guardrails.Pipeline
	relay         interfaces.ModelRelay
	fallbackModel string
	audit         AuditSink
	tracer        interfaces.Tracer
	logger        logging.Logger
}

// Option represents an option for configuring the gateway
type Option func(*Gateway)

// WithLogger sets the logger for the gateway
func WithLogger(logger logging.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithAuditSink records every completed exchange to the given sink
func WithAuditSink(sink AuditSink) Option {
	return func(g *Gateway) {
		g.audit = sink
	}
}

// WithTracer traces each exchange as one span
func WithTracer(tracer interfaces.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithFallbackModel sets the model name returned when the backend's model
// list cannot be fetched
func WithFallbackModel(model string) Option {
	return func(g *Gateway) {
		g.fallbackModel = model
	}
}

// New creates a gateway over the given collaborators
func New(dispatcher *extract.Dispatcher, input, output *guardrails.Pipeline, relay interfaces.ModelRelay, options ...Option) *Gateway {
	g := &Gateway{
		dispatcher:    dispatcher,
		input:         input,
		output:        output,
		relay:         relay,
		fallbackModel: "gpt-4o-mini",
		logger:        logging.New(),
	}
	for _, option := range options {
		option(g)
	}
	return g
}

// SubmitExchange processes one user turn end to end. A guardrail block is a
// normal outcome: the returned error is nil and the exchange's FinalText is a
// block notice. Errors are reserved for faults: empty input, extraction
// failures, and relay failures.
func (g *Gateway) SubmitExchange(ctx context.Context, req Request) (*Exchange, error) {
	exchange := &Exchange{
		ID:        uuid.NewString(),
		Model:     req.Model,
		Label:     req.Label,
		RawInput:  req.Prompt,
		State:     StateReceived,
		StartedAt: time.Now(),
	}
	ctx = logging.WithExchangeID(ctx, exchange.ID)

	var span interfaces.Span
	if g.tracer != nil {
		ctx, span = g.tracer.StartSpan(ctx, "gateway.exchange")
		span.SetAttribute("exchange.id", exchange.ID)
		span.SetAttribute("exchange.model", req.Model)
	}

	err := g.run(ctx, req, exchange, span)

	exchange.FinishedAt = time.Now()
	if span != nil {
		span.SetAttribute("exchange.state", string(exchange.State))
		span.SetAttribute("exchange.verdict", string(exchange.Verdict()))
		if err != nil {
			span.RecordError(err)
		}
		span.End()
	}

	if g.audit != nil {
		if auditErr := g.audit.Record(ctx, exchange); auditErr != nil {
			g.logger.Warn(ctx, "Failed to record exchange for audit", map[string]interface{}{
				"error": auditErr.Error(),
			})
		}
	}

	return exchange, err
}

// run drives the state machine; stages are strictly sequential because each
// consumes the previous stage's output text.
func (g *Gateway) run(ctx context.Context, req Request, exchange *Exchange, span interfaces.Span) error {
	transition := func(state State) {
		exchange.State = state
		if span != nil {
			span.AddEvent(string(state), nil)
		}
		g.logger.Debug(ctx, "Exchange state transition", map[string]interface{}{
			"state": string(state),
		})
	}

	if strings.TrimSpace(req.Prompt) == "" && req.Artifact == nil {
		return ErrEmptyInput
	}

	combined := req.Prompt
	if req.Artifact != nil {
		transition(StateExtracting)
		extracted, err := g.dispatcher.Extract(ctx, req.Artifact)
		if err != nil {
			transition(StateExtractionFailed)
			return err
		}
		exchange.Extraction = extracted
		exchange.ExtractionFormat = string(extracted.Format)
		combined = combine(req.Prompt, req.Artifact.Name, extracted.Text)
		transition(StateExtracted)
	}
	exchange.CombinedInput = combined

	transition(StateScanningInput)
	inputReport := g.input.Run(ctx, combined)
	exchange.InputReport = inputReport

	if inputReport.Verdict == guardrails.VerdictBlock {
		transition(StateInputBlocked)
		exchange.FinalText = blockNotice("Your request was blocked", inputReport)
		return nil
	}
	transition(StateInputCleared)

	transition(StateRelayingModel)
	response, err := g.relay.Generate(ctx, inputReport.FinalText, req.Model)
	if err != nil {
		transition(StateModelFailed)
		return err
	}
	exchange.ModelInvoked = true
	exchange.ModelResponse = response
	transition(StateModelResponded)

	transition(StateScanningOutput)
	outputReport := g.output.Run(ctx, response)
	exchange.OutputReport = outputReport

	if outputReport.Verdict == guardrails.VerdictBlock {
		transition(StateOutputBlocked)
		exchange.FinalText = blockNotice("The model response was withheld", outputReport)
		return nil
	}
	transition(StateOutputCleared)
	exchange.FinalText = outputReport.FinalText

	transition(StateDone)
	return nil
}

// ListModels returns the backend's model names. When the backend cannot be
// reached it returns the single-element fallback list so the caller always
// has a usable default.
func (g *Gateway) ListModels(ctx context.Context) []string {
	models, err := g.relay.ListModels(ctx)
	if err != nil || len(models) == 0 {
		g.logger.Warn(ctx, "Model list unavailable, using fallback", map[string]interface{}{
			"fallback": g.fallbackModel,
		})
		return []string{g.fallbackModel}
	}
	return models
}

// combine merges the typed prompt with an attachment's text rendering
func combine(prompt, name, extracted string) string {
	if strings.TrimSpace(extracted) == "" {
		return prompt
	}
	if strings.TrimSpace(prompt) == "" {
		return fmt.Sprintf("[Attachment %q]\n%s", name, extracted)
	}
	return fmt.Sprintf("%s\n\n[Attachment %q]\n%s", prompt, name, extracted)
}

// blockNotice synthesizes the user-visible text for a blocked direction,
// naming the triggering scanner.
func blockNotice(prefix string, report *guardrails.Report) string {
	outcome := report.BlockedBy()
	if outcome == nil {
		return prefix + " by the safety guardrails."
	}
	notice := fmt.Sprintf("%s by the %q guardrail", prefix, outcome.Name)
	if outcome.Score != nil {
		notice += fmt.Sprintf(" (score %.2f)", *outcome.Score)
	}
	if outcome.Reason != "" {
		notice += ": " + outcome.Reason
	}
	return notice + "."
}
