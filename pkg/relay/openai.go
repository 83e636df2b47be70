// Package relay is the bounded request/response boundary to the external
// language-model backend. It speaks the OpenAI chat-completion protocol,
// which local backends such as Ollama also expose, so the same adapter covers
// hosted and local deployments.
package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sashabaranov/go-openai"

	"github.com/talakunchi/chatguard/pkg/logging"
)

var (
	// ErrModelUnavailable reports a connection-level failure to the backend
	ErrModelUnavailable = errors.New("model backend unavailable")

	// ErrModelTimeout reports that the bounded relay call ran out of time
	ErrModelTimeout = errors.New("model call timed out")
)

// OpenAIRelay implements interfaces.ModelRelay against an OpenAI-compatible
// endpoint. Every Generate call is bounded by the configured timeout and is
// never retried; retry policy belongs to the caller.
type OpenAIRelay struct {
	Client       *openai.Client
	defaultModel string
	timeout      time.Duration
	logger       logging.Logger
}

// Option represents an option for configuring the relay
type Option func(*OpenAIRelay)

// WithModel sets the default model used when the caller names none
func WithModel(model string) Option {
	return func(r *OpenAIRelay) {
		r.defaultModel = model
	}
}

// WithTimeout bounds each Generate call
func WithTimeout(timeout time.Duration) Option {
	return func(r *OpenAIRelay) {
		r.timeout = timeout
	}
}

// WithLogger sets the logger for the relay
func WithLogger(logger logging.Logger) Option {
	return func(r *OpenAIRelay) {
		r.logger = logger
	}
}

// NewOpenAI creates a relay for the given endpoint. An empty baseURL targets
// the hosted OpenAI API.
func NewOpenAI(baseURL, apiKey string, options ...Option) *OpenAIRelay {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	r := &OpenAIRelay{
		Client:       openai.NewClientWithConfig(config),
		defaultModel: "gpt-4o-mini",
		timeout:      60 * time.Second,
		logger:       logging.New(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Generate implements interfaces.ModelRelay
func (r *OpenAIRelay) Generate(ctx context.Context, text string, model string) (string, error) {
	if model == "" {
		model = r.defaultModel
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	}

	r.logger.Debug(ctx, "Relaying text to model backend", map[string]interface{}{
		"model":   model,
		"timeout": r.timeout.String(),
	})

	resp, err := r.Client.CreateChatCompletion(ctx, req)
	if err != nil {
		// A deadline or a caller cancellation both end the bounded call;
		// either way the relay gives up rather than hang.
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || ctx.Err() != nil {
			r.logger.Error(ctx, "Model call timed out", map[string]interface{}{
				"model":   model,
				"timeout": r.timeout.String(),
			})
			return "", fmt.Errorf("%w after %s: %v", ErrModelTimeout, r.timeout, err)
		}
		r.logger.Error(ctx, "Model backend call failed", map[string]interface{}{
			"model": model,
			"error": err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no completions returned", ErrModelUnavailable)
	}

	return resp.Choices[0].Message.Content, nil
}

// ListModels implements interfaces.ModelRelay. The backend's ordering is
// preserved.
func (r *OpenAIRelay) ListModels(ctx context.Context) ([]string, error) {
	list, err := r.Client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	names := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		names = append(names, model.ID)
	}
	return names, nil
}

// Name implements interfaces.ModelRelay
func (r *OpenAIRelay) Name() string {
	return "openai"
}

// Ping verifies the backend is reachable, retrying with exponential backoff
// until ctx expires. It is a startup check only; per-exchange calls are never
// retried.
func (r *OpenAIRelay) Ping(ctx context.Context) error {
	operation := func() error {
		_, err := r.Client.ListModels(ctx)
		return err
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	r.logger.Info(ctx, "Model backend reachable", map[string]interface{}{
		"backend": r.Name(),
	})
	return nil
}
