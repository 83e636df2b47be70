// Package classifier provides clients for the external scoring models that
// classifier-based scanners delegate to. Backends are stateless scoring
// functions; everything about the model stays on the other side of the wire.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/talakunchi/chatguard/pkg/logging"
)

// HTTPClient scores text against a remote scoring service speaking a minimal
// JSON protocol: POST {"text": ...} returns {"score": ...} with the score in
// [0,1].
type HTTPClient struct {
	name       string
	endpoint   string
	httpClient *http.Client
	logger     logging.Logger
}

// Option represents an option for configuring the client
type Option func(*HTTPClient)

// WithHTTPClient sets the underlying HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		c.httpClient = client
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger logging.Logger) Option {
	return func(c *HTTPClient) {
		c.logger = logger
	}
}

// NewHTTP creates a new scoring client for the given endpoint
func NewHTTP(name, endpoint string, options ...Option) *HTTPClient {
	c := &HTTPClient{
		name:       name,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logging.New(),
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type scoreRequest struct {
	Text string `json:"text"`
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

// Score implements interfaces.Classifier
func (c *HTTPClient) Score(ctx context.Context, text string) (float64, error) {
	body, err := json.Marshal(scoreRequest{Text: text})
	if err != nil {
		return 0, fmt.Errorf("failed to encode score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "Scoring request failed", map[string]interface{}{
			"classifier": c.name,
			"error":      err.Error(),
		})
		return 0, fmt.Errorf("scoring request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("scoring service returned status %d", resp.StatusCode)
	}

	var parsed scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode score response: %w", err)
	}

	if parsed.Score < 0 || parsed.Score > 1 {
		return 0, fmt.Errorf("scoring service returned score %v outside [0,1]", parsed.Score)
	}

	c.logger.Debug(ctx, "Received classifier score", map[string]interface{}{
		"classifier": c.name,
		"score":      parsed.Score,
	})

	return parsed.Score, nil
}

// Name implements interfaces.Classifier
func (c *HTTPClient) Name() string {
	return c.name
}
