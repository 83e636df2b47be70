package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestGenerateReturnsCompletion(t *testing.T) {
	var seenModel string
	var seenContent string

	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seenModel = req.Model
		require.Len(t, req.Messages, 1)
		seenContent = req.Messages[0].Content

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"bonjour"}}]}`))
	})

	r := NewOpenAI(backend.URL, "test-key")

	response, err := r.Generate(context.Background(), "say hello in french", "llama3")
	require.NoError(t, err)

	assert.Equal(t, "bonjour", response)
	assert.Equal(t, "llama3", seenModel)
	assert.Equal(t, "say hello in french", seenContent)
}

func TestGenerateUsesDefaultModel(t *testing.T) {
	var seenModel string
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string `json:"model"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		seenModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	})

	r := NewOpenAI(backend.URL, "test-key", WithModel("mistral"))

	_, err := r.Generate(context.Background(), "hi", "")
	require.NoError(t, err)
	assert.Equal(t, "mistral", seenModel)
}

func TestGenerateTimesOut(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	r := NewOpenAI(backend.URL, "test-key", WithTimeout(20*time.Millisecond))

	_, err := r.Generate(context.Background(), "hi", "llama3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTimeout)
}

func TestGenerateMapsCancellationToTimeout(t *testing.T) {
	started := make(chan struct{})
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(500 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	r := NewOpenAI(backend.URL, "test-key")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := r.Generate(ctx, "hi", "llama3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelTimeout)
}

func TestGenerateMapsConnectionFailure(t *testing.T) {
	// Point at a server that is already closed
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	r := NewOpenAI(backend.URL, "test-key")

	_, err := r.Generate(context.Background(), "hi", "llama3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestListModelsPreservesOrder(t *testing.T) {
	backend := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"id":"zeta","object":"model"},{"id":"alpha","object":"model"}]}`))
	})

	r := NewOpenAI(backend.URL, "test-key")

	models, err := r.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, models)
}

func TestPingRetriesUntilContextExpires(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	backend.Close()

	r := NewOpenAI(backend.URL, "test-key")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := r.Ping(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}
