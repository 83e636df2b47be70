package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
	"github.com/talakunchi/chatguard/pkg/scanner"
)

type fakeRelay struct {
	received string
	response string
}

func (r *fakeRelay) Generate(ctx context.Context, text string, model string) (string, error) {
	r.received = text
	return r.response, nil
}

func (r *fakeRelay) ListModels(ctx context.Context) ([]string, error) {
	return nil, errors.New("unreachable")
}

func (r *fakeRelay) Name() string {
	return "fake"
}

type blockScanner struct{}

func (s *blockScanner) Evaluate(ctx context.Context, text string, spec scanner.Spec) (scanner.Outcome, error) {
	triggered := strings.Contains(text, "attack")
	return scanner.Outcome{Name: spec.Name, Triggered: triggered, Text: text, Reason: "pattern match"}, nil
}

func newTestServer(t *testing.T, backend *fakeRelay) *Server {
	t.Helper()

	input := guardrails.New(scanner.DirectionInput, []scanner.Configured{
		{Spec: scanner.Spec{Name: "dangerous_code", Kind: scanner.KindPattern, Action: scanner.ActionBlock}, Scanner: &blockScanner{}},
	})
	output := guardrails.New(scanner.DirectionOutput, nil)

	gw := gateway.New(extract.NewDispatcher(), input, output, backend,
		gateway.WithFallbackModel("llama3"))
	return New(gw)
}

func TestExchangeEndpointJSON(t *testing.T) {
	backend := &fakeRelay{response: "hello back"}
	srv := newTestServer(t, backend)

	body := `{"prompt":"hello","model":"llama3"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State     string `json:"state"`
		Verdict   string `json:"verdict"`
		FinalText string `json:"final_text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "DONE", resp.State)
	assert.Equal(t, "ALLOW", resp.Verdict)
	assert.Equal(t, "hello back", resp.FinalText)
}

func TestExchangeEndpointBlockedIsStillOK(t *testing.T) {
	srv := newTestServer(t, &fakeRelay{response: "unused"})

	body := `{"prompt":"this is an attack"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		State   string `json:"state"`
		Verdict string `json:"verdict"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INPUT_BLOCKED", resp.State)
	assert.Equal(t, "BLOCK", resp.Verdict)
}

func TestExchangeEndpointMultipartArtifact(t *testing.T) {
	// CreateFormFile declares the part as application/octet-stream, so the
	// media type must be resolved from the file extension
	backend := &fakeRelay{response: "summarized"}
	srv := newTestServer(t, backend)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("prompt", "summarize this"))
	part, err := writer.CreateFormFile("artifact", "data.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// The relay saw both the prompt and the attachment rendering
	assert.Contains(t, backend.received, "summarize this")
	assert.Contains(t, backend.received, `"col_1":"a"`)

	var resp struct {
		ExtractionFormat string    `json:"extraction_format"`
		Timestamp        time.Time `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rows", resp.ExtractionFormat)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestExchangeEndpointMultipartDeclaredMediaType(t *testing.T) {
	// A part carrying its own specific Content-Type wins over the extension
	backend := &fakeRelay{response: "summarized"}
	srv := newTestServer(t, backend)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("prompt", "summarize this"))

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", `form-data; name="artifact"; filename="export.data"`)
	partHeader.Set("Content-Type", "text/csv")
	part, err := writer.CreatePart(partHeader)
	require.NoError(t, err)
	_, err = part.Write([]byte("a,b\n1,2\n"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, backend.received, `"col_1":"a"`)
}

func TestExchangeEndpointEmptyInput(t *testing.T) {
	srv := newTestServer(t, &fakeRelay{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", strings.NewReader(`{"prompt":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelsEndpointFallsBack(t *testing.T) {
	srv := newTestServer(t, &fakeRelay{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Models []string `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"llama3"}, resp.Models)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeRelay{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpointCountsExchanges(t *testing.T) {
	srv := newTestServer(t, &fakeRelay{response: "ok"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/exchange", strings.NewReader(`{"prompt":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	metricsReq := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, metricsReq)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chatguard_exchanges_total{verdict="ALLOW"} 1`)
}

func TestStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(gateway.ErrEmptyInput))
	assert.Equal(t, http.StatusUnsupportedMediaType, statusFor(&extract.UnsupportedFormatError{MediaType: "application/zip"}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&extract.ExtractionError{MediaType: "application/pdf", Err: errors.New("bad")}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("anything else")))
}
