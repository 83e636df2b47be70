// Package server exposes the gateway over HTTP. The surface is deliberately
// small: submit an exchange, list models, health, and metrics.
package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
	"github.com/talakunchi/chatguard/pkg/logging"
	"github.com/talakunchi/chatguard/pkg/relay"
)

// maxArtifactBytes bounds uploaded attachments
const maxArtifactBytes = 32 << 20

// Server routes HTTP requests to the gateway
type Server struct {
	gateway *gateway.Gateway
	logger  logging.Logger
	engine  *gin.Engine

	registry         *prometheus.Registry
	exchangeCounter  *prometheus.CounterVec
	exchangeDuration prometheus.Histogram
}

// Option represents an option for configuring the server
type Option func(*Server)

// WithLogger sets the logger for the server
func WithLogger(logger logging.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server over the given gateway
func New(gw *gateway.Gateway, options ...Option) *Server {
	s := &Server{
		gateway:  gw,
		logger:   logging.New(),
		registry: prometheus.NewRegistry(),
	}
	for _, option := range options {
		option(s)
	}

	s.exchangeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chatguard_exchanges_total",
		Help: "Exchanges processed, labeled by final verdict.",
	}, []string{"verdict"})
	s.exchangeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "chatguard_exchange_duration_seconds",
		Help:    "End to end exchange processing time.",
		Buckets: prometheus.DefBuckets,
	})
	s.registry.MustRegister(s.exchangeCounter, s.exchangeDuration)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := engine.Group("/api/v1")
	api.POST("/exchange", s.handleExchange)
	api.GET("/models", s.handleModels)

	engine.GET("/healthz", s.handleHealth)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	s.engine = engine
	return s
}

// Handler returns the underlying HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until the listener fails
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

// exchangeResponse is the wire shape of a processed exchange
type exchangeResponse struct {
	ID               string             `json:"id"`
	State            string             `json:"state"`
	Verdict          string             `json:"verdict"`
	FinalText        string             `json:"final_text"`
	ModelInvoked     bool               `json:"model_invoked"`
	ExtractionFormat string             `json:"extraction_format,omitempty"`
	InputReport      *guardrails.Report `json:"input_report,omitempty"`
	OutputReport     *guardrails.Report `json:"output_report,omitempty"`
	DurationSec      float64            `json:"duration_sec"`
	Timestamp        time.Time          `json:"timestamp"`
}

func (s *Server) handleExchange(c *gin.Context) {
	req, err := s.parseExchangeRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exchange, err := s.gateway.SubmitExchange(c.Request.Context(), req)
	if exchange != nil {
		s.exchangeCounter.WithLabelValues(string(exchange.Verdict())).Inc()
		s.exchangeDuration.Observe(exchange.Duration().Seconds())
	}
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, exchangeResponse{
		ID:               exchange.ID,
		State:            string(exchange.State),
		Verdict:          string(exchange.Verdict()),
		FinalText:        exchange.FinalText,
		ModelInvoked:     exchange.ModelInvoked,
		ExtractionFormat: exchange.ExtractionFormat,
		InputReport:      exchange.InputReport,
		OutputReport:     exchange.OutputReport,
		DurationSec:      exchange.Duration().Seconds(),
		Timestamp:        exchange.FinishedAt,
	})
}

// parseExchangeRequest accepts either a JSON body or a multipart form with an
// optional artifact file
func (s *Server) parseExchangeRequest(c *gin.Context) (gateway.Request, error) {
	var req gateway.Request

	contentType := c.ContentType()
	if contentType == "application/json" {
		var body struct {
			Prompt string `json:"prompt"`
			Model  string `json:"model"`
			Label  string `json:"label"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			return req, err
		}
		req.Prompt = body.Prompt
		req.Model = body.Model
		req.Label = body.Label
		return req, nil
	}

	req.Prompt = c.PostForm("prompt")
	req.Model = c.PostForm("model")
	req.Label = c.PostForm("label")

	header, err := c.FormFile("artifact")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return req, nil
		}
		return req, err
	}
	if header.Size > maxArtifactBytes {
		return req, errors.New("artifact exceeds size limit")
	}

	file, err := header.Open()
	if err != nil {
		return req, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxArtifactBytes))
	if err != nil {
		return req, err
	}

	req.Artifact = extract.NewArtifact(header.Filename, artifactMediaType(header), data)
	return req, nil
}

// extensionMediaTypes covers the supported artifact formats independently of
// the host's mime tables; .csv in particular is absent from Go's builtin set.
var extensionMediaTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": extract.MediaTypeDocx,
	".csv":  "text/csv",
	".txt":  "text/plain",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// artifactMediaType resolves the uploaded artifact's media type. Standard
// multipart clients declare file parts as application/octet-stream, so an
// absent or generic part type falls back to the file extension.
func artifactMediaType(header *multipart.FileHeader) string {
	declared := header.Header.Get("Content-Type")
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if mediaType, ok := extensionMediaTypes[ext]; ok {
		return mediaType
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		return byExt
	}
	return declared
}

func (s *Server) handleModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": s.gateway.ListModels(c.Request.Context())})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusFor maps gateway faults to HTTP status codes
func statusFor(err error) int {
	var unsupported *extract.UnsupportedFormatError
	var extraction *extract.ExtractionError

	switch {
	case errors.Is(err, gateway.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, relay.ErrModelTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, relay.ErrModelUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
