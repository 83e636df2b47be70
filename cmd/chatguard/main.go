// Command chatguard runs the content ingestion and safety gateway: it
// extracts text from uploaded artifacts, runs the input and output guardrail
// chains, and relays cleared text to the configured model backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/talakunchi/chatguard/pkg/audit"
	"github.com/talakunchi/chatguard/pkg/classifier"
	"github.com/talakunchi/chatguard/pkg/config"
	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/extract/ocr"
	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
	"github.com/talakunchi/chatguard/pkg/interfaces"
	"github.com/talakunchi/chatguard/pkg/logging"
	"github.com/talakunchi/chatguard/pkg/relay"
	"github.com/talakunchi/chatguard/pkg/scanner"
	"github.com/talakunchi/chatguard/pkg/server"
	"github.com/talakunchi/chatguard/pkg/tracing"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatguard: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Environment overrides are optional; a missing .env file is not an error.
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	if key := os.Getenv("CHATGUARD_API_KEY"); key != "" {
		cfg.Relay.APIKey = key
	}

	logger := logging.New(logging.WithLevel(cfg.Logging.Level))
	ctx := context.Background()

	tracer, err := tracing.NewOTelTracer(tracing.OTelConfig{
		Enabled:           cfg.Tracing.Enabled,
		ServiceName:       cfg.Tracing.ServiceName,
		CollectorEndpoint: cfg.Tracing.CollectorEndpoint,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	registry := scanner.NewRegistry()
	registerBuiltins(registry)
	if err := registerClassifiers(registry, cfg, logger); err != nil {
		return err
	}

	inputStages, err := registry.Resolve(cfg.Scanners.Input)
	if err != nil {
		return fmt.Errorf("failed to resolve input scanners: %w", err)
	}
	outputStages, err := registry.Resolve(cfg.Scanners.Output)
	if err != nil {
		return fmt.Errorf("failed to resolve output scanners: %w", err)
	}

	inputPipeline := guardrails.New(scanner.DirectionInput, inputStages, guardrails.WithLogger(logger))
	outputPipeline := guardrails.New(scanner.DirectionOutput, outputStages, guardrails.WithLogger(logger))

	dispatcher := extract.NewDispatcher(
		extract.WithLogger(logger),
		extract.WithOCR(ocr.New(ocr.WithLanguages(cfg.OCR.Languages...))),
	)

	modelRelay := relay.NewOpenAI(cfg.Relay.BaseURL, cfg.Relay.APIKey,
		relay.WithModel(cfg.Relay.Model),
		relay.WithTimeout(cfg.Relay.Timeout.Std()),
		relay.WithLogger(logger),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := modelRelay.Ping(pingCtx); err != nil {
		return fmt.Errorf("model backend unreachable: %w", err)
	}

	sink, closers, err := buildAuditSink(cfg)
	if err != nil {
		return err
	}
	defer func() {
		for _, closer := range closers {
			closer()
		}
	}()

	options := []gateway.Option{
		gateway.WithLogger(logger),
		gateway.WithTracer(tracer),
		gateway.WithFallbackModel(cfg.Relay.Model),
	}
	if sink != nil {
		options = append(options, gateway.WithAuditSink(sink))
	}

	gw := gateway.New(dispatcher, inputPipeline, outputPipeline, modelRelay, options...)

	logger.Info(ctx, "Starting gateway", map[string]interface{}{
		"addr":            cfg.Server.Addr,
		"input_scanners":  len(inputStages),
		"output_scanners": len(outputStages),
	})

	return server.New(gw, server.WithLogger(logger)).Run(cfg.Server.Addr)
}

// registerBuiltins wires the rule-based scanners under their configuration
// names
func registerBuiltins(registry *scanner.Registry) {
	registry.Register("dangerous_code", func(spec scanner.Spec) (scanner.Scanner, error) {
		return scanner.NewInjectionPatterns(), nil
	})
	registry.Register("invisible_text", func(spec scanner.Spec) (scanner.Scanner, error) {
		return scanner.NewInvisibleText(), nil
	})
	registry.Register("token_limit", func(spec scanner.Spec) (scanner.Scanner, error) {
		return scanner.NewTokenLimit(), nil
	})
	registry.Register("language", func(spec scanner.Spec) (scanner.Scanner, error) {
		return scanner.NewLanguageMatch(), nil
	})
	registry.Register("pii", func(spec scanner.Spec) (scanner.Scanner, error) {
		return scanner.NewPIIRedactor(scanner.NewRegexRecognizer()), nil
	})
}

// registerClassifiers wires one classifier-backed scanner per configured
// scoring endpoint, optionally behind the redis score cache
func registerClassifiers(registry *scanner.Registry, cfg config.Config, logger logging.Logger) error {
	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	for name, endpoint := range cfg.Scoring.Endpoints {
		if endpoint == "" {
			return fmt.Errorf("scoring endpoint for %q is empty", name)
		}

		var backend interfaces.Classifier = classifier.NewHTTP(name, endpoint, classifier.WithLogger(logger))
		if cache != nil {
			backend = classifier.NewCached(backend, cache,
				classifier.WithTTL(cfg.Redis.TTL.Std()),
				classifier.WithCacheLogger(logger),
			)
		}

		registry.Register(name, scanner.ClassifierFactory(backend))
	}

	return nil
}

// buildAuditSink composes the configured audit sinks, returning nil when none
// are configured
func buildAuditSink(cfg config.Config) (gateway.AuditSink, []func(), error) {
	var sinks audit.Fanout
	var closers []func()

	if cfg.Audit.CSVPath != "" {
		csvSink, err := audit.NewCSVSink(cfg.Audit.CSVPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, csvSink)
		closers = append(closers, func() { csvSink.Close() })
	}

	if cfg.Audit.PostgresDSN != "" {
		pgSink, err := audit.NewPostgresSink(cfg.Audit.PostgresDSN, cfg.Audit.PostgresTable)
		if err != nil {
			for _, closer := range closers {
				closer()
			}
			return nil, nil, err
		}
		sinks = append(sinks, pgSink)
		closers = append(closers, func() { pgSink.Close() })
	}

	if len(sinks) == 0 {
		return nil, nil, nil
	}
	return sinks, closers, nil
}
