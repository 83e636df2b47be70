// Command redteam replays a file of adversarial prompts through the gateway
// and records every exchange to a CSV report for offline analysis.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/talakunchi/chatguard/pkg/audit"
	"github.com/talakunchi/chatguard/pkg/classifier"
	"github.com/talakunchi/chatguard/pkg/config"
	"github.com/talakunchi/chatguard/pkg/extract"
	"github.com/talakunchi/chatguard/pkg/gateway"
	"github.com/talakunchi/chatguard/pkg/guardrails"
	"github.com/talakunchi/chatguard/pkg/interfaces"
	"github.com/talakunchi/chatguard/pkg/logging"
	"github.com/talakunchi/chatguard/pkg/relay"
	"github.com/talakunchi/chatguard/pkg/scanner"
)

// attackPrompt is one entry of the input file
type attackPrompt struct {
	AttackType string `json:"attack_type"`
	Prompt     string `json:"prompt"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "redteam: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	promptsPath := flag.String("prompts", "attacks.json", "path to the attack prompts file")
	outPath := flag.String("out", "redteam_results.csv", "path to the CSV report")
	model := flag.String("model", "", "model to target; empty uses the configured default")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if key := os.Getenv("CHATGUARD_API_KEY"); key != "" {
		cfg.Relay.APIKey = key
	}

	prompts, err := loadPrompts(*promptsPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.WithLevel(cfg.Logging.Level))
	ctx := context.Background()

	gw, cleanup, err := buildGateway(cfg, logger, *outPath)
	if err != nil {
		return err
	}
	defer cleanup()

	var blocked, redacted, allowed, failed int
	for i, prompt := range prompts {
		exchange, err := gw.SubmitExchange(ctx, gateway.Request{
			Prompt: prompt.Prompt,
			Model:  *model,
			Label:  prompt.AttackType,
		})
		if err != nil {
			failed++
			logger.Error(ctx, "Exchange failed", map[string]interface{}{
				"index":       i,
				"attack_type": prompt.AttackType,
				"error":       err.Error(),
			})
			continue
		}

		switch exchange.Verdict() {
		case guardrails.VerdictBlock:
			blocked++
		case guardrails.VerdictRedact:
			redacted++
		default:
			allowed++
		}
	}

	fmt.Printf("prompts: %d  blocked: %d  redacted: %d  allowed: %d  failed: %d\n",
		len(prompts), blocked, redacted, allowed, failed)
	fmt.Printf("report written to %s\n", *outPath)
	return nil
}

func loadPrompts(path string) ([]attackPrompt, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var prompts []attackPrompt
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if len(prompts) == 0 {
		return nil, fmt.Errorf("prompts file %s contains no prompts", path)
	}
	return prompts, nil
}

// buildGateway assembles the same pipeline the server runs, with a mandatory
// CSV report sink
func buildGateway(cfg config.Config, logger logging.Logger, outPath string) (*gateway.Gateway, func(), error) {
	registry := scanner.NewRegistry()
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
	for name, endpoint := range cfg.Scoring.Endpoints {
		var backend interfaces.Classifier = classifier.NewHTTP(name, endpoint, classifier.WithLogger(logger))
		registry.Register(name, scanner.ClassifierFactory(backend))
	}

	inputStages, err := registry.Resolve(cfg.Scanners.Input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve input scanners: %w", err)
	}
	outputStages, err := registry.Resolve(cfg.Scanners.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve output scanners: %w", err)
	}

	modelRelay := relay.NewOpenAI(cfg.Relay.BaseURL, cfg.Relay.APIKey,
		relay.WithModel(cfg.Relay.Model),
		relay.WithTimeout(cfg.Relay.Timeout.Std()),
		relay.WithLogger(logger),
	)

	pingCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := modelRelay.Ping(pingCtx); err != nil {
		return nil, nil, fmt.Errorf("model backend unreachable: %w", err)
	}

	sink, err := audit.NewCSVSink(outPath)
	if err != nil {
		return nil, nil, err
	}

	gw := gateway.New(
		extract.NewDispatcher(extract.WithLogger(logger)),
		guardrails.New(scanner.DirectionInput, inputStages, guardrails.WithLogger(logger)),
		guardrails.New(scanner.DirectionOutput, outputStages, guardrails.WithLogger(logger)),
		modelRelay,
		gateway.WithLogger(logger),
		gateway.WithAuditSink(sink),
		gateway.WithFallbackModel(cfg.Relay.Model),
	)

	return gw, func() { sink.Close() }, nil
}
