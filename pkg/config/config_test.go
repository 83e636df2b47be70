package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talakunchi/chatguard/pkg/scanner"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
relay:
  base_url: http://localhost:11434/v1
  model: llama3
  timeout: 30s
redis:
  enabled: true
  addr: localhost:6379
  ttl: 15m
scoring:
  endpoints:
    prompt_injection: http://localhost:9001/score
    toxicity: http://localhost:9002/score
scanners:
  input:
    - name: dangerous_code
      kind: pattern
      action: BLOCK
      rank: 10
    - name: prompt_injection
      kind: classifier
      action: BLOCK
      threshold: 0.75
      rank: 30
    - name: pii
      kind: pattern
      action: REDACT
      rank: 20
  output:
    - name: toxicity
      kind: classifier
      action: BLOCK
      threshold: 0.65
      rank: 10
audit:
  csv_path: /tmp/audit.csv
tracing:
  enabled: true
  service_name: chatguard
  collector_endpoint: localhost:4317
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "llama3", cfg.Relay.Model)
	assert.Equal(t, 30*time.Second, cfg.Relay.Timeout.Std())
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Redis.TTL.Std())
	assert.Equal(t, "http://localhost:9001/score", cfg.Scoring.Endpoints["prompt_injection"])

	require.Len(t, cfg.Scanners.Input, 3)
	assert.Equal(t, scanner.KindClassifier, cfg.Scanners.Input[1].Kind)
	assert.Equal(t, 0.75, cfg.Scanners.Input[1].Threshold)
	require.Len(t, cfg.Scanners.Output, 1)

	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
relay:
  model: llama3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 60*time.Second, cfg.Relay.Timeout.Std())
	assert.Equal(t, []string{"eng"}, cfg.OCR.Languages)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsInvalidScannerSpec(t *testing.T) {
	path := writeConfig(t, `
scanners:
  input:
    - name: dangerous_code
      kind: pattern
      action: DISCARD
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scanners.input[0]")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeConfig(t, `
relay:
  timeout: soonish
`)

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
