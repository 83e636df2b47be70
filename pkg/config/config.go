// Package config loads the service configuration from YAML. The file names
// the model backend, the scoring services, and the two scanner chains; the
// binary composes everything else from it.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talakunchi/chatguard/pkg/scanner"
)

// Duration is a time.Duration that unmarshals from YAML strings such as
// "60s" or "1h"
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode duration: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("failed to parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the root configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Relay    RelayConfig    `yaml:"relay"`
	Redis    RedisConfig    `yaml:"redis"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Scanners ScannersConfig `yaml:"scanners"`
	OCR      OCRConfig      `yaml:"ocr"`
	Audit    AuditConfig    `yaml:"audit"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP surface
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// RelayConfig configures the model backend
type RelayConfig struct {
	// BaseURL is the OpenAI-compatible endpoint; empty targets the hosted API
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against the backend; local backends accept any value
	APIKey string `yaml:"api_key"`

	// Model is the default model when a request names none
	Model string `yaml:"model"`

	// Timeout bounds each model call
	Timeout Duration `yaml:"timeout"`
}

// RedisConfig configures the optional classifier score cache
type RedisConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Addr     string   `yaml:"addr"`
	Password string   `yaml:"password"`
	DB       int      `yaml:"db"`
	TTL      Duration `yaml:"ttl"`
}

// ScoringConfig maps classifier names to the scoring services backing them
type ScoringConfig struct {
	// Endpoints maps a classifier name to its scoring service URL
	Endpoints map[string]string `yaml:"endpoints"`
}

// ScannersConfig declares the two scanner chains
type ScannersConfig struct {
	Input  []scanner.Spec `yaml:"input"`
	Output []scanner.Spec `yaml:"output"`
}

// OCRConfig configures image text recognition
type OCRConfig struct {
	// Languages are the tesseract language codes to recognize
	Languages []string `yaml:"languages"`
}

// AuditConfig configures the exchange audit trail
type AuditConfig struct {
	// CSVPath enables the CSV sink when set
	CSVPath string `yaml:"csv_path"`

	// PostgresDSN enables the postgres sink when set
	PostgresDSN string `yaml:"postgres_dsn"`

	// PostgresTable overrides the default table name
	PostgresTable string `yaml:"postgres_table"`
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled           bool   `yaml:"enabled"`
	ServiceName       string `yaml:"service_name"`
	CollectorEndpoint string `yaml:"collector_endpoint"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when a field is absent from the file
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr: ":8080",
		},
		Relay: RelayConfig{
			Model:   "gpt-4o-mini",
			Timeout: Duration(60 * time.Second),
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
			TTL:  Duration(time.Hour),
		},
		OCR: OCRConfig{
			Languages: []string{"eng"},
		},
		Tracing: TracingConfig{
			ServiceName: "chatguard",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads and validates the configuration at filePath
func Load(filePath string) (Config, error) {
	config := Default()

	if !isValidFilePath(filePath) {
		return config, fmt.Errorf("invalid config file path")
	}

	data, err := os.ReadFile(filePath) // #nosec G304 - Path is validated with isValidFilePath() before use
	if err != nil {
		return config, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}

// Validate checks the cross-field constraints the YAML schema cannot express
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Relay.Timeout <= 0 {
		return fmt.Errorf("relay.timeout must be positive")
	}

	for i, spec := range c.Scanners.Input {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("scanners.input[%d]: %w", i, err)
		}
	}
	for i, spec := range c.Scanners.Output {
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("scanners.output[%d]: %w", i, err)
		}
	}

	return nil
}

// isValidFilePath checks if a file path is valid and safe
func isValidFilePath(filePath string) bool {
	if filePath == "" {
		return false
	}

	cleanPath := filepath.Clean(filePath)
	if strings.Contains(cleanPath, "..") {
		return false
	}

	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return false
	}

	if strings.HasPrefix(absPath, "/proc") ||
		strings.HasPrefix(absPath, "/sys") ||
		strings.HasPrefix(absPath, "/dev") {
		return false
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return false
	}

	return fileInfo.Mode().IsRegular()
}
