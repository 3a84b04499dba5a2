package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/1sec-project/forensec/internal/ingest"
	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the entire forensec configuration.
type Config struct {
	Ingest   IngestConfig   `yaml:"ingest" toml:"ingest"`
	Analysis AnalysisConfig `yaml:"analysis" toml:"analysis"`
	Bus      BusConfig      `yaml:"bus" toml:"bus"`
	Service  ServiceConfig  `yaml:"service" toml:"service"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// IngestConfig controls how log extracts are parsed.
type IngestConfig struct {
	Policy string `yaml:"policy" toml:"policy"` // "lenient" or "strict"
	Header string `yaml:"header" toml:"header"` // "auto", "always", "never"
}

// AnalysisConfig holds defaults for analysis parameters.
type AnalysisConfig struct {
	AlertLimit int `yaml:"alert_limit" toml:"alert_limit"`
}

// BusConfig holds NATS settings for publishing findings and serving queries.
type BusConfig struct {
	URL           string `yaml:"url" toml:"url"`
	Embedded      bool   `yaml:"embedded" toml:"embedded"`
	Host          string `yaml:"host" toml:"host"`
	Port          int    `yaml:"port" toml:"port"`
	SubjectPrefix string `yaml:"subject_prefix" toml:"subject_prefix"`
}

// ServiceConfig holds settings for the query service.
type ServiceConfig struct {
	LogPath         string        `yaml:"log_path" toml:"log_path"`
	Watch           bool          `yaml:"watch" toml:"watch"`
	QueueGroup      string        `yaml:"queue_group" toml:"queue_group"`
	Debounce        time.Duration `yaml:"debounce" toml:"debounce"`
	PublishFindings bool          `yaml:"publish_findings" toml:"publish_findings"` // publish each answered query as a finding
	DedupWindow     time.Duration `yaml:"dedup_window" toml:"dedup_window"`         // suppress identical findings; 0 disables
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// DefaultConfig returns a Config that works without a file.
func DefaultConfig() *Config {
	return &Config{
		Ingest: IngestConfig{
			Policy: "lenient",
			Header: "auto",
		},
		Analysis: AnalysisConfig{
			AlertLimit: 10,
		},
		Bus: BusConfig{
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			Host:          "127.0.0.1",
			Port:          4222,
			SubjectPrefix: "forensec",
		},
		Service: ServiceConfig{
			Watch:       true,
			QueueGroup:  "forensec",
			Debounce:    250 * time.Millisecond,
			DedupWindow: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML or TOML file, falling back to
// defaults when path is empty or does not exist. Environment overrides are
// applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := decodeConfig(path, data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeConfig(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnv overrides settings from FORENSEC_* variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("FORENSEC_NATS_URL"); v != "" {
		cfg.Bus.URL = v
	}
	if v := os.Getenv("FORENSEC_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FORENSEC_LOG_PATH"); v != "" {
		cfg.Service.LogPath = v
	}
	if v := os.Getenv("FORENSEC_STRICT"); v != "" {
		if strict, err := strconv.ParseBool(v); err == nil {
			if strict {
				cfg.Ingest.Policy = "strict"
			} else {
				cfg.Ingest.Policy = "lenient"
			}
		}
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := ingest.ParsePolicy(c.Ingest.Policy); err != nil {
		return fmt.Errorf("ingest.policy: %w", err)
	}
	if _, err := ingest.ParseHeaderMode(c.Ingest.Header); err != nil {
		return fmt.Errorf("ingest.header: %w", err)
	}
	return nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// IngestOptions converts the ingest section into loader options.
func (c *Config) IngestOptions() ingest.Options {
	policy, _ := ingest.ParsePolicy(c.Ingest.Policy)
	header, _ := ingest.ParseHeaderMode(c.Ingest.Header)
	return ingest.Options{Policy: policy, Header: header}
}

// LogLevel returns the parsed log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}
