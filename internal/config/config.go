// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// ParamRetrievalK is the parameter-map key for the default ranking cutoff.
const ParamRetrievalK = "retrieval.k"

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Host string `envconfig:"GAUGE_HOST" yaml:"host"`
	Port int    `envconfig:"GAUGE_PORT" yaml:"port"`

	// Retrieval metric defaults
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Evaluation run settings
	Eval EvalConfig `yaml:"eval"`

	// Embedding provider for semantic metrics
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Default report targets
	Report ReportConfig `yaml:"report"`

	// Run history storage
	History HistoryConfig `yaml:"history"`

	// Bus configuration
	Bus BusConfig `yaml:"bus"`

	// Logging configuration
	Log LogConfig `yaml:"log"`

	// Security configuration
	Security SecurityConfig `yaml:"security"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// RetrievalConfig holds ranking metric defaults.
type RetrievalConfig struct {
	// K is the cutoff used when a parametrized metric is requested bare.
	K int `envconfig:"GAUGE_RETRIEVAL_K" yaml:"k"`
}

// EvalConfig holds evaluation run settings.
type EvalConfig struct {
	Workers    int `envconfig:"GAUGE_EVAL_WORKERS" yaml:"workers"`         // 1 = sequential
	MaxSamples int `envconfig:"GAUGE_EVAL_MAX_SAMPLES" yaml:"max_samples"` // 0 = unlimited
}

// EmbeddingConfig selects the embedder behind semantic_similarity.
type EmbeddingConfig struct {
	Provider   string `envconfig:"GAUGE_EMBEDDING_PROVIDER" yaml:"provider"`
	Dimensions int    `envconfig:"GAUGE_EMBEDDING_DIMENSIONS" yaml:"dimensions"`
}

// ReportConfig holds default report target paths. Empty disables a target.
type ReportConfig struct {
	JSON string `envconfig:"GAUGE_REPORT_JSON" yaml:"json"`
	HTML string `envconfig:"GAUGE_REPORT_HTML" yaml:"html"`
	XLSX string `envconfig:"GAUGE_REPORT_XLSX" yaml:"xlsx"`
	CSV  string `envconfig:"GAUGE_REPORT_CSV" yaml:"csv"`
	// Dir is the root for report paths requested over HTTP.
	Dir string `envconfig:"GAUGE_REPORT_DIR" yaml:"dir"`
}

// HistoryConfig holds run history settings.
type HistoryConfig struct {
	Type       string `envconfig:"GAUGE_HISTORY_TYPE" yaml:"type"`
	Dir        string `envconfig:"GAUGE_HISTORY_DIR" yaml:"dir"`
	RedisURL   string `envconfig:"GAUGE_REDIS_URL" yaml:"redis_url"`
	SQLitePath string `envconfig:"GAUGE_SQLITE_PATH" yaml:"sqlite_path"`
	TTLHours   int    `envconfig:"GAUGE_HISTORY_TTL_HOURS" yaml:"ttl_hours"` // 0 = no expiry
}

// BusConfig holds event bus settings.
type BusConfig struct {
	Type         string `envconfig:"GAUGE_BUS_TYPE" yaml:"type"`
	KafkaBrokers string `envconfig:"GAUGE_KAFKA_BROKERS" yaml:"kafka_brokers"`
	KafkaTopic   string `envconfig:"GAUGE_KAFKA_TOPIC" yaml:"kafka_topic"`
	EventLog     string `envconfig:"GAUGE_EVENT_LOG" yaml:"event_log"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"GAUGE_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"GAUGE_LOG_FORMAT" yaml:"format"`
}

// SecurityConfig holds request limits for the HTTP API.
type SecurityConfig struct {
	RateLimit    float64 `envconfig:"GAUGE_RATE_LIMIT" yaml:"rate_limit"` // requests/sec per client, 0 = disabled
	MaxBatch     int     `envconfig:"GAUGE_MAX_BATCH" yaml:"max_batch"`
	MaxMetrics   int     `envconfig:"GAUGE_MAX_METRICS" yaml:"max_metrics"`
	MaxBodyBytes int64   `envconfig:"GAUGE_MAX_BODY_BYTES" yaml:"max_body_bytes"`
}

// ObservabilityConfig holds observability settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"GAUGE_METRICS_ENABLED" yaml:"metrics_enabled"`
	MetricsPath     string `envconfig:"GAUGE_METRICS_PATH" yaml:"metrics_path"`
	TracingEnabled  bool   `envconfig:"GAUGE_TRACING_ENABLED" yaml:"tracing_enabled"`
	TracingEndpoint string `envconfig:"GAUGE_TRACING_ENDPOINT" yaml:"tracing_endpoint"`
	ServiceName     string `envconfig:"GAUGE_SERVICE_NAME" yaml:"service_name"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config populated with default values.
func Defaults() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	cfg.Host = "0.0.0.0"
	cfg.Port = 8080

	cfg.Retrieval = RetrievalConfig{K: 10}

	cfg.Eval = EvalConfig{
		Workers:    1,
		MaxSamples: 0,
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   "none",
		Dimensions: 256,
	}

	cfg.Report = ReportConfig{
		Dir: "reports",
	}

	cfg.History = HistoryConfig{
		Type:       "file",
		Dir:        "runs",
		RedisURL:   "redis://localhost:6379",
		SQLitePath: "runs/history.db",
	}

	cfg.Bus = BusConfig{
		Type:       "memory",
		KafkaTopic: "eval.run.completed",
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}

	cfg.Security = SecurityConfig{
		RateLimit:    0,
		MaxBatch:     10000,
		MaxMetrics:   64,
		MaxBodyBytes: 32 << 20,
	}

	cfg.Observability = ObservabilityConfig{
		MetricsEnabled:  true,
		MetricsPath:     "/metrics",
		TracingEnabled:  false,
		TracingEndpoint: "localhost:4317",
		ServiceName:     "gauge",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}

	if c.Retrieval.K < 1 {
		errs = append(errs, "retrieval.k must be positive")
	}

	if c.Eval.Workers < 1 {
		errs = append(errs, "eval.workers must be at least 1")
	}
	if c.Eval.MaxSamples < 0 {
		errs = append(errs, "eval.max_samples must not be negative")
	}

	validProviders := map[string]bool{"none": true, "hashing": true}
	if !validProviders[c.Embedding.Provider] {
		errs = append(errs, fmt.Sprintf("invalid embedding provider: %s (must be none or hashing)", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 1 {
		errs = append(errs, "embedding.dimensions must be positive")
	}

	validHistory := map[string]bool{"none": true, "file": true, "redis": true, "sqlite": true}
	if !validHistory[c.History.Type] {
		errs = append(errs, fmt.Sprintf("invalid history type: %s (must be none, file, redis, or sqlite)", c.History.Type))
	}
	switch c.History.Type {
	case "file":
		if c.History.Dir == "" {
			errs = append(errs, "history.dir is required for file history")
		}
	case "redis":
		if c.History.RedisURL == "" {
			errs = append(errs, "history.redis_url is required for redis history")
		}
	case "sqlite":
		if c.History.SQLitePath == "" {
			errs = append(errs, "history.sqlite_path is required for sqlite history")
		}
	}
	if c.History.TTLHours < 0 {
		errs = append(errs, "history.ttl_hours must not be negative")
	}

	validBusTypes := map[string]bool{"memory": true, "kafka": true}
	if !validBusTypes[c.Bus.Type] {
		errs = append(errs, fmt.Sprintf("invalid bus type: %s (must be memory or kafka)", c.Bus.Type))
	}
	if c.Bus.Type == "kafka" && len(c.KafkaBrokers()) == 0 {
		errs = append(errs, "bus.kafka_brokers is required for kafka bus")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if c.Security.RateLimit < 0 {
		errs = append(errs, "security.rate_limit must not be negative")
	}
	if c.Security.MaxBatch < 1 {
		errs = append(errs, "security.max_batch must be positive")
	}
	if c.Security.MaxMetrics < 1 {
		errs = append(errs, "security.max_metrics must be positive")
	}

	if c.Observability.MetricsEnabled && !strings.HasPrefix(c.Observability.MetricsPath, "/") {
		errs = append(errs, "observability.metrics_path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Params returns the evaluation parameter map recorded with each run.
func (c *Config) Params() map[string]any {
	return map[string]any{
		ParamRetrievalK: c.Retrieval.K,
	}
}

// KafkaBrokers splits the comma-separated broker list.
func (c *Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.Bus.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// Address returns the server address.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Log.Level == "debug"
}
