package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Env(t *testing.T) {
	t.Setenv("GAUGE_PORT", "9090")
	t.Setenv("GAUGE_LOG_LEVEL", "debug")
	t.Setenv("GAUGE_RETRIEVAL_K", "5")
	t.Setenv("GAUGE_HISTORY_TYPE", "none")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Retrieval.K != 5 {
		t.Errorf("Retrieval.K = %d, want 5", cfg.Retrieval.K)
	}
	if cfg.History.Type != "none" {
		t.Errorf("History.Type = %s, want none", cfg.History.Type)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
host: "127.0.0.1"
port: 8888
retrieval:
  k: 3
eval:
  workers: 4
embedding:
  provider: hashing
  dimensions: 64
report:
  json: out/report.json
history:
  type: sqlite
  sqlite_path: /tmp/gauge.db
log:
  level: warn
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %s, want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8888 {
		t.Errorf("Port = %d, want 8888", cfg.Port)
	}
	if cfg.Retrieval.K != 3 {
		t.Errorf("Retrieval.K = %d, want 3", cfg.Retrieval.K)
	}
	if cfg.Eval.Workers != 4 {
		t.Errorf("Eval.Workers = %d, want 4", cfg.Eval.Workers)
	}
	if cfg.Embedding.Provider != "hashing" || cfg.Embedding.Dimensions != 64 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if cfg.Report.JSON != "out/report.json" {
		t.Errorf("Report.JSON = %s, want out/report.json", cfg.Report.JSON)
	}
	if cfg.History.Type != "sqlite" || cfg.History.SQLitePath != "/tmp/gauge.db" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %s, want warn", cfg.Log.Level)
	}
	// untouched sections keep defaults
	if cfg.Bus.KafkaTopic != "eval.run.completed" {
		t.Errorf("Bus.KafkaTopic = %s, want default", cfg.Bus.KafkaTopic)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("retrieval:\n  k: 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GAUGE_RETRIEVAL_K", "7")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Retrieval.K != 7 {
		t.Errorf("Retrieval.K = %d, want 7", cfg.Retrieval.K)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() with missing file should fail")
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"invalid port", func(c *Config) { c.Port = 0 }, true},
		{"zero k", func(c *Config) { c.Retrieval.K = 0 }, true},
		{"zero workers", func(c *Config) { c.Eval.Workers = 0 }, true},
		{"negative max samples", func(c *Config) { c.Eval.MaxSamples = -1 }, true},
		{"invalid embedding provider", func(c *Config) { c.Embedding.Provider = "openai" }, true},
		{"invalid history type", func(c *Config) { c.History.Type = "mongo" }, true},
		{"file history without dir", func(c *Config) { c.History.Dir = "" }, true},
		{"no history without dir", func(c *Config) { c.History.Type = "none"; c.History.Dir = "" }, false},
		{"invalid bus type", func(c *Config) { c.Bus.Type = "nats" }, true},
		{"kafka without brokers", func(c *Config) { c.Bus.Type = "kafka" }, true},
		{"kafka with brokers", func(c *Config) { c.Bus.Type = "kafka"; c.Bus.KafkaBrokers = "k1:9092" }, false},
		{"invalid log level", func(c *Config) { c.Log.Level = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.Log.Format = "xml" }, true},
		{"negative rate limit", func(c *Config) { c.Security.RateLimit = -1 }, true},
		{"bad metrics path", func(c *Config) { c.Observability.MetricsPath = "metrics" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidation_CollectsAll(t *testing.T) {
	cfg := Defaults()
	cfg.Port = 0
	cfg.Retrieval.K = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "port") || !strings.Contains(msg, "retrieval.k") {
		t.Errorf("Validate() should report every violation, got: %s", msg)
	}
}

func TestParams(t *testing.T) {
	cfg := Defaults()
	cfg.Retrieval.K = 4

	params := cfg.Params()
	if params[ParamRetrievalK] != 4 {
		t.Errorf("Params()[retrieval.k] = %v, want 4", params[ParamRetrievalK])
	}
}

func TestKafkaBrokers(t *testing.T) {
	cfg := Defaults()
	cfg.Bus.KafkaBrokers = "a:9092, b:9092,,"

	got := cfg.KafkaBrokers()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("KafkaBrokers() = %v", got)
	}
}

func TestAddress(t *testing.T) {
	cfg := &Config{Host: "localhost", Port: 8080}

	if addr := cfg.Address(); addr != "localhost:8080" {
		t.Errorf("Address() = %s, want localhost:8080", addr)
	}
}

func TestIsDevelopment(t *testing.T) {
	cfg := &Config{}

	cfg.Log.Level = "debug"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for debug level")
	}

	cfg.Log.Level = "info"
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for info level")
	}
}
