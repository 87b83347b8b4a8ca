package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
backend:
  type: clickhouse
pricing:
  default_coverage: 0.9
`

func TestLoadAppliesLoggingDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" || cfg.Logging.Output != "stdout" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	body := `
environment: test
backend:
  type: postgres
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}

func TestLoadRejectsCoverageOutOfRange(t *testing.T) {
	body := `
environment: test
backend:
  type: kafka
pricing:
  default_coverage: 1.5
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for coverage >= 1")
	}
}

func TestLoadRejectsFloorAboveCeiling(t *testing.T) {
	body := `
environment: test
backend:
  type: clickhouse
pricing:
  floor: 300
  ceiling: 200
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for floor above ceiling")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.Type != "kafka" {
		t.Fatalf("backend = %q", cfg.Backend.Type)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
	if !cfg.Redis.Enabled || cfg.Redis.Addr != "redis:6379" {
		t.Fatalf("redis = %+v", cfg.Redis)
	}
}
