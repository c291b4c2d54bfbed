package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("LLM_MODEL", "")

	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port: %q", cfg.Port)
	}
	if cfg.SessionTTL != time.Hour || cfg.SessionSweepInterval != 10*time.Minute {
		t.Fatalf("unexpected session timings: %v %v", cfg.SessionTTL, cfg.SessionSweepInterval)
	}
	if cfg.ObjectStoreType != "local" || cfg.SessionStore != "memory" {
		t.Fatalf("unexpected stores: %q %q", cfg.ObjectStoreType, cfg.SessionStore)
	}
	if cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model: %q", cfg.LLMModel)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeYAML(t, `
port: 9000
llm_model: gpt-file
session_ttl: 30m
cors_allow_origins:
  - https://a.example
  - https://b.example
redis_db: 2
minio_use_ssl: true
`)
	t.Setenv("PORT", "")
	t.Setenv("CORS_ALLOW_ORIGINS", "")
	t.Setenv("SESSION_TTL", "")
	t.Setenv("REDIS_DB", "")
	t.Setenv("MINIO_USE_SSL", "")
	t.Setenv("LLM_MODEL", "gpt-env")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Port != "9000" {
		t.Fatalf("expected port from file, got %q", cfg.Port)
	}
	if cfg.LLMModel != "gpt-env" {
		t.Fatalf("expected env to win, got %q", cfg.LLMModel)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected ttl: %v", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowOrigin) != 2 || cfg.CORSAllowOrigin[1] != "https://b.example" {
		t.Fatalf("unexpected origins: %v", cfg.CORSAllowOrigin)
	}
	if cfg.RedisDB != 2 || !cfg.MinIOUseSSL {
		t.Fatalf("unexpected typed values: %d %v", cfg.RedisDB, cfg.MinIOUseSSL)
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "20")
	cfg, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.FetchTimeout != 20*time.Second {
		t.Fatalf("unexpected fetch timeout: %v", cfg.FetchTimeout)
	}
}

func TestLoadRejectsIncompleteStores(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"s3 without bucket", map[string]string{"OBJECT_STORE": "s3", "S3_BUCKET": ""}},
		{"minio without endpoint", map[string]string{"OBJECT_STORE": "minio", "MINIO_ENDPOINT": ""}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadFile(""); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	path := writeYAML(t, "redis:\n  addr: x\n")
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected error for nested mapping")
	}
}

func TestDBPoolFromFile(t *testing.T) {
	path := writeYAML(t, "db_max_open_conns: 4\ndb_conn_max_lifetime: 20m\n")
	for _, k := range []string{"DB_MAX_OPEN_CONNS", "DB_MAX_IDLE_CONNS", "DB_CONN_MAX_LIFETIME", "DB_CONN_MAX_IDLE_TIME", "DB_PING_TIMEOUT"} {
		t.Setenv(k, "")
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := DBPool{MaxOpenConns: 4, ConnMaxLifetime: 20 * time.Minute}
	if cfg.DBPool != want {
		t.Fatalf("expected %+v, got %+v", want, cfg.DBPool)
	}
}
