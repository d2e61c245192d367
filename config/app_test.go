package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/revrec/store"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Engine.Threshold != 0.1 || cfg.Engine.TopN != 3 || cfg.Engine.Metric != "pearson" {
		t.Errorf("engine defaults = %+v", cfg.Engine)
	}
	if cfg.Cache.Backend != "none" {
		t.Errorf("cache backend = %q, want none", cfg.Cache.Backend)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("logging level = %q", cfg.Logging.Level)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeFile(t, "revrec.yaml", `
engine:
  threshold: 0.3
  top_n: 5
  metric: cosine
  memoize: true
cache:
  backend: memory
  ttl: 60
logging:
  level: debug
  format: console
`)
	t.Setenv("REVREC_ENGINE_TOP_N", "7")
	t.Setenv("REVREC_LOG_LEVEL", "warn")
	t.Setenv("REVREC_UNRELATED", "ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"threshold from file", cfg.Engine.Threshold, 0.3},
		{"metric from file", cfg.Engine.Metric, "cosine"},
		{"memoize from file", cfg.Engine.Memoize, true},
		{"top_n from env", cfg.Engine.TopN, 7},
		{"log level from env", cfg.Logging.Level, "warn"},
		{"log format from file", cfg.Logging.Format, "console"},
		{"cache backend from file", cfg.Cache.Backend, "memory"},
		{"key prefix default kept", cfg.Cache.KeyPrefix, "revrec"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown metric", "engine:\n  metric: jaccard\n"},
		{"zero top_n", "engine:\n  top_n: 0\n"},
		{"threshold out of range", "engine:\n  threshold: 1.5\n"},
		{"unknown cache backend", "cache:\n  backend: memcached\n"},
		{"redis without addr", "cache:\n  backend: redis\n  redis:\n    addr: \"\"\n"},
		{"bad log format", "logging:\n  format: xml\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, "bad.yaml", tt.yaml)); err == nil {
				t.Errorf("Load() should fail")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing file) should fail")
	}
}

func TestOpenCache(t *testing.T) {
	cfg := DefaultAppConfig()
	s, err := cfg.OpenCache(context.Background())
	if err != nil || s != nil {
		t.Fatalf("OpenCache(none) = %v, %v", s, err)
	}

	cfg.Cache.Backend = "memory"
	s, err = cfg.OpenCache(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if _, ok := s.(*store.MemoryStore); !ok {
		t.Errorf("OpenCache(memory) = %T", s)
	}
}

func TestRecommenderOptions_PipelineFile(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.PipelineFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.RecommenderOptions(context.Background()); err == nil {
		t.Error("RecommenderOptions() with missing pipeline file should fail")
	}

	cfg.PipelineFile = ""
	opts, err := cfg.RecommenderOptions(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(opts) != 6 {
		t.Errorf("RecommenderOptions() returned %d options, want 6", len(opts))
	}
}
