package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Store.Backend != StoreMemory || cfg.Dispatch.Mode != DispatchLocal {
		t.Errorf("expected in-process defaults, got store=%s dispatch=%s", cfg.Store.Backend, cfg.Dispatch.Mode)
	}
	if cfg.Collector.MaxRecords != 150 || cfg.Collector.MaxPages != 5 {
		t.Errorf("unexpected collector bounds: %+v", cfg.Collector)
	}
	if cfg.Limiter.Window != time.Minute || cfg.Limiter.MaxRequests != 5 {
		t.Errorf("unexpected limiter defaults: %+v", cfg.Limiter)
	}
	if cfg.Jobs.Retention != 24*time.Hour || cfg.Jobs.LockTTL != 10*time.Minute {
		t.Errorf("unexpected job defaults: %+v", cfg.Jobs)
	}
	if cfg.Text.Blocklist != nil {
		t.Errorf("expected empty blocklist, got %v", cfg.Text.Blocklist)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JOB_STORE", "Badger")
	t.Setenv("COLLECTOR_PAGE_DELAY", "250ms")
	t.Setenv("TEXT_BLOCKLIST", "spam, free coins ,")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.Backend != StoreBadger {
		t.Errorf("expected badger store, got %s", cfg.Store.Backend)
	}
	if cfg.Collector.PageDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms page delay, got %s", cfg.Collector.PageDelay)
	}
	if len(cfg.Text.Blocklist) != 2 || cfg.Text.Blocklist[1] != "free coins" {
		t.Errorf("unexpected blocklist %q", cfg.Text.Blocklist)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("API_PORT=9000\nCACHE_TTL=5m\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("expected file values, got port=%d ttl=%s", cfg.Server.Port, cfg.Cache.TTL)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := map[string]struct{ key, val, want string }{
		"unknown store":    {"JOB_STORE", "mongo", "JOB_STORE"},
		"unknown dispatch": {"DISPATCH_MODE", "kafka", "DISPATCH_MODE"},
		"zero pool":        {"WORKER_POOL_SIZE", "0", "WORKER_POOL_SIZE"},
		"provider no key":  {"SUMMARIZER_PROVIDER", "anthropic", "SUMMARIZER_API_KEY"},
		"amqp with memory": {"DISPATCH_MODE", "amqp", "JOB_STORE"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.env"))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
