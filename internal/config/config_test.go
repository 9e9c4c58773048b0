package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.DBDriver != "sqlite" || cfg.DBDSN != "stash.sqlite3" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.LogLevel != slog.LevelInfo || cfg.CacheTTL != 5*time.Minute || cfg.RedisAddr != "" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	file := filepath.Join(dir, "stash.yaml")
	os.WriteFile(file, []byte("addr: :9000\ndb:\n  dsn: from-file.sqlite3\nlog:\n  level: warn\n"), 0o644)
	os.WriteFile(".env", []byte("STASH_REDIS_ADDR=localhost:6379\n"), 0o644)
	t.Cleanup(func() { os.Unsetenv("STASH_REDIS_ADDR") })
	t.Setenv("STASH_DB_DSN", "from-env.sqlite3")
	t.Setenv("STASH_CACHE_TTL", "30s")

	cfg, err := Load(file, map[string]any{KeyAddr: ":7000"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Addr != ":7000" {
		t.Errorf("override should win, got %q", cfg.Addr)
	}
	if cfg.DBDSN != "from-env.sqlite3" {
		t.Errorf("environment should beat the file, got %q", cfg.DBDSN)
	}
	if cfg.LogLevel != slog.LevelWarn {
		t.Errorf("expected level from file, got %v", cfg.LogLevel)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis address from .env, got %q", cfg.RedisAddr)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected 30s ttl, got %v", cfg.CacheTTL)
	}
}

func TestInvalid(t *testing.T) {
	t.Chdir(t.TempDir())

	if _, err := Load("", map[string]any{KeyLogLevel: "loud"}); err == nil {
		t.Error("expected error for unknown log level")
	}
	if _, err := Load("missing.yaml", nil); err == nil {
		t.Error("expected error for missing config file")
	}
	if _, err := Load("", map[string]any{KeyCacheTTL: "-1s"}); err == nil {
		t.Error("expected error for negative ttl")
	}
}
