package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("QUEUE_MODE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Translation.CacheTTL != 24*time.Hour {
		t.Errorf("expected cache TTL 24h, got %v", cfg.Translation.CacheTTL)
	}
	if cfg.Translation.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", cfg.Translation.Temperature)
	}
	if cfg.Translation.MaxAttempts != 3 {
		t.Errorf("expected max attempts 3, got %d", cfg.Translation.MaxAttempts)
	}
	if cfg.Queue.Mode != "asynq" {
		t.Errorf("expected queue mode asynq, got %q", cfg.Queue.Mode)
	}
	if cfg.Storage.Driver != "local" {
		t.Errorf("expected local storage driver, got %q", cfg.Storage.Driver)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("QUEUE_MODE", "INLINE")
	t.Setenv("LLM_BASE_URL", "http://llm.local/v1/")
	t.Setenv("TRANSLATION_CACHE_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Queue.Mode != "inline" {
		t.Errorf("expected queue mode to be lower-cased to inline, got %q", cfg.Queue.Mode)
	}
	if cfg.Translation.BaseURL != "http://llm.local/v1" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.Translation.BaseURL)
	}
	if cfg.Translation.CacheTTL != 2*time.Hour {
		t.Errorf("expected cache TTL 2h, got %v", cfg.Translation.CacheTTL)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected CORS origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestReadSecretFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admin_key")
	if err := os.WriteFile(path, []byte("s3cret\n"), 0600); err != nil {
		t.Fatalf("failed to write secret file: %v", err)
	}

	t.Setenv("ADMIN_KEY", "")
	t.Setenv("ADMIN_KEY_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.AdminKey != "s3cret" {
		t.Errorf("expected admin key from file, got %q", cfg.Server.AdminKey)
	}
}
