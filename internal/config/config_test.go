package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("PORT", "")
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("API_BASE_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("expected listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.PublicCacheTTL != 5*time.Minute {
		t.Fatalf("expected 5m cache ttl, got %s", cfg.PublicCacheTTL)
	}
	if cfg.PreviewDebounce != 300*time.Millisecond {
		t.Fatalf("expected 300ms debounce, got %s", cfg.PreviewDebounce)
	}
}

func TestLoadFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.yaml")
	yaml := "api_base_url: https://api.example.edu/\nport: \"9000\"\npublic_cache_ttl: 1m\nsite_name: Green Valley\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("PORT", "")
	t.Setenv("API_BASE_URL", "")
	t.Setenv("SITE_NAME", "Env School")
	t.Setenv("PREVIEW_DEBOUNCE", "150ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.edu" {
		t.Fatalf("expected trimmed api base url from file, got %s", cfg.APIBaseURL)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("expected listen addr from file port, got %s", cfg.ListenAddr)
	}
	if cfg.PublicCacheTTL != time.Minute {
		t.Fatalf("expected 1m ttl from file, got %s", cfg.PublicCacheTTL)
	}
	if cfg.SiteName != "Env School" {
		t.Fatalf("expected env to override file, got %s", cfg.SiteName)
	}
	if cfg.PreviewDebounce != 150*time.Millisecond {
		t.Fatalf("expected 150ms debounce, got %s", cfg.PreviewDebounce)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("API_TIMEOUT", "soon")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid API_TIMEOUT")
	}
}
