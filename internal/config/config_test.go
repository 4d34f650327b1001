package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fruitsalade/silosync/internal/faults"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  base_url: https://api.example.com/v3
  timeout: 15s
credentials:
  hostname: acme
  username: jane
search:
  page_size: 100
  ignore_case: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.BaseURL != "https://api.example.com/v3" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.Timeout != 15*time.Second {
		t.Errorf("timeout = %v", cfg.Server.Timeout)
	}
	if cfg.Search.PageSize != 100 || !cfg.Search.IgnoreCase {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Search.AssetField != "filename" || cfg.Search.MaxDepth != 64 {
		t.Errorf("defaults not applied: %+v", cfg.Search)
	}
	if cfg.S3.PresignExpiry != time.Hour {
		t.Errorf("presign_expiry = %v", cfg.S3.PresignExpiry)
	}
	if err := cfg.RequireServer(); err != nil {
		t.Errorf("RequireServer: %v", err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "search:\n  page_size: 100\n")
	t.Setenv("SILOSYNC_SEARCH_PAGE_SIZE", "25")
	t.Setenv("SILOSYNC_SERVER_BASE_URL", "https://env.example.com")
	t.Setenv("SILOSYNC_S3_PRESIGN_EXPIRY", "10m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.PageSize != 25 {
		t.Errorf("page_size = %d, want 25", cfg.Search.PageSize)
	}
	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("base_url = %q", cfg.Server.BaseURL)
	}
	if cfg.S3.PresignExpiry != 10*time.Minute {
		t.Errorf("presign_expiry = %v", cfg.S3.PresignExpiry)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
	if !faults.Is(err, faults.Validation) {
		t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.Validation)
	}
}

func TestLoad_UserCache(t *testing.T) {
	cfg, err := Load(writeConfig(t, "search:\n  user_cache_size: 128\n  user_cache_ttl: 10m\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.UserCacheSize != 128 || cfg.Search.UserCacheTTL != 10*time.Minute {
		t.Errorf("search = %+v", cfg.Search)
	}
}

func TestLoad_DefaultPathMissingIsFine(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"page size", "search:\n  page_size: 500\n", "page_size"},
		{"asset field", "search:\n  asset_field: size\n", "asset_field"},
		{"report sink", "report:\n  sink: s3\n", "report.sink"},
		{"log format", "logging:\n  format: xml\n", "logging.format"},
		{"user cache", "search:\n  user_cache_size: -1\n", "user_cache_size"},
		{"bad yaml", "search: [\n", "failed to load config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
			if !faults.Is(err, faults.Validation) {
				t.Errorf("kind = %s, want %s", faults.KindOf(err), faults.Validation)
			}
		})
	}
}

func TestRequireServer(t *testing.T) {
	cfg := Default()
	if err := cfg.RequireServer(); !faults.Is(err, faults.Validation) {
		t.Errorf("err = %v, want validation error without base_url", err)
	}
	cfg.Server.BaseURL = "ftp://example.com"
	cfg.Credentials = CredentialsConfig{Hostname: "acme", Username: "jane"}
	if err := cfg.RequireServer(); err == nil {
		t.Error("expected error for non-http base_url")
	}
}

func TestCredentialsStringRedacts(t *testing.T) {
	c := CredentialsConfig{Hostname: "acme", Username: "jane", Password: "hunter2"}
	if strings.Contains(c.String(), "hunter2") {
		t.Errorf("String() = %q leaks the password", c.String())
	}
}

func TestServerRetry(t *testing.T) {
	s := Default().Server
	s.RetryAttempts = 5
	r := s.Retry()
	if r.MaxAttempts != 5 || r.InitialWait != 200*time.Millisecond {
		t.Errorf("retry = %+v", r)
	}
}
