// Package config loads silosync configuration from a YAML file and
// SILOSYNC_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fruitsalade/silosync/internal/faults"
	"github.com/fruitsalade/silosync/internal/logging"
	"github.com/fruitsalade/silosync/pkg/retry"
)

// Config holds all silosync configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Credentials CredentialsConfig `koanf:"credentials"`
	Search      SearchConfig      `koanf:"search"`
	Logging     LoggingConfig     `koanf:"logging"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	S3          S3Config          `koanf:"s3"`
	Report      ReportConfig      `koanf:"report"`
}

// ServerConfig describes the remote library endpoint.
type ServerConfig struct {
	BaseURL            string        `koanf:"base_url"`
	Timeout            time.Duration `koanf:"timeout"`
	InsecureSkipVerify bool          `koanf:"insecure_skip_verify"`
	RequestsPerSecond  float64       `koanf:"requests_per_second"` // 0 = unlimited
	Burst              int           `koanf:"burst"`
	RetryAttempts      int           `koanf:"retry_attempts"`
	RetryInitialWait   time.Duration `koanf:"retry_initial_wait"`
	RetryMaxWait       time.Duration `koanf:"retry_max_wait"`
}

// Retry returns the transport retry policy.
func (s ServerConfig) Retry() retry.Config {
	cfg := retry.DefaultConfig()
	if s.RetryAttempts > 0 {
		cfg.MaxAttempts = s.RetryAttempts
	}
	if s.RetryInitialWait > 0 {
		cfg.InitialWait = s.RetryInitialWait
	}
	if s.RetryMaxWait > 0 {
		cfg.MaxWait = s.RetryMaxWait
	}
	return cfg
}

// CredentialsConfig holds the login. Password may be left empty and
// prompted for.
type CredentialsConfig struct {
	Hostname string `koanf:"hostname"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
}

// String redacts the password.
func (c CredentialsConfig) String() string {
	pw := ""
	if c.Password != "" {
		pw = "****"
	}
	return fmt.Sprintf("{hostname:%s username:%s password:%s}", c.Hostname, c.Username, pw)
}

// SearchConfig tunes path resolution, paging and event search.
type SearchConfig struct {
	PageSize      int           `koanf:"page_size"`
	AssetField    string        `koanf:"asset_field"`
	IgnoreCase    bool          `koanf:"ignore_case"`
	MaxDepth      int           `koanf:"max_depth"`
	UserCacheSize int           `koanf:"user_cache_size"` // 0 = unbounded
	UserCacheTTL  time.Duration `koanf:"user_cache_ttl"`  // 0 = never expire
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Output string `koanf:"output"`
}

// Zap returns the logger configuration.
func (l LoggingConfig) Zap() logging.Config {
	return logging.Config{Level: l.Level, Format: l.Format, OutputPath: l.Output}
}

// MetricsConfig controls the metrics textfile written on exit.
type MetricsConfig struct {
	Textfile string `koanf:"textfile"`
}

// S3Config is used to presign s3:// asset sources.
type S3Config struct {
	Region        string        `koanf:"region"`
	Endpoint      string        `koanf:"endpoint"`
	AccessKey     string        `koanf:"access_key"`
	SecretKey     string        `koanf:"secret_key"`
	UsePathStyle  bool          `koanf:"use_path_style"`
	PresignExpiry time.Duration `koanf:"presign_expiry"`
}

// ReportConfig selects the inventory report sink.
type ReportConfig struct {
	Sink            string `koanf:"sink"` // csv or postgres
	Path            string `koanf:"path"`
	DatabaseURL     string `koanf:"database_url"`
	Recursive       bool   `koanf:"recursive"`
	IncludeMetadata bool   `koanf:"include_metadata"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Timeout:          60 * time.Second,
			RetryAttempts:    3,
			RetryInitialWait: 200 * time.Millisecond,
			RetryMaxWait:     5 * time.Second,
		},
		Search: SearchConfig{
			PageSize:   50,
			AssetField: "filename",
			MaxDepth:   64,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		S3: S3Config{
			Region:        "us-east-1",
			PresignExpiry: time.Hour,
		},
		Report: ReportConfig{
			Sink:            "csv",
			Path:            "report.csv",
			Recursive:       true,
			IncludeMetadata: true,
		},
	}
}

// Validate checks value ranges. It does not require the server to be set;
// see RequireServer.
func (c *Config) Validate() error {
	if c.Search.PageSize < 1 || c.Search.PageSize > 200 {
		return faults.Validationf("config", "search.page_size must be between 1 and 200, got %d", c.Search.PageSize)
	}
	switch c.Search.AssetField {
	case "filename", "title":
	default:
		return faults.Validationf("config", "search.asset_field must be filename or title, got %q", c.Search.AssetField)
	}
	if c.Search.MaxDepth < 1 {
		return faults.Validationf("config", "search.max_depth must be positive, got %d", c.Search.MaxDepth)
	}
	if c.Search.UserCacheSize < 0 || c.Search.UserCacheTTL < 0 {
		return faults.Validationf("config", "search.user_cache_size and search.user_cache_ttl must not be negative")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return faults.Validationf("config", "logging.format must be json or console, got %q", c.Logging.Format)
	}
	switch c.Report.Sink {
	case "csv", "postgres":
	default:
		return faults.Validationf("config", "report.sink must be csv or postgres, got %q", c.Report.Sink)
	}
	if c.Server.RequestsPerSecond < 0 {
		return faults.Validationf("config", "server.requests_per_second must not be negative")
	}
	return nil
}

// RequireServer checks the settings needed to talk to the remote.
func (c *Config) RequireServer() error {
	if c.Server.BaseURL == "" {
		return faults.Validationf("config", "server.base_url is required (SILOSYNC_SERVER_BASE_URL)")
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return faults.Validationf("config", "server.base_url must be an http(s) URL, got %q", c.Server.BaseURL)
	}
	if c.Credentials.Hostname == "" || c.Credentials.Username == "" {
		return faults.Validationf("config", "credentials.hostname and credentials.username are required")
	}
	return nil
}
