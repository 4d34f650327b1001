package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/fruitsalade/silosync/internal/faults"
)

const (
	envPrefix         = "SILOSYNC_"
	maxConfigFileSize = 1024 * 1024 // 1MB
)

// DefaultPath returns ~/.config/silosync/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "silosync", "config.yaml"), nil
}

// Load reads configuration with this precedence, highest first:
//  1. SILOSYNC_* environment variables
//  2. the YAML file at path
//  3. Default()
//
// An empty path uses DefaultPath and tolerates a missing file. An explicit
// path must exist. Unreadable or invalid input is reported as a
// faults.Validation error.
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix:
//
//	SILOSYNC_SERVER_BASE_URL   -> server.base_url
//	SILOSYNC_SEARCH_PAGE_SIZE  -> search.page_size
//	SILOSYNC_S3_PRESIGN_EXPIRY -> s3.presign_expiry
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	content, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, invalid(fmt.Errorf("failed to load config file %s: %w", path, err))
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, invalid(err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, invalid(fmt.Errorf("failed to unmarshal config: %w", err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// invalid marks a configuration input problem as a validation error.
func invalid(err error) error {
	return &faults.Error{Kind: faults.Validation, Op: "load config", Cause: err}
}

func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}
