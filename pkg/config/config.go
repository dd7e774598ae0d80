// Package config loads environment-driven settings for the CLI. CLI flags
// take precedence over the environment; the environment takes precedence
// over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config aggregates every environment-configurable setting.
type Config struct {
	// Service selects the sync backend: "s3" or "gdrive".
	Service string `env:"COMFYVN_SYNC_SERVICE" envDefault:"s3"`

	// CacheDir is the manifest store root. Defaults to
	// ~/.cache/cloudsync when empty.
	CacheDir string `env:"COMFYVN_SYNC_CACHE"`

	Vault VaultConfig `envPrefix:"COMFYVN_SECRETS_"`
	S3    S3Config    `envPrefix:"COMFYVN_S3_"`
	Drive DriveConfig `envPrefix:"COMFYVN_DRIVE_"`
}

// VaultConfig locates and tunes the secrets vault. The passphrase itself is
// read from COMFYVN_SECRETS_KEY by the vault package, never stored here.
type VaultConfig struct {
	Path       string `env:"PATH"`
	Iterations int    `env:"KDF_ITERATIONS" envDefault:"390000"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"5"`
}

// S3Config configures the object-storage backend.
type S3Config struct {
	Bucket      string `env:"BUCKET"`
	Prefix      string `env:"PREFIX"`
	Region      string `env:"REGION"`
	Profile     string `env:"PROFILE"`
	EndpointURL string `env:"ENDPOINT_URL"`
}

// DriveConfig configures the folder-based drive backend.
type DriveConfig struct {
	ParentID         string   `env:"PARENT_ID"`
	ManifestParentID string   `env:"MANIFEST_PARENT_ID"`
	Scopes           []string `env:"SCOPES" envSeparator:","`
}

// Load parses the environment and fills in path defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		cfg.CacheDir = filepath.Join(base, "cloudsync")
	}
	if cfg.Vault.Path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		cfg.Vault.Path = filepath.Join(home, ".comfyvn", "secrets.vault")
	}
	return cfg, nil
}
