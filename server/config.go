// Package server assembles the relay and the reference signature registry
// into one HTTP service.
package server

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SIGRELAY_ADDR.
const EnvPrefix = "SIGRELAY"

// Config holds the relay service settings.
type Config struct {
	Addr     string `mapstructure:"addr"`
	LogLevel string `mapstructure:"log_level"`

	// Bearer auth for /api. Empty token and secret disable auth.
	Token     string `mapstructure:"token"`
	JWTSecret string `mapstructure:"jwt_secret"`

	StorageBaseURL string   `mapstructure:"storage_base_url"`
	AllowedHosts   []string `mapstructure:"allowed_hosts"`
	MaxBytes       int64    `mapstructure:"max_bytes"`

	// Registry is served only when DBDriver is set.
	DBDriver    string `mapstructure:"db_driver"`
	DBDSN       string `mapstructure:"db_dsn"`
	BlobBackend string `mapstructure:"blob_backend"`
	BlobDir     string `mapstructure:"blob_dir"`
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3Endpoint  string `mapstructure:"s3_endpoint"`
	S3Prefix    string `mapstructure:"s3_prefix"`
}

// DefaultConfig serves the registry from a local sqlite file.
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8090",
		LogLevel:    "info",
		MaxBytes:    10 << 20,
		DBDriver:    "sqlite",
		DBDSN:       "sigrelay.db",
		BlobBackend: "fs",
		BlobDir:     "uploads",
		S3Region:    "us-east-1",
	}
}

// Validate checks combinations the service cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 << 20
	}
	c.BlobBackend = strings.ToLower(c.BlobBackend)
	if c.DBDriver == "" {
		return nil
	}
	switch c.BlobBackend {
	case "fs":
		if c.BlobDir == "" {
			return errors.New("blob_dir is required for the fs blob backend")
		}
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("s3_bucket is required for the s3 blob backend")
		}
	default:
		return fmt.Errorf("unknown blob_backend %q", c.BlobBackend)
	}
	return nil
}

// LoadConfig reads path (optional) and SIGRELAY_* environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("token", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("storage_base_url", "")
	v.SetDefault("allowed_hosts", []string{})
	v.SetDefault("max_bytes", cfg.MaxBytes)
	v.SetDefault("db_driver", cfg.DBDriver)
	v.SetDefault("db_dsn", cfg.DBDSN)
	v.SetDefault("blob_backend", cfg.BlobBackend)
	v.SetDefault("blob_dir", cfg.BlobDir)
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_region", cfg.S3Region)
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_prefix", "")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return cfg, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, err
		}
	}
	if err := v.Unmarshal(cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decode config: %w", err)
	}
	// comma separated when set from the environment
	if len(cfg.AllowedHosts) == 1 && strings.Contains(cfg.AllowedHosts[0], ",") {
		cfg.AllowedHosts = strings.Split(cfg.AllowedHosts[0], ",")
	}
	return cfg, cfg.Validate()
}
