package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/soocke/sigdesk-go/domain/transparency"
)

// EnvPrefix prefixes environment overrides, e.g. SIGDESK_API_URL or
// SIGDESK_TRANSPARENCY_WHITE_THRESHOLD.
const EnvPrefix = "SIGDESK"

// Config holds runtime configuration of the signature desk.
// Fields may be loaded from a JSON or YAML file and overridden by environment
// variables and command-line flags.
type Config struct {
	Debug    bool   `json:"debug" mapstructure:"debug"`
	LogLevel string `json:"log_level" mapstructure:"log_level"`
	DarkMode bool   `json:"dark_mode" mapstructure:"dark_mode"`

	// Backend endpoints
	APIURL         string `json:"api_url" mapstructure:"api_url"`
	StorageBaseURL string `json:"storage_base_url" mapstructure:"storage_base_url"`
	RelayURL       string `json:"relay_url" mapstructure:"relay_url"`
	Token          string `json:"token" mapstructure:"token"`

	// Processing
	Transparency     transparency.Settings `json:"transparency" mapstructure:"transparency"`
	AutoCrop         bool                  `json:"auto_crop" mapstructure:"auto_crop"`
	FetchConcurrency int                   `json:"fetch_concurrency" mapstructure:"fetch_concurrency"`
	CacheSize        int                   `json:"cache_size" mapstructure:"cache_size"`
	MaxImageBytes    int64                 `json:"max_image_bytes" mapstructure:"max_image_bytes"`

	// Person whose signatures are loaded on start
	NPP string `json:"npp" mapstructure:"npp"`

	// Screen capture rectangle used as a signature source
	SelectionX int `json:"selection_x" mapstructure:"selection_x"`
	SelectionY int `json:"selection_y" mapstructure:"selection_y"`
	SelectionW int `json:"selection_w" mapstructure:"selection_w"`
	SelectionH int `json:"selection_h" mapstructure:"selection_h"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:            false,
		LogLevel:         "info",
		APIURL:           "http://localhost:8090/api",
		StorageBaseURL:   "",
		RelayURL:         "http://localhost:8090/relay",
		Transparency:     transparency.DefaultSettings(),
		AutoCrop:         true,
		FetchConcurrency: 4,
		CacheSize:        64,
		MaxImageBytes:    10 << 20,
	}
}

// Validate clamps/normalizes values to safe ranges. An error wrapping
// transparency.ErrInvertedThresholds means the thresholds were reset and the
// config is still usable.
func (c *Config) Validate() error {
	adjusted := c.Transparency.Validate()
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.FetchConcurrency > 32 {
		c.FetchConcurrency = 32
	}
	if c.CacheSize < 0 {
		c.CacheSize = 0
	}
	if c.MaxImageBytes <= 0 {
		c.MaxImageBytes = 10 << 20
	}
	if c.SelectionW < 0 || c.SelectionH < 0 {
		c.SelectionW, c.SelectionH = 0, 0
	}
	if c.RelayURL == "" {
		return errors.New("relay_url is required")
	}
	return adjusted
}

// HasSelection reports whether a capture rectangle was persisted.
func (c *Config) HasSelection() bool { return c.SelectionW > 0 && c.SelectionH > 0 }

func defaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("debug", cfg.Debug)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("dark_mode", cfg.DarkMode)
	v.SetDefault("api_url", cfg.APIURL)
	v.SetDefault("storage_base_url", cfg.StorageBaseURL)
	v.SetDefault("relay_url", cfg.RelayURL)
	v.SetDefault("token", cfg.Token)
	v.SetDefault("transparency.white_threshold", cfg.Transparency.White)
	v.SetDefault("transparency.black_threshold", cfg.Transparency.Black)
	v.SetDefault("transparency.advanced", cfg.Transparency.Advanced)
	v.SetDefault("auto_crop", cfg.AutoCrop)
	v.SetDefault("fetch_concurrency", cfg.FetchConcurrency)
	v.SetDefault("cache_size", cfg.CacheSize)
	v.SetDefault("max_image_bytes", cfg.MaxImageBytes)
	v.SetDefault("npp", cfg.NPP)
	v.SetDefault("selection_x", cfg.SelectionX)
	v.SetDefault("selection_y", cfg.SelectionY)
	v.SetDefault("selection_w", cfg.SelectionW)
	v.SetDefault("selection_h", cfg.SelectionH)
}

// Load reads configuration from path (JSON or YAML by extension) and applies
// SIGDESK_* environment overrides. A missing file yields defaults plus env. On a
// parse error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := viper.New()
	defaults(v, cfg)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
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
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil && !errors.Is(err, transparency.ErrInvertedThresholds) {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
