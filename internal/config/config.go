// Package config handles configuration loading for cotlens.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	CFTC     CFTCConfig     `mapstructure:"cftc"     yaml:"cftc"     json:"cftc"`
	API      APIConfig      `mapstructure:"api"      yaml:"api"      json:"api"`
	Cache    CacheConfig    `mapstructure:"cache"    yaml:"cache"    json:"cache"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis" json:"analysis"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"  json:"logging"`
}

// CFTCConfig holds settings for the CFTC Socrata API client.
// AppToken is excluded from JSON so the config endpoint never leaks it.
type CFTCConfig struct {
	// AppToken is the Socrata application token. Optional: without it the
	// client runs unauthenticated and is subject to stricter throttling.
	AppToken string `mapstructure:"app_token"  yaml:"app_token"  json:"-"`
	BaseURL  string `mapstructure:"base_url"   yaml:"base_url"   json:"base_url"`
	// TimeoutSec bounds a single fetch call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	// RowLimit caps the number of rows requested per query.
	RowLimit int `mapstructure:"row_limit"   yaml:"row_limit"   json:"row_limit"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
}

// CacheConfig holds the session result cache settings.
type CacheConfig struct {
	TTLSec int `mapstructure:"ttl_sec" yaml:"ttl_sec" json:"ttl_sec"`
}

// AnalysisConfig holds transformer defaults.
type AnalysisConfig struct {
	// SeasonalYears is the default seasonal lookback in years.
	SeasonalYears int `mapstructure:"seasonal_years" yaml:"seasonal_years" json:"seasonal_years"`
	// MomentumWeeks is the default momentum lookback window.
	MomentumWeeks int `mapstructure:"momentum_weeks" yaml:"momentum_weeks" json:"momentum_weeks"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.cotlens/config.yaml (home directory)
//  3. /etc/cotlens/config.yaml (system)
//
// Environment variables override config file values.
// Format: COTLENS_<SECTION>_<KEY>, e.g., COTLENS_CFTC_APP_TOKEN
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".cotlens"))
	v.AddConfigPath("/etc/cotlens")

	v.SetEnvPrefix("COTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("COTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// CFTC defaults. The 1h cache TTL matches the weekly report cadence:
	// data only changes once a week, but re-checks within a session are cheap.
	v.SetDefault("cftc.base_url", "https://publicreporting.cftc.gov")
	v.SetDefault("cftc.timeout_sec", 30)
	v.SetDefault("cftc.row_limit", 3000)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// Cache defaults
	v.SetDefault("cache.ttl_sec", 3600)

	// Analysis defaults
	v.SetDefault("analysis.seasonal_years", 5)
	v.SetDefault("analysis.momentum_weeks", 13)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
// SODA_APP_TOKEN is the conventional Socrata variable name and is honored as
// a fallback.
func overrideFromEnv(cfg *Config) {
	if tok := os.Getenv("COTLENS_CFTC_APP_TOKEN"); tok != "" {
		cfg.CFTC.AppToken = tok
	}
	if cfg.CFTC.AppToken == "" {
		if tok := os.Getenv("SODA_APP_TOKEN"); tok != "" {
			cfg.CFTC.AppToken = tok
		}
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
