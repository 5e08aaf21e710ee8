// Package config handles configuration loading and validation for redline.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the engine configuration.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	LogFile  string       `yaml:"log_file"`
	Remote   RemoteConfig `yaml:"remote"`
	Engine   EngineConfig `yaml:"engine"`
}

// RemoteConfig points at the analysis backend.
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	// AuthToken is a static token for CLI use; interactive hosts supply
	// their own token source.
	AuthToken string        `yaml:"auth_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

// EngineConfig tunes the recalculation engine.
type EngineConfig struct {
	// LineModeThreshold is the document size (bytes) at which diffing
	// switches from byte-wise to line-wise trimming.
	LineModeThreshold int `yaml:"line_mode_threshold"`

	CacheCapacity int           `yaml:"cache_capacity"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	EnablePositionUpdates       bool `yaml:"enable_position_updates"`
	EnableInvalidation          bool `yaml:"enable_invalidation"`
	EnableNewSuggestionRequests bool `yaml:"enable_new_suggestion_requests"`
	MinChangedRangeLength       int  `yaml:"min_changed_range_length"`
	MaxChangedRangeLength       int  `yaml:"max_changed_range_length"`

	DebounceWindow time.Duration `yaml:"debounce_window"`
	CosmeticDelay  time.Duration `yaml:"cosmetic_delay"`
	AdvanceDelay   time.Duration `yaml:"advance_delay"`

	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  time.Duration `yaml:"retry_max_delay"`
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Remote: RemoteConfig{
			Timeout: 10 * time.Second,
		},
		Engine: EngineConfig{
			LineModeThreshold:           10_000,
			CacheCapacity:               50,
			CacheTTL:                    3 * time.Minute,
			EnablePositionUpdates:       true,
			EnableInvalidation:          true,
			EnableNewSuggestionRequests: true,
			MinChangedRangeLength:       3,
			MaxChangedRangeLength:       2000,
			DebounceWindow:              250 * time.Millisecond,
			CosmeticDelay:               150 * time.Millisecond,
			AdvanceDelay:                300 * time.Millisecond,
			RetryAttempts:               3,
			RetryBaseDelay:              100 * time.Millisecond,
			RetryMaxDelay:               2 * time.Second,
		},
	}
}

// Load reads the config file at path, merged over the defaults. A missing
// file is not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
