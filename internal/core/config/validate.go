package config

import (
	"fmt"
	"net/url"

	"github.com/hay-kot/criterio"
)

// Validate performs structural validation of the configuration.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		criterio.Run("log_level", c.LogLevel, isLogLevel),
		criterio.Run("remote.base_url", c.Remote.BaseURL, isOptionalURL),
		c.Engine.validate(),
	)
}

func (e EngineConfig) validate() error {
	return criterio.ValidateStruct(
		criterio.Run("engine.line_mode_threshold", e.LineModeThreshold, isNonNegative),
		criterio.Run("engine.cache_capacity", e.CacheCapacity, isNonNegative),
		criterio.Run("engine.min_changed_range_length", e.MinChangedRangeLength, isNonNegative),
		criterio.Run("engine.max_changed_range_length", e.MaxChangedRangeLength, isNonNegative),
		criterio.Run("engine.retry_attempts", e.RetryAttempts, isNonNegative),
		validateRangeBounds(e.MinChangedRangeLength, e.MaxChangedRangeLength),
	)
}

func isLogLevel(level string) error {
	switch level {
	case "", "trace", "debug", "info", "warn", "error", "fatal":
		return nil
	}
	return fmt.Errorf("unknown log level %q", level)
}

func isOptionalURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url must be http or https, got %q", u.Scheme)
	}
	return nil
}

func isNonNegative(n int) error {
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateRangeBounds(minLen, maxLen int) error {
	if maxLen > 0 && minLen > maxLen {
		return criterio.NewFieldErrors("engine.max_changed_range_length",
			fmt.Errorf("must be >= min_changed_range_length (%d), got %d", minLen, maxLen))
	}
	return nil
}
