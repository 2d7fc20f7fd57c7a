package config

import (
	"errors"
	"fmt"
	"regexp"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateReaper(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateQuota() error {
	if err := ensurePositiveMap(map[string]int{
		"quota.daily_limit": c.Quota.DailyLimit,
	}); err != nil {
		return err
	}
	if _, err := c.QuotaLocation(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.timeout_seconds": c.Fetch.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Fetch.URLPattern != "" {
		if _, err := regexp.Compile(c.Fetch.URLPattern); err != nil {
			return fmt.Errorf("fetch.url_pattern: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTranscode() error {
	return ensurePositiveMap(map[string]int{
		"transcode.bitrate_kbps":    c.Transcode.BitrateKbps,
		"transcode.timeout_seconds": c.Transcode.TimeoutSeconds,
	})
}

func (c *Config) validateTranscription() error {
	if err := ensurePositiveMap(map[string]int{
		"transcription.timeout_seconds": c.Transcription.TimeoutSeconds,
	}); err != nil {
		return err
	}
	if c.Transcription.NumSpeakers < 0 || c.Transcription.NumSpeakers > 32 {
		return errors.New("transcription.num_speakers must be between 0 and 32")
	}
	return nil
}

func (c *Config) validateReaper() error {
	return ensurePositiveMap(map[string]int{
		"reaper.interval_seconds": c.Reaper.IntervalSeconds,
		"reaper.ttl_seconds":      c.Reaper.TTLSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
