package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable. Missing Notion credentials are
// not an error here: they may live in the settings store and are checked
// before the first API call.
func (c *Config) Validate() error {
	if err := c.validateNotion(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateDedup(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotion() error {
	parsed, err := url.Parse(c.Notion.BaseURL)
	if err != nil {
		return fmt.Errorf("notion.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("notion.base_url must be an http(s) url, got %q", c.Notion.BaseURL)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if c.Queue.MaxRetries > 20 {
		return errors.New("queue.max_retries must be 20 or less")
	}
	return nil
}

func (c *Config) validateDedup() error {
	if c.Dedup.FuzzyThreshold < 0 || c.Dedup.FuzzyThreshold > 1 {
		return errors.New("dedup.fuzzy_threshold must be between 0 and 1")
	}
	if c.Dedup.PageSize > 100 {
		return errors.New("dedup.page_size must be 100 or less")
	}
	return nil
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
