package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImages(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Workers < 0 {
		return errors.New("workers must be >= 0 (0 means one worker per CPU)")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.SourcePath) == "" {
		return errors.New("source_path must be set")
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return errors.New("output_path must be set")
	}
	if c.SourcePath == c.OutputPath {
		return errors.New("source_path and output_path cannot be the same directory")
	}
	return nil
}

func (c *Config) validateImages() error {
	if len(c.ImageSizes) == 0 {
		return errors.New("image_sizes must define at least one size class")
	}
	for name, max := range c.ImageSizes {
		if strings.TrimSpace(name) == "" {
			return errors.New("image_sizes keys must be non-empty size-class names")
		}
		if max <= 0 {
			return fmt.Errorf("image_sizes.%s must be a positive pixel dimension", name)
		}
	}
	if c.JPGQuality < 1 || c.JPGQuality > 100 {
		return errors.New("jpg_quality must be between 1 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unsupported value %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("log_format: unsupported value %q", c.LogFormat)
	}
	return nil
}
