package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeEXIFFields()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.SourcePath, err = expandPath(c.SourcePath); err != nil {
		return fmt.Errorf("source_path: %w", err)
	}
	if c.OutputPath, err = expandPath(c.OutputPath); err != nil {
		return fmt.Errorf("output_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeEXIFFields() {
	if len(c.EXIFFields) == 0 {
		c.EXIFFields = make([]string, len(defaultEXIFFields))
		copy(c.EXIFFields, defaultEXIFFields)
		return
	}
	fields := c.EXIFFields[:0]
	for _, field := range c.EXIFFields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	c.EXIFFields = fields
}

func (c *Config) normalizeLogging() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}
}
