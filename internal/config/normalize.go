package config

import (
	"fmt"
	"os"
	"strings"

	"callscribe/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeSTT(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeSTT() error {
	c.STT.BaseURL = strings.TrimRight(strings.TrimSpace(c.STT.BaseURL), "/")
	if c.STT.APIKey == "" {
		c.STT.APIKey = strings.TrimSpace(os.Getenv("CALLSCRIBE_STT_API_KEY"))
	}

	primary, err := language.Normalize(c.STT.PrimaryLanguage)
	if err != nil {
		return fmt.Errorf("stt.primary_language: %w", err)
	}
	c.STT.PrimaryLanguage = primary

	normalized := make([]string, 0, len(c.STT.AlternateLanguages))
	for _, alt := range c.STT.AlternateLanguages {
		tag, err := language.Normalize(alt)
		if err != nil {
			return fmt.Errorf("stt.alternate_languages: %w", err)
		}
		if tag == c.STT.PrimaryLanguage {
			continue
		}
		normalized = append(normalized, tag)
	}
	c.STT.AlternateLanguages = normalized
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Fallback.Strategy = strings.ToLower(strings.TrimSpace(c.Fallback.Strategy))
	if c.Fallback.Strategy == "" {
		c.Fallback.Strategy = defaultFallbackStrategy
	}
}
