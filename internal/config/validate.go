package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateDirectory(); err != nil {
		return err
	}
	if err := c.validateTranslator(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if c.Catalog.BaseURL == "" {
		return errors.New("catalog.base_url must be set")
	}
	if err := validateURL(c.Catalog.BaseURL); err != nil {
		return fmt.Errorf("catalog.base_url: %w", err)
	}
	return nil
}

func (c *Config) validateDirectory() error {
	if c.Directory.AgentsURL == "" {
		return errors.New("directory.agents_url must be set")
	}
	if err := validateURL(c.Directory.AgentsURL); err != nil {
		return fmt.Errorf("directory.agents_url: %w", err)
	}
	if c.Directory.OrgSearchURL != "" {
		if err := validateURL(c.Directory.OrgSearchURL); err != nil {
			return fmt.Errorf("directory.org_search_url: %w", err)
		}
	}
	return nil
}

func (c *Config) validateTranslator() error {
	for _, lang := range c.Translator.TargetLanguages {
		if lang == "" {
			return errors.New("translator.target_languages must not contain empty codes")
		}
		if lang == "en" {
			return errors.New("translator.target_languages must not include the English seed language")
		}
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

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
