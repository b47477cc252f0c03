package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeDirectory()
	c.normalizeGenerator()
	c.normalizeTranslator()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.RequestTimeout <= 0 {
		c.Catalog.RequestTimeout = defaultCatalogTimeout
	}
}

func (c *Config) normalizeDirectory() {
	c.Directory.AgentsURL = strings.TrimSpace(c.Directory.AgentsURL)
	c.Directory.OrgSearchURL = strings.TrimSpace(c.Directory.OrgSearchURL)
	if c.Directory.CacheTTL <= 0 {
		c.Directory.CacheTTL = defaultDirectoryCacheTTL
	}
	if c.Directory.RequestTimeout <= 0 {
		c.Directory.RequestTimeout = defaultDirectoryTimeout
	}
}

func (c *Config) normalizeGenerator() {
	if c.Generator.APIKey == "" {
		c.Generator.APIKey = os.Getenv("DCATWIZ_GENERATOR_API_KEY")
	}
	c.Generator.BaseURL = strings.TrimSpace(c.Generator.BaseURL)
	c.Generator.Model = strings.TrimSpace(c.Generator.Model)
	if c.Generator.TimeoutSeconds <= 0 {
		c.Generator.TimeoutSeconds = defaultGeneratorTimeout
	}
}

func (c *Config) normalizeTranslator() {
	if c.Translator.APIKey == "" {
		c.Translator.APIKey = os.Getenv("DCATWIZ_TRANSLATOR_API_KEY")
	}
	c.Translator.BaseURL = strings.TrimSpace(c.Translator.BaseURL)
	if len(c.Translator.TargetLanguages) == 0 {
		c.Translator.TargetLanguages = append([]string(nil), defaultTargetLanguages...)
	}
	for i, lang := range c.Translator.TargetLanguages {
		c.Translator.TargetLanguages[i] = strings.ToLower(strings.TrimSpace(lang))
	}
	if c.Translator.TimeoutSeconds <= 0 {
		c.Translator.TimeoutSeconds = defaultTranslatorTimeout
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.Workers <= 0 {
		c.Workflow.Workers = defaultWorkers
	}
	if c.Workflow.JobRetentionMinutes <= 0 {
		c.Workflow.JobRetentionMinutes = defaultJobRetentionMinutes
	}
	if c.Workflow.BlobRetentionHours <= 0 {
		c.Workflow.BlobRetentionHours = defaultBlobRetentionHours
	}
	if c.Workflow.SessionTTLMinutes <= 0 {
		c.Workflow.SessionTTLMinutes = defaultSessionTTLMinutes
	}
	if c.Workflow.SessionMaxEntries <= 0 {
		c.Workflow.SessionMaxEntries = defaultSessionMaxEntries
	}
	if c.Workflow.HousekeepingInterval <= 0 {
		c.Workflow.HousekeepingInterval = defaultHousekeepingInterval
	}
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
}
