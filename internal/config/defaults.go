package config

const (
	defaultDataDir              = "~/.local/share/dcatwiz/data"
	defaultLogDir               = "~/.local/share/dcatwiz/logs"
	defaultAPIBind              = "127.0.0.1:7743"
	defaultCatalogBaseURL       = "https://input.i14y.admin.ch/api"
	defaultCatalogTimeout       = 30
	defaultAgentsURL            = "https://input.i14y.admin.ch/api/Agent"
	defaultOrgSearchURL         = "https://www.staatskalender.admin.ch/api/search/organizations"
	defaultDirectoryCacheTTL    = 3600
	defaultDirectoryTimeout     = 10
	defaultGeneratorBaseURL     = "https://api.openai.com/v1/chat/completions"
	defaultGeneratorModel       = "gpt-4o-mini"
	defaultGeneratorTimeout     = 60
	defaultTranslatorBaseURL    = "https://api-free.deepl.com/v2/translate"
	defaultTranslatorTimeout    = 30
	defaultWorkers              = 4
	defaultJobRetentionMinutes  = 60
	defaultBlobRetentionHours   = 2
	defaultSessionTTLMinutes    = 120
	defaultSessionMaxEntries    = 64
	defaultHousekeepingInterval = 300
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// defaultTargetLanguages are the translation targets beyond the English seed.
var defaultTargetLanguages = []string{"de", "fr", "it"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Catalog: Catalog{
			BaseURL:        defaultCatalogBaseURL,
			RequestTimeout: defaultCatalogTimeout,
		},
		Directory: Directory{
			AgentsURL:      defaultAgentsURL,
			OrgSearchURL:   defaultOrgSearchURL,
			CacheTTL:       defaultDirectoryCacheTTL,
			RequestTimeout: defaultDirectoryTimeout,
		},
		Generator: Generator{
			BaseURL:        defaultGeneratorBaseURL,
			Model:          defaultGeneratorModel,
			TimeoutSeconds: defaultGeneratorTimeout,
		},
		Translator: Translator{
			BaseURL:         defaultTranslatorBaseURL,
			TargetLanguages: append([]string(nil), defaultTargetLanguages...),
			TimeoutSeconds:  defaultTranslatorTimeout,
		},
		Workflow: Workflow{
			Workers:              defaultWorkers,
			JobRetentionMinutes:  defaultJobRetentionMinutes,
			BlobRetentionHours:   defaultBlobRetentionHours,
			SessionTTLMinutes:    defaultSessionTTLMinutes,
			SessionMaxEntries:    defaultSessionMaxEntries,
			HousekeepingInterval: defaultHousekeepingInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
