package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	NPI       NPIConfig       `yaml:"npi" mapstructure:"npi"`
	Web       WebConfig       `yaml:"web" mapstructure:"web"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	Notion    NotionConfig    `yaml:"notion" mapstructure:"notion"`
	Reconcile ReconcileConfig `yaml:"reconcile" mapstructure:"reconcile"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Intake    IntakeConfig    `yaml:"intake" mapstructure:"intake"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// NPIConfig holds NPI registry API settings.
type NPIConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// WebConfig configures practice-website scraping.
type WebConfig struct {
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// AnthropicConfig holds Anthropic API settings for document extraction.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
}

// NotionConfig holds Notion API credentials and the review queue database ID.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	ReviewDB string `yaml:"review_db" mapstructure:"review_db"`
}

// ReconcileConfig configures validation and quality assessment.
type ReconcileConfig struct {
	SourceTimeoutSecs   int     `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
}

// BatchConfig configures batch validation runs.
type BatchConfig struct {
	Concurrency   int  `yaml:"concurrency" mapstructure:"concurrency"`
	ProgressEvery int  `yaml:"progress_every" mapstructure:"progress_every"`
	EnrichFirst   bool `yaml:"enrich_first" mapstructure:"enrich_first"`
}

// IntakeConfig configures roster import and synthetic data generation.
type IntakeConfig struct {
	DownloadDir        string  `yaml:"download_dir" mapstructure:"download_dir"`
	SyntheticErrorRate float64 `yaml:"synthetic_error_rate" mapstructure:"synthetic_error_rate"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "providers.db")
	v.SetDefault("npi.base_url", "https://npiregistry.cms.hhs.gov/api/")
	v.SetDefault("npi.rate_limit", 10.0)
	v.SetDefault("web.rate_limit", 2.0)
	v.SetDefault("web.timeout_secs", 10)
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("reconcile.source_timeout_secs", 10)
	v.SetDefault("reconcile.confidence_threshold", 0.80)
	v.SetDefault("batch.concurrency", 5)
	v.SetDefault("batch.progress_every", 10)
	v.SetDefault("intake.download_dir", "/tmp/directory-cli")
	v.SetDefault("intake.synthetic_error_rate", 0.2)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that configuration required for the given mode is present.
// Modes: "validate" (batch validation), "review" (Notion review queue),
// "extract" (document extraction), "serve" (HTTP API).
func (c *Config) Validate(mode string) error {
	var problems []string

	// Bounds that apply to every mode.
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50 {
		problems = append(problems, "batch.concurrency must be between 1 and 50")
	}
	if c.Reconcile.ConfidenceThreshold < 0 || c.Reconcile.ConfidenceThreshold > 1 {
		problems = append(problems, "reconcile.confidence_threshold must be between 0 and 1")
	}

	switch mode {
	case "validate":
		if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required for the postgres driver")
		}
	case "review":
		if c.Notion.Token == "" {
			problems = append(problems, "notion.token is required")
		}
		if c.Notion.ReviewDB == "" {
			problems = append(problems, "notion.review_db is required")
		}
	case "extract":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
