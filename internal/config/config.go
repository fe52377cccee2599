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
	Store        StoreConfig        `yaml:"store" mapstructure:"store"`
	Schema       SchemaConfig       `yaml:"schema" mapstructure:"schema"`
	Ollama       OllamaConfig       `yaml:"ollama" mapstructure:"ollama"`
	Anthropic    AnthropicConfig    `yaml:"anthropic" mapstructure:"anthropic"`
	Cascade      CascadeConfig      `yaml:"cascade" mapstructure:"cascade"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator" mapstructure:"orchestrator"`
	Export       ExportConfig       `yaml:"export" mapstructure:"export"`
	FTP          FTPConfig          `yaml:"ftp" mapstructure:"ftp"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Log          LogConfig          `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the audit database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SchemaConfig points at the approved tag vocabulary.
type SchemaConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OllamaConfig holds local inference daemon settings for the primary and
// secondary tiers.
type OllamaConfig struct {
	BaseURL        string `yaml:"base_url" mapstructure:"base_url"`
	PrimaryModel   string `yaml:"primary_model" mapstructure:"primary_model"`
	SecondaryModel string `yaml:"secondary_model" mapstructure:"secondary_model"`
}

// AnthropicConfig holds hosted API settings for the tertiary and recovery
// tiers.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CascadeConfig tunes the fallback ladder.
type CascadeConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold" mapstructure:"confidence_threshold"`
	TierTimeoutSecs     int     `yaml:"tier_timeout_secs" mapstructure:"tier_timeout_secs"`
	RatePerSecond       float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	RateBurst           int     `yaml:"rate_burst" mapstructure:"rate_burst"`
}

// OrchestratorConfig controls the improvement loop.
type OrchestratorConfig struct {
	TargetAccuracy float64 `yaml:"target_accuracy" mapstructure:"target_accuracy"`
	MaxIterations  int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`
	BudgetSecs     int     `yaml:"budget_secs" mapstructure:"budget_secs"`
}

// ExportConfig configures run output.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// FTPConfig configures supplier catalog imports.
type FTPConfig struct {
	Username    string `yaml:"username" mapstructure:"username"`
	Password    string `yaml:"password" mapstructure:"password"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the read-only audit API.
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
	v.SetEnvPrefix("TAGGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "tagging_audit.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("schema.path", "approved_tags.json")
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.primary_model", "llama3.1:8b")
	v.SetDefault("ollama.secondary_model", "qwen2.5:14b")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("cascade.confidence_threshold", 0.7)
	v.SetDefault("cascade.tier_timeout_secs", 60)
	v.SetDefault("cascade.rate_per_second", 5)
	v.SetDefault("cascade.rate_burst", 10)
	v.SetDefault("orchestrator.target_accuracy", 0.90)
	v.SetDefault("orchestrator.max_iterations", 3)
	v.SetDefault("orchestrator.workers", 4)
	v.SetDefault("orchestrator.budget_secs", 0)
	v.SetDefault("export.dir", "output")
	v.SetDefault("ftp.username", "")
	v.SetDefault("ftp.password", "")
	v.SetDefault("ftp.timeout_secs", 30)
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
