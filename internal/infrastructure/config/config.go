// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv("")
//	dbPath := cfg.Storage.DatabasePath
//	threshold := cfg.Reconciliation.AutoApplyThreshold
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the entire application configuration
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Storage        StorageConfig        `yaml:"storage"`
	OpenAI         OpenAIConfig         `yaml:"openai"`
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Observability  ObservabilityConfig  `yaml:"observability"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// OpenAIConfig holds the optional category-hint provider configuration.
// An empty API key disables the external hint entirely.
type OpenAIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// ReconciliationConfig holds the tunable matching and categorization
// thresholds. Defaults mirror production-calibrated values.
type ReconciliationConfig struct {
	// AutoApplyThreshold is the score above which a match is applied
	// without human confirmation.
	AutoApplyThreshold float64 `yaml:"auto_apply_threshold"`

	// ReviewThreshold separates MEDIUM from LOW confidence tiers.
	ReviewThreshold float64 `yaml:"review_threshold"`

	// ScoreFloor is the minimum combined score below which no
	// suggestion is produced at all.
	ScoreFloor float64 `yaml:"score_floor"`

	// CategoryConfidence is the minimum resolver confidence before a
	// category is persisted automatically.
	CategoryConfidence float64 `yaml:"category_confidence"`

	// FuzzyVendorThreshold is the minimum vendor similarity for the
	// fuzzy history strategy.
	FuzzyVendorThreshold float64 `yaml:"fuzzy_vendor_threshold"`

	// MaxTransactions caps how many transactions a single batch run
	// processes. 0 means no cap.
	MaxTransactions int `yaml:"max_transactions"`

	// Industry is passed to the external hint provider as context.
	Industry string `yaml:"industry"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${OPENAI_API_KEY})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnvInt("RECONCILE_API_PORT", 8080),
		},
		Storage: StorageConfig{
			DatabasePath: getEnv("RECONCILE_DB_PATH", "reconcile.db"),
		},
		OpenAI: OpenAIConfig{
			APIKey: os.Getenv("OPENAI_API_KEY"),
			Model:  getEnv("OPENAI_MODEL", "gpt-4o"),
		},
		Reconciliation: ReconciliationConfig{
			AutoApplyThreshold: getEnvFloat("RECONCILE_AUTO_APPLY_THRESHOLD", 0.85),
			MaxTransactions:    getEnvInt("RECONCILE_MAX_TRANSACTIONS", 50),
			Industry:           os.Getenv("RECONCILE_INDUSTRY"),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}

	cfg.applyDefaults()
	return cfg
}

// LoadOrEnv loads the config file if a path is given and falls back to
// environment variables otherwise.
func LoadOrEnv(path string) (*Config, error) {
	if path == "" {
		return LoadFromEnv(), nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills in zero-valued thresholds so a partial YAML file
// still yields a usable configuration.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "reconcile.db"
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.Reconciliation.AutoApplyThreshold == 0 {
		c.Reconciliation.AutoApplyThreshold = 0.85
	}
	if c.Reconciliation.ReviewThreshold == 0 {
		c.Reconciliation.ReviewThreshold = 0.65
	}
	if c.Reconciliation.ScoreFloor == 0 {
		c.Reconciliation.ScoreFloor = 0.4
	}
	if c.Reconciliation.CategoryConfidence == 0 {
		c.Reconciliation.CategoryConfidence = 0.7
	}
	if c.Reconciliation.FuzzyVendorThreshold == 0 {
		c.Reconciliation.FuzzyVendorThreshold = 0.8
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvFloat(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}
