// Package config loads kgx settings from a YAML file and KGX_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/chunking"
	"github.com/spf13/viper"
)

const (
	defaultConfigDir  = ".kgx"
	defaultConfigFile = "config.yaml"
	localConfigFile   = "kgx.yaml"
	envPrefix         = "KGX"

	// DefaultConcurrencyLimit is the number of chunks extracted at once.
	DefaultConcurrencyLimit = 4
)

// Config is the application configuration.
type Config struct {
	AI         AIConfig         `mapstructure:"ai"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Storage    StorageConfig    `mapstructure:"storage"`
	LogLevel   string           `mapstructure:"log_level"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

// AIConfig configures the model provider.
type AIConfig struct {
	EmbeddingHost     string        `mapstructure:"embedding_host"`
	ClassifierHost    string        `mapstructure:"classifier_host"`
	EmbeddingModel    string        `mapstructure:"embedding_model"`
	ClassifierModel   string        `mapstructure:"classifier_model"`
	APIKey            string        `mapstructure:"api_key"`
	MaxGleaningRounds int           `mapstructure:"max_gleaning_rounds"`
	MaxInputTokens    int           `mapstructure:"max_input_tokens"`
	EntityTypes       []string      `mapstructure:"entity_types"`
	Temperature       float64       `mapstructure:"temperature"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBaseDelay    time.Duration `mapstructure:"retry_base_delay"`
}

// ExtractionConfig configures chunking and the extraction executor.
type ExtractionConfig struct {
	ConcurrencyLimit int `mapstructure:"concurrency_limit"`
	ChunkSize        int `mapstructure:"chunk_size"`
	ChunkOverlap     int `mapstructure:"chunk_overlap"`
}

// StorageConfig locates the graph database.
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// Load reads the configuration. When path is empty, $HOME/.kgx/config.yaml
// and then ./kgx.yaml are tried. A missing file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	file := path
	if file == "" {
		file = findConfigFile()
	}

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			file = ""
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = file

	return cfg, nil
}

// ProviderConfig converts the ai section into a normalized ai.Config.
func (c *Config) ProviderConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.AI.EmbeddingHost),
		ai.WithClassifierHost(c.AI.ClassifierHost),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithClassifierModel(c.AI.ClassifierModel),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithMaxGleaningRounds(c.AI.MaxGleaningRounds),
		ai.WithMaxInputTokens(c.AI.MaxInputTokens),
		ai.WithEntityTypes(c.AI.EntityTypes...),
		ai.WithRetries(c.AI.MaxRetries, c.AI.RetryBaseDelay),
	)
	cfg.Temperature = c.AI.Temperature
	cfg.Normalize()
	return cfg
}

func setDefaults(v *viper.Viper) {
	defaults := ai.DefaultConfig()
	v.SetDefault("ai.embedding_host", defaults.EmbeddingHost)
	v.SetDefault("ai.classifier_host", defaults.ClassifierHost)
	v.SetDefault("ai.embedding_model", defaults.EmbeddingModel)
	v.SetDefault("ai.classifier_model", defaults.ClassifierModel)
	v.SetDefault("ai.api_key", defaults.APIKey)
	v.SetDefault("ai.max_gleaning_rounds", defaults.MaxGleaningRounds)
	v.SetDefault("ai.max_input_tokens", defaults.MaxInputTokens)
	v.SetDefault("ai.entity_types", defaults.EntityTypes)
	v.SetDefault("ai.temperature", defaults.Temperature)
	v.SetDefault("ai.max_retries", defaults.MaxRetries)
	v.SetDefault("ai.retry_base_delay", defaults.RetryBaseDelay)

	v.SetDefault("extraction.concurrency_limit", DefaultConcurrencyLimit)
	v.SetDefault("extraction.chunk_size", chunking.DefaultSize)
	v.SetDefault("extraction.chunk_overlap", chunking.DefaultOverlap)

	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("log_level", "info")
}

// findConfigFile returns the first existing default config file.
func findConfigFile() string {
	var candidates []string
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, defaultConfigDir, defaultConfigFile))
	}
	candidates = append(candidates, localConfigFile)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(defaultConfigDir, "graph")
	}
	return filepath.Join(home, defaultConfigDir, "graph")
}
