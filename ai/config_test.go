package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:7b", cfg.ClassifierModel)
	assert.Equal(t, "none", cfg.APIKey)
	assert.Equal(t, 1, cfg.MaxGleaningRounds)
	assert.Equal(t, 20480, cfg.MaxInputTokens)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.RetryBaseDelay)
	assert.Equal(t, DefaultEntityTypes, cfg.EntityTypes)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()

		assert.NotNil(t, cfg)
		// Should have default values
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ClassifierHost)
		assert.Equal(t, 1, cfg.MaxGleaningRounds)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ClassifierHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithClassifierHost("http://classify:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://classify:9090/v1", cfg.ClassifierHost)
	})

	t.Run("with custom models", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithClassifierModel("gpt-4o-mini"),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ClassifierModel)
	})

	t.Run("with custom gleaning rounds", func(t *testing.T) {
		cfg := NewConfig(WithMaxGleaningRounds(3))

		assert.Equal(t, 3, cfg.MaxGleaningRounds)
	})

	t.Run("entity types are copied", func(t *testing.T) {
		types := []string{"person", "place"}
		cfg := NewConfig(WithEntityTypes(types...))
		types[0] = "changed"

		assert.Equal(t, []string{"person", "place"}, cfg.EntityTypes)
	})

	t.Run("default entity types are not shared", func(t *testing.T) {
		cfg := NewConfig()
		cfg.EntityTypes[0] = "changed"

		assert.NotEqual(t, "changed", DefaultEntityTypes[0])
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithHost("http://custom:8080/v1"),
			WithEmbeddingModel("custom-embed"),
			WithClassifierModel("custom-classify"),
			WithRetries(5, time.Second),
		)

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ClassifierHost)
		assert.Equal(t, "custom-embed", cfg.EmbeddingModel)
		assert.Equal(t, "custom-classify", cfg.ClassifierModel)
		assert.Equal(t, 5, cfg.MaxRetries)
		assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name               string
		embeddingHost      string
		classifierHost     string
		expectedEmbedding  string
		expectedClassifier string
	}{
		{
			name:               "already has /v1",
			embeddingHost:      "http://localhost:11434/v1",
			classifierHost:     "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "missing /v1",
			embeddingHost:      "http://localhost:11434",
			classifierHost:     "http://localhost:11434",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "has trailing slash",
			embeddingHost:      "http://localhost:11434/",
			classifierHost:     "http://localhost:11434/",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "has trailing slash and v1",
			embeddingHost:      "http://localhost:11434/v1",
			classifierHost:     "http://localhost:11434/v1",
			expectedEmbedding:  "http://localhost:11434/v1",
			expectedClassifier: "http://localhost:11434/v1",
		},
		{
			name:               "empty hosts",
			embeddingHost:      "",
			classifierHost:     "",
			expectedEmbedding:  "",
			expectedClassifier: "",
		},
		{
			name:               "different formats",
			embeddingHost:      "http://embed:8080",
			classifierHost:     "http://classify:9090/v1",
			expectedEmbedding:  "http://embed:8080/v1",
			expectedClassifier: "http://classify:9090/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				EmbeddingHost:  tt.embeddingHost,
				ClassifierHost: tt.classifierHost,
			}

			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedClassifier, cfg.ClassifierHost)
		})
	}
}

func validConfig() *Config {
	return &Config{
		EmbeddingHost:   "http://localhost:11434/v1",
		ClassifierHost:  "http://localhost:11434/v1",
		EmbeddingModel:  "embeddinggemma",
		ClassifierModel: "qwen2.5:7b",
		MaxRetries:      1,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing embedding host", mutate: func(c *Config) { c.EmbeddingHost = "" }, wantErr: "EmbeddingHost is required"},
		{name: "missing classifier host", mutate: func(c *Config) { c.ClassifierHost = "" }, wantErr: "ClassifierHost is required"},
		{name: "missing embedding model", mutate: func(c *Config) { c.EmbeddingModel = "" }, wantErr: "EmbeddingModel is required"},
		{name: "missing classifier model", mutate: func(c *Config) { c.ClassifierModel = "" }, wantErr: "ClassifierModel is required"},
		{name: "negative gleaning rounds", mutate: func(c *Config) { c.MaxGleaningRounds = -1 }, wantErr: "MaxGleaningRounds"},
		{name: "zero gleaning rounds", mutate: func(c *Config) { c.MaxGleaningRounds = 0 }},
		{name: "negative input tokens", mutate: func(c *Config) { c.MaxInputTokens = -1 }, wantErr: "MaxInputTokens"},
		{name: "zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }, wantErr: "MaxRetries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ai config: ")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("normalizes before checking", func(t *testing.T) {
		cfg := validConfig()
		cfg.EmbeddingHost = "http://localhost:11434/"

		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "none", cfg.APIKey)
		assert.Equal(t, DefaultEntityTypes, cfg.EntityTypes)
	})

	t.Run("defaults are valid", func(t *testing.T) {
		assert.NoError(t, NewConfig().Validate())
		assert.NoError(t, DefaultConfig().Validate())
	})
}

func TestConfigOptions(t *testing.T) {
	tests := []struct {
		name  string
		opt   ConfigOption
		check func(t *testing.T, c *Config)
	}{
		{
			name: "api key",
			opt:  WithAPIKey("sk-test"),
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "sk-test", c.APIKey)
			},
		},
		{
			name: "input token budget",
			opt:  WithMaxInputTokens(4096),
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 4096, c.MaxInputTokens)
			},
		},
		{
			name: "retries",
			opt:  WithRetries(7, 2*time.Second),
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 7, c.MaxRetries)
				assert.Equal(t, 2*time.Second, c.RetryBaseDelay)
			},
		},
		{
			name: "gleaning disabled",
			opt:  WithMaxGleaningRounds(0),
			check: func(t *testing.T, c *Config) {
				assert.Zero(t, c.MaxGleaningRounds)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.opt(cfg)
			tt.check(t, cfg)
		})
	}
}
