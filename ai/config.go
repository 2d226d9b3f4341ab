// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// Config holds configuration for AI service providers.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// ClassifierHost is the base URL for the entity extraction service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	ClassifierHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "embeddinggemma", "text-embedding-3-small"
	EmbeddingModel string

	// ClassifierModel is the model identifier to use for entity extraction.
	// Example: "qwen2.5:7b", "gpt-4o-mini"
	ClassifierModel string

	// APIKey is sent as the bearer token. Local servers accept "none".
	APIKey string

	// MaxGleaningRounds is the number of follow-up rounds asking the model
	// for entities it missed. Zero disables gleaning.
	// Default: 1
	MaxGleaningRounds int

	// MaxInputTokens caps the conversation size of a gleaning round.
	// Rounds that would exceed it are skipped. Zero means unlimited.
	// Default: 20480
	MaxInputTokens int

	// EntityTypes lists the entity categories the extractor may assign.
	EntityTypes []string

	// Temperature is the sampling temperature for extraction.
	Temperature float64

	// MaxRetries is the number of attempts for each provider call.
	// Default: 3
	MaxRetries int

	// RetryBaseDelay is the initial backoff between attempts.
	// Default: 500ms
	RetryBaseDelay time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithClassifierHost sets the extraction service host URL.
func WithClassifierHost(host string) ConfigOption {
	return func(c *Config) {
		c.ClassifierHost = host
	}
}

// WithHost sets both embedding and extraction hosts to the same URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
		c.ClassifierHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithClassifierModel sets the extraction model identifier.
func WithClassifierModel(model string) ConfigOption {
	return func(c *Config) {
		c.ClassifierModel = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxGleaningRounds sets the number of gleaning rounds.
func WithMaxGleaningRounds(rounds int) ConfigOption {
	return func(c *Config) {
		c.MaxGleaningRounds = rounds
	}
}

// WithMaxInputTokens sets the input token budget for gleaning.
func WithMaxInputTokens(tokens int) ConfigOption {
	return func(c *Config) {
		c.MaxInputTokens = tokens
	}
}

// WithEntityTypes sets the allowed entity types.
func WithEntityTypes(types ...string) ConfigOption {
	return func(c *Config) {
		c.EntityTypes = slices.Clone(types)
	}
}

// WithRetries sets the retry budget for provider calls.
func WithRetries(maxRetries int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryBaseDelay = baseDelay
	}
}

// DefaultConfig returns a Config with sensible defaults for local OpenAI-compatible services.
// By default, both embedding and extraction use the same host.
func DefaultConfig() *Config {
	defaultHost := "http://localhost:11434/v1"
	return &Config{
		EmbeddingHost:     defaultHost,
		ClassifierHost:    defaultHost,
		EmbeddingModel:    "embeddinggemma",
		ClassifierModel:   "qwen2.5:7b",
		APIKey:            "none",
		MaxGleaningRounds: 1,
		MaxInputTokens:    20480,
		EntityTypes:       slices.Clone(DefaultEntityTypes),
		Temperature:       0.0,
		MaxRetries:        3,
		RetryBaseDelay:    500 * time.Millisecond,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithHost("http://localhost:11434/v1"),
//	    WithMaxGleaningRounds(2),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to hosts if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	c.EmbeddingHost = normalizeHost(c.EmbeddingHost)
	c.ClassifierHost = normalizeHost(c.ClassifierHost)
	if c.APIKey == "" {
		c.APIKey = "none"
	}
	if len(c.EntityTypes) == 0 {
		c.EntityTypes = slices.Clone(DefaultEntityTypes)
	}
}

func normalizeHost(host string) string {
	if host == "" || strings.HasSuffix(host, "/v1") {
		return host
	}
	return strings.TrimSuffix(host, "/") + "/v1"
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return errors.New("ai config: EmbeddingHost is required")
	}
	if c.ClassifierHost == "" {
		return errors.New("ai config: ClassifierHost is required")
	}
	if c.EmbeddingModel == "" {
		return errors.New("ai config: EmbeddingModel is required")
	}
	if c.ClassifierModel == "" {
		return errors.New("ai config: ClassifierModel is required")
	}
	if c.MaxGleaningRounds < 0 {
		return errors.New("ai config: MaxGleaningRounds cannot be negative")
	}
	if c.MaxInputTokens < 0 {
		return errors.New("ai config: MaxInputTokens cannot be negative")
	}
	if c.MaxRetries < 1 {
		return errors.New("ai config: MaxRetries must be at least 1")
	}
	return nil
}
