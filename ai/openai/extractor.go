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


package openai

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/retry"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const maxParseAttempts = 3

// TokenCounter returns the number of tokens text occupies for model.
type TokenCounter func(model, text string) int

// EntityExtractor implements ai.EntityExtractor using OpenAI-compatible chat APIs.
type EntityExtractor struct {
	client         llms.Model
	model          string
	entityTypes    []string
	temperature    float64
	maxGleaning    int
	maxInputTokens int
	maxRetries     int
	retryBaseDelay time.Duration
	countTokens    TokenCounter
	logger         *slog.Logger
}

// extractionResponse is the wrapper structure for the LLM's JSON response.
type extractionResponse struct {
	Entities      []core.ExtractedEntity `json:"entities"`
	Relationships []relationshipPayload  `json:"relationships"`
}

// relationshipPayload mirrors core.ExtractedRelationship but tolerates
// keywords given as a comma separated string.
type relationshipPayload struct {
	Source      string      `json:"source_entity"`
	Target      string      `json:"target_entity"`
	Keywords    keywordList `json:"relationship_keywords"`
	Description string      `json:"relationship_description"`
	Weight      float64     `json:"relationship_strength"`
}

type keywordList []string

func (k *keywordList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*k = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return err
	}
	*k = nil
	for _, kw := range strings.Split(joined, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			*k = append(*k, kw)
		}
	}
	return nil
}

// newEntityExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEntityExtractor(config *ai.Config) (*EntityExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ClassifierHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ClassifierModel),
	)
	if err != nil {
		return nil, err
	}

	return newEntityExtractorWithModel(client, config), nil
}

// newEntityExtractorWithModel builds an extractor around an existing model.
// config must already be validated.
func newEntityExtractorWithModel(client llms.Model, config *ai.Config) *EntityExtractor {
	return &EntityExtractor{
		client:         client,
		model:          config.ClassifierModel,
		entityTypes:    config.EntityTypes,
		temperature:    config.Temperature,
		maxGleaning:    config.MaxGleaningRounds,
		maxInputTokens: config.MaxInputTokens,
		maxRetries:     config.MaxRetries,
		retryBaseDelay: config.RetryBaseDelay,
		countTokens:    llms.CountTokens,
		logger:         slog.Default().With("component", "openai-extractor"),
	}
}

// NewEntityExtractor creates a new entity extractor using the provided configuration.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(config *ai.Config) (ai.EntityExtractor, error) {
	return newEntityExtractor(config)
}

// Extract asks the model for the entities and relationships in chunk, then
// runs up to MaxGleaningRounds follow-up rounds for anything it missed.
func (e *EntityExtractor) Extract(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
	history := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, buildSystemPrompt(e.entityTypes)),
		llms.TextParts(llms.ChatMessageTypeHuman, buildUserPrompt(chunk.Content)),
	}

	first, raw, err := e.complete(ctx, history)
	if err != nil {
		return nil, err
	}

	merged := newAccumulator()
	merged.add(first)

	for round := 1; round <= e.maxGleaning; round++ {
		history = append(history,
			llms.TextParts(llms.ChatMessageTypeAI, raw),
			llms.TextParts(llms.ChatMessageTypeHuman, gleaningPrompt),
		)
		if e.maxInputTokens > 0 {
			if tokens := e.historyTokens(history); tokens > e.maxInputTokens {
				e.logger.Debug("skipping gleaning round",
					"chunk", chunk.ID,
					"round", round,
					"tokens", tokens,
					"max", e.maxInputTokens)
				break
			}
		}

		gleaned, gleanedRaw, err := e.complete(ctx, history)
		if err != nil {
			var parseErr *ai.ResponseParseError
			if errors.As(err, &parseErr) {
				e.logger.Warn("discarding unparseable gleaning round", "chunk", chunk.ID, "round", round, "err", err)
				break
			}
			return nil, err
		}
		if gleaned.empty() {
			break
		}
		merged.add(gleaned)
		raw = gleanedRaw
	}

	result := merged.extraction(chunk.ID)
	e.logger.Debug("extracted entities",
		"chunk", chunk.ID,
		"entities", len(result.Entities),
		"relationships", len(result.Relationships))
	return result, nil
}

// complete sends messages and parses the reply, regenerating up to
// maxParseAttempts times when the reply is not valid JSON.
func (e *EntityExtractor) complete(ctx context.Context, messages []llms.MessageContent) (*extractionResponse, string, error) {
	var lastErr error
	for attempt := 0; attempt < maxParseAttempts; attempt++ {
		responseText, err := e.generate(ctx, messages)
		if err != nil {
			return nil, "", err
		}
		if responseText == "" {
			return &extractionResponse{}, "", nil
		}

		var result extractionResponse
		cleaned := repairJSON(stripCodeFences(responseText))
		if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
			lastErr = &ai.ResponseParseError{Raw: responseText, Cause: err}
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		return &result, cleaned, nil
	}

	e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
	return nil, "", lastErr
}

// generate performs one chat completion, retrying transient provider failures.
func (e *EntityExtractor) generate(ctx context.Context, messages []llms.MessageContent) (string, error) {
	var text string
	err := retry.WithBackoffIf(ctx, func() error {
		response, err := e.client.GenerateContent(ctx, messages,
			llms.WithTemperature(e.temperature),
			llms.WithJSONMode())
		if err != nil {
			return mapError(err)
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			text = ""
			return nil
		}
		text = response.Choices[0].Content
		return nil
	}, e.maxRetries, e.retryBaseDelay, ai.IsRetryable)
	if err != nil {
		e.logger.Error("failed to generate content", "err", err)
		return "", err
	}
	return text, nil
}

func (e *EntityExtractor) historyTokens(messages []llms.MessageContent) int {
	var sb strings.Builder
	for _, m := range messages {
		for _, part := range m.Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
				sb.WriteByte('\n')
			}
		}
	}
	return e.countTokens(e.model, sb.String())
}

func (r *extractionResponse) empty() bool {
	return len(r.Entities) == 0 && len(r.Relationships) == 0
}

// stripCodeFences removes markdown code fences if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
