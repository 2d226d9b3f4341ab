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

// Package ai provides abstractions for the AI services used by kgextract.
//
// This package defines interfaces for AI operations including text embeddings
// and entity extraction. The extraction and graph packages depend on these
// abstractions rather than on a concrete provider.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - EntityExtractor: Extracts entities and relationships from a chunk
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Provider Errors
//
// Failures from a provider are reported with the error types in errors.go.
// They embed errtag.Base so the extraction pipeline can prefix them with the
// chunk that failed while keeping the HTTP status code and response body:
//
//   - ProviderError and ConnectionError can be rebuilt from their arguments
//   - APIStatusError and its refinements are rewritten in place
//   - ResponseParseError is wrapped
//
// IsRetryable reports which failures are worth another attempt.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "Hello world")
//	found, err := provider.EntityExtractor().Extract(ctx, chunk)
package ai
