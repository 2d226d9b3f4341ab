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


package kgextract

import (
	"cmp"
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/ai/openai"
	"github.com/poiesic/kgextract/chunking"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/extraction"
	"github.com/poiesic/kgextract/graph"
	"github.com/poiesic/kgextract/reembed"
	"github.com/poiesic/kgextract/search"
	"github.com/poiesic/kgextract/storage"
	"github.com/poiesic/kgextract/storage/badger"
)

// Database ties a graph store to an AI provider.
type Database struct {
	backend          *badger.Backend
	entityRepo       *badger.EntityRepository
	relationshipRepo *badger.RelationshipRepository
	provider         ai.AIProvider
	logger           *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
	logger   *slog.Logger
}

// WithAIConfig sets the configuration of the OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider uses provider instead of building one from the AI config.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps the graph in memory; filePath is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithLogger sets the logger passed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// NewDatabase opens the graph stored at filePath.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if options.inMemory {
		filePath = ""
	}
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		// Create AI provider with configured settings
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Database{
		backend:          backend,
		entityRepo:       badger.NewEntityRepository(backend),
		relationshipRepo: badger.NewRelationshipRepository(backend),
		provider:         provider,
		logger:           options.logger,
	}, nil
}

// Close releases the provider and the store.
func (db *Database) Close() error {
	// Close AI provider first
	providerErr := db.provider.Close()
	if providerErr != nil {
		db.logger.Error("error closing AI provider", "err", providerErr)
	}

	backendErr := db.backend.Close()
	if backendErr != nil {
		db.logger.Error("error closing backend storage", "err", backendErr)
	}
	return errors.Join(providerErr, backendErr)
}

// EntityRepository returns the entity store.
func (db *Database) EntityRepository() storage.EntityRepository {
	return db.entityRepo
}

// RelationshipRepository returns the relationship store.
func (db *Database) RelationshipRepository() storage.RelationshipRepository {
	return db.relationshipRepo
}

// Provider returns the AI provider.
func (db *Database) Provider() ai.AIProvider {
	return db.provider
}

// NewMerger creates a graph merger over this database.
func (db *Database) NewMerger(opts ...graph.Option) (*graph.Merger, error) {
	opts = append([]graph.Option{graph.WithLogger(db.logger.With("component", "graph-merger"))}, opts...)
	return graph.NewMerger(db.entityRepo, db.relationshipRepo, db.provider.Embedder(), opts...)
}

// NewSearcher creates a searcher over this database.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	opts = append([]search.Option{search.WithLogger(db.logger.With("component", "searcher"))}, opts...)
	return search.NewSearcher(db.entityRepo, db.relationshipRepo, db.provider, opts...)
}

// NewReembedder creates a reembedder over this database.
func (db *Database) NewReembedder(config *reembed.Config, progress io.Writer) (*reembed.Reembedder, error) {
	return reembed.NewReembedder(db.entityRepo, db.provider.Embedder(), config, progress,
		reembed.WithLogger(db.logger.With("component", "reembedder")))
}

// Document is a text to extract a graph from.
type Document struct {
	ID   string
	Text string
}

// IngestResult describes one Ingest call.
type IngestResult struct {
	Documents int
	Chunks    int
	Results   []core.UnitResult
	Merge     *graph.MergeStats
}

// Failed returns the number of chunks whose extraction failed.
func (r *IngestResult) Failed() int {
	return r.Chunks - len(r.Results)
}

// IngestOption configures Ingest.
type IngestOption func(*ingestOptions)

type ingestOptions struct {
	chunkSize    int
	chunkOverlap int
	executorOpts []extraction.Option
}

// WithChunking sets the chunk window in words.
func WithChunking(size, overlap int) IngestOption {
	return func(o *ingestOptions) {
		o.chunkSize = size
		o.chunkOverlap = overlap
	}
}

// WithExecutorOptions passes options to the extraction executor.
func WithExecutorOptions(opts ...extraction.Option) IngestOption {
	return func(o *ingestOptions) {
		o.executorOpts = append(o.executorOpts, opts...)
	}
}

// Ingest chunks docs, extracts every chunk concurrently and merges the
// successful extractions into the graph. Chunks that fail are reported
// through the executor's status and left out. A cancelled run returns the
// cancellation error and merges nothing.
func (db *Database) Ingest(ctx context.Context, docs []Document, opts ...IngestOption) (*IngestResult, error) {
	options := &ingestOptions{
		chunkSize:    chunking.DefaultSize,
		chunkOverlap: chunking.DefaultOverlap,
	}
	for _, opt := range opts {
		opt(options)
	}

	var chunks []core.Chunk
	for _, doc := range docs {
		split, err := chunking.Split(doc.ID, doc.Text, options.chunkSize, options.chunkOverlap)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, split...)
	}
	units := chunking.Units(chunks)
	db.logger.Info("chunked documents", "documents", len(docs), "chunks", len(units))

	executorOpts := append([]extraction.Option{extraction.WithLogger(db.logger)}, options.executorOpts...)
	executor, err := extraction.NewExecutor(executorOpts...)
	if err != nil {
		return nil, err
	}

	results, err := executor.RunAll(ctx, units, db.provider.EntityExtractor())
	if err != nil {
		return nil, err
	}

	// Merge in document order so descriptions and type ties are stable
	slices.SortFunc(results, func(a, b core.UnitResult) int {
		ca, cb := units[a.UnitID], units[b.UnitID]
		return cmp.Or(cmp.Compare(ca.DocumentID, cb.DocumentID), cmp.Compare(ca.Order, cb.Order))
	})

	merger, err := db.NewMerger()
	if err != nil {
		return nil, err
	}
	stats, err := merger.Merge(ctx, results)
	if err != nil {
		return nil, err
	}

	return &IngestResult{
		Documents: len(docs),
		Chunks:    len(units),
		Results:   results,
		Merge:     stats,
	}, nil
}
