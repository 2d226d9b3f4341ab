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


package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/kgextract/ai"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/progress"
	"github.com/poiesic/kgextract/storage"
	"golang.org/x/sync/errgroup"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of entities to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of entities)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed embedding calls
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Concurrency is the number of batches embedded at once
	Concurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Concurrency:    2,
	}
}

// Option configures a Reembedder.
type Option func(*Reembedder) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reembedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// Reembedder orchestrates the reembedding of all entities in a database.
type Reembedder struct {
	repo      storage.EntityRepository
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *EntityIterator
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(repo storage.EntityRepository, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Reembedder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if config.Concurrency <= 0 {
		return nil, ErrInvalidConcurrency
	}

	r := &Reembedder{
		repo:      repo,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(repo, embedder, config.MaxRetries, config.RetryDelay),
		iterator:  NewEntityIterator(repo, config.BatchSize),
		logger:    slog.Default().With("component", "reembedder"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run executes the reembedding operation.
// Every entity in the database is reembedded with the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	totalEntities, err := r.repo.CountEntities(ctx)
	if err != nil {
		return fmt.Errorf("failed to count entities: %w", err)
	}

	if totalEntities == 0 {
		fmt.Fprintf(r.progress, "No entities found in database (0 entities)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d entities (batch size: %d)\n",
		totalEntities, r.config.BatchSize)

	tracker := progress.NewTracker(r.progress, totalEntities, r.config.ReportInterval).WithUnit("entities")
	tracker.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.config.Concurrency)

	iterErr := r.iterator.ForEach(gctx, func(entities []*core.Entity) error {
		g.Go(func() error {
			if err := r.processor.Process(gctx, entities); err != nil {
				r.logger.Error("error reembedding batch", "first", entities[0].Id, "size", len(entities), "err", err)
				return fmt.Errorf("failed to process batch: %w", err)
			}
			tracker.Increment(len(entities))
			return nil
		})
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if iterErr != nil {
		return iterErr
	}

	tracker.Finish()

	processed := tracker.Current()
	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d entities in %v (%.1f entities/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}
