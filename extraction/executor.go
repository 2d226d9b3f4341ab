package extraction

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/progress"
)

// Executor runs an Extractor over many chunks with bounded concurrency.
// An Executor holds configuration only and may be reused for many runs.
type Executor struct {
	concurrency      int
	status           StatusSink
	logger           *slog.Logger
	progressWriter   io.Writer
	progressInterval int
}

// Option configures an Executor.
type Option func(*Executor) error

// WithConcurrency sets the maximum number of simultaneous extractor calls.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithConcurrency(limit int) Option {
	return func(e *Executor) error {
		if limit < 1 {
			return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, limit)
		}
		e.concurrency = limit
		return nil
	}
}

// WithStatus sets the shared status that receives failure reports.
// Without one, failures are only logged.
func WithStatus(status StatusSink) Option {
	return func(e *Executor) error {
		if s, ok := status.(*Status); ok && s == nil {
			status = nil
		}
		e.status = status
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// WithProgress prints a progress line to w every interval completed chunks.
func WithProgress(w io.Writer, interval int) Option {
	return func(e *Executor) error {
		e.progressWriter = w
		e.progressInterval = interval
		return nil
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...Option) (*Executor, error) {
	concurrency := runtime.NumCPU() / 2
	if concurrency < 1 {
		concurrency = 1
	}

	e := &Executor{
		concurrency: concurrency,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "extraction")

	return e, nil
}

// RunAll is a convenience wrapper that builds a one-off Executor.
// status may be nil.
func RunAll(ctx context.Context, units map[string]core.Chunk, extractor Extractor, concurrencyLimit int, status StatusSink) ([]core.UnitResult, error) {
	e, err := NewExecutor(WithConcurrency(concurrencyLimit), WithStatus(status))
	if err != nil {
		return nil, err
	}
	return e.RunAll(ctx, units, extractor)
}

// Concurrency returns the configured concurrency limit.
func (e *Executor) Concurrency() int {
	return e.concurrency
}

// RunAll extracts every unit and returns the successful results in no
// particular order. Map keys are the unit IDs.
//
// Units whose extraction fails are reported and omitted, so a short or
// empty result is not an error. A cancellation signal from any unit, or
// cancellation of ctx, stops the run and is returned as the error with no
// results.
func (e *Executor) RunAll(ctx context.Context, units map[string]core.Chunk, extractor Extractor) ([]core.UnitResult, error) {
	if extractor == nil {
		return nil, ErrExtractorRequired
	}
	if len(units) == 0 {
		return []core.UnitResult{}, nil
	}

	ordered := orderUnits(units)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool, err := ants.NewPool(e.concurrency,
		ants.WithLogger(&antsLoggerAdapter{logger: e.logger}),
		ants.WithPanicHandler(func(p any) {
			e.logger.Error("extraction worker panicked", "panic", p)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	var tracker *progress.Tracker
	if e.progressWriter != nil {
		tracker = progress.NewTracker(e.progressWriter, len(ordered), e.progressInterval).WithUnit("chunks")
		tracker.Start()
	}

	runner := &unitRunner{extractor: extractor, status: e.status, logger: e.logger}
	stop := &stopSignal{cancel: cancel}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]core.UnitResult, 0, len(ordered))
	)

	e.logger.Info("starting extraction", "chunks", len(ordered), "concurrency", e.concurrency)

	// slots gates admission so a stopped run never blocks in Submit behind
	// workers that ignore cancellation.
	slots := make(chan struct{}, e.concurrency)

admit:
	for _, chunk := range ordered {
		select {
		case slots <- struct{}{}:
		case <-runCtx.Done():
			break admit
		}
		if runCtx.Err() != nil {
			<-slots
			break
		}
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer func() {
				<-slots
				wg.Done()
			}()
			result, ok, err := runner.run(runCtx, chunk)
			if err != nil {
				stop.raise(err)
				return
			}
			if ok {
				mu.Lock()
				results = append(results, result)
				done := len(results)
				mu.Unlock()
				e.logger.Info("chunk extracted",
					"chunk", chunk.ID,
					"entities", len(result.Value.Entities),
					"relationships", len(result.Value.Relationships),
					"progress", fmt.Sprintf("%d/%d", done, len(ordered)))
			}
			if tracker != nil {
				tracker.Increment(1)
			}
		})
		if submitErr != nil {
			<-slots
			wg.Done()
			cancel()
			return nil, fmt.Errorf("submitting chunk %s: %w", chunk.ID, submitErr)
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-runCtx.Done():
	}

	if err := stop.err(); err != nil {
		// A unit may surface the parent's ctx.Err() before the runner sees
		// the stop, so the parent's cancellation is always returned typed.
		if ctx.Err() != nil && !errors.Is(err, ErrPipelineCancelled) {
			err = &CancelledError{Reason: "context done", Cause: err}
		}
		e.logger.Warn("extraction cancelled", "err", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, &CancelledError{Reason: "context done", Cause: err}
	}

	mu.Lock()
	defer mu.Unlock()
	if tracker != nil {
		tracker.Finish()
	}
	e.logger.Info("extraction finished", "chunks", len(ordered), "succeeded", len(results), "failed", len(ordered)-len(results))
	return results, nil
}

// orderUnits sorts units by document order, then ID. The map key is
// authoritative for the chunk ID.
func orderUnits(units map[string]core.Chunk) []core.Chunk {
	ordered := make([]core.Chunk, 0, len(units))
	for id, chunk := range units {
		chunk.ID = id
		ordered = append(ordered, chunk)
	}
	slices.SortFunc(ordered, func(a, b core.Chunk) int {
		return cmp.Or(cmp.Compare(a.Order, b.Order), cmp.Compare(a.ID, b.ID))
	})
	return ordered
}

// stopSignal records the first cancellation raised by a unit.
type stopSignal struct {
	mu     sync.Mutex
	first  error
	cancel context.CancelFunc
}

func (s *stopSignal) raise(err error) {
	s.mu.Lock()
	if s.first == nil {
		s.first = err
	}
	s.mu.Unlock()
	s.cancel()
}

func (s *stopSignal) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

// antsLoggerAdapter adapts slog.Logger to the ants.Logger interface.
type antsLoggerAdapter struct {
	logger *slog.Logger
}

var _ ants.Logger = (*antsLoggerAdapter)(nil)

func (a *antsLoggerAdapter) Printf(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}
