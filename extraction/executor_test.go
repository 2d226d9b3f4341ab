package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/kgextract/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeChunks(count int) map[string]core.Chunk {
	chunks := make(map[string]core.Chunk, count)
	for i := 0; i < count; i++ {
		content := fmt.Sprintf("Test content for chunk %d.", i)
		id := fmt.Sprintf("chunk-%03d", i)
		chunks[id] = core.Chunk{
			ID:         id,
			Content:    content,
			Tokens:     len(content),
			DocumentID: "doc-001",
			Order:      i,
		}
	}
	return chunks
}

func okExtraction(chunk core.Chunk) *core.Extraction {
	return &core.Extraction{
		ChunkID: chunk.ID,
		Entities: []core.ExtractedEntity{
			{Name: "TEST_ENTITY", Type: "CONCEPT", Description: "A test entity"},
		},
	}
}

func unitIDs(results []core.UnitResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.UnitID
	}
	return ids
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestRunAll_SingleChunkFailureDoesNotAbortOthers(t *testing.T) {
	status := NewStatus()
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if chunk.ID == "chunk-001" {
			return nil, errors.New("LLM API error for chunk")
		}
		return okExtraction(chunk), nil
	})

	exec, err := NewExecutor(WithConcurrency(4), WithStatus(status), WithLogger(quietLogger()))
	require.NoError(t, err)

	results, err := exec.RunAll(context.Background(), makeChunks(3), extractor)

	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.ElementsMatch(t, []string{"chunk-000", "chunk-002"}, unitIDs(results))

	history := status.History()
	require.Len(t, history, 1)
	assert.Contains(t, history[0], "Chunk extraction failed")
	assert.Contains(t, history[0], "chunk-001")
	assert.Contains(t, history[0], "LLM API error for chunk")
	assert.Equal(t, history[0], status.LatestMessage())
}

func TestRunAll_AllChunksFailReturnsEmpty(t *testing.T) {
	status := NewStatus()
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		return nil, errors.New("LLM unavailable")
	})

	results, err := RunAll(context.Background(), makeChunks(5), extractor, 2, status)

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Len(t, status.History(), 5)
}

func TestRunAll_CancellationPropagates(t *testing.T) {
	status := NewStatus()
	signal := Cancelled("User cancelled")
	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if calls.Add(1) == 1 {
			return okExtraction(chunk), nil
		}
		return nil, signal
	})

	results, err := RunAll(context.Background(), makeChunks(3), extractor, 1, status)

	require.Error(t, err)
	assert.Same(t, signal, err, "the signal is returned unchanged")
	assert.ErrorIs(t, err, ErrPipelineCancelled)
	assert.Nil(t, results)
	assert.Equal(t, int32(2), calls.Load(), "no chunk starts after the signal")
	assert.Empty(t, status.History(), "cancellation is not reported as a failure")
}

func TestRunAll_WrappedCancellationPropagates(t *testing.T) {
	signal := fmt.Errorf("llm call: %w", ErrPipelineCancelled)
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if chunk.ID == "chunk-005" {
			return nil, signal
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
			return okExtraction(chunk), nil
		}
	})

	results, err := RunAll(context.Background(), makeChunks(20), extractor, 4, nil)

	assert.Same(t, signal, err)
	assert.Nil(t, results)
}

func TestRunAll_CancellationAbandonsInFlightWork(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	signal := Cancelled("stop")
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if chunk.ID == "chunk-000" {
			<-release // ignores ctx on purpose
			return okExtraction(chunk), nil
		}
		time.Sleep(10 * time.Millisecond)
		return nil, signal
	})

	done := make(chan error, 1)
	go func() {
		_, err := RunAll(context.Background(), makeChunks(4), extractor, 2, nil)
		done <- err
	}()

	select {
	case err := <-done:
		assert.Same(t, signal, err)
	case <-time.After(2 * time.Second):
		t.Fatal("RunAll waited on a stuck unit after cancellation")
	}
}

func TestRunAll_ConcurrencyBound(t *testing.T) {
	for _, limit := range []int{1, 3, 8} {
		t.Run(fmt.Sprintf("limit %d", limit), func(t *testing.T) {
			var inFlight, maxSeen atomic.Int32
			extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
				n := inFlight.Add(1)
				defer inFlight.Add(-1)
				for {
					seen := maxSeen.Load()
					if n <= seen || maxSeen.CompareAndSwap(seen, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				return okExtraction(chunk), nil
			})

			results, err := RunAll(context.Background(), makeChunks(30), extractor, limit, nil)

			require.NoError(t, err)
			assert.Len(t, results, 30)
			assert.LessOrEqual(t, maxSeen.Load(), int32(limit))
			assert.GreaterOrEqual(t, maxSeen.Load(), int32(1))
		})
	}
}

func TestRunAll_SequentialOrder(t *testing.T) {
	var order []string
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		order = append(order, chunk.ID)
		return okExtraction(chunk), nil
	})

	_, err := RunAll(context.Background(), makeChunks(4), extractor, 1, nil)

	require.NoError(t, err)
	assert.Equal(t, []string{"chunk-000", "chunk-001", "chunk-002", "chunk-003"}, order)
}

func TestRunAll_ZeroUnits(t *testing.T) {
	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		calls.Add(1)
		return nil, nil
	})

	results, err := RunAll(context.Background(), nil, extractor, 2, nil)

	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Zero(t, calls.Load())
}

func TestRunAll_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		calls.Add(1)
		return okExtraction(chunk), nil
	})

	results, err := RunAll(ctx, makeChunks(3), extractor, 2, nil)

	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrPipelineCancelled)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestRunAll_ParentCancelledMidRun(t *testing.T) {
	// Units return ctx.Err() themselves, racing the runner's own check.
	for i := 0; i < 25; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{}, 4)
		extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
			started <- struct{}{}
			<-ctx.Done()
			return nil, ctx.Err()
		})

		go func() {
			<-started
			cancel()
		}()
		results, err := RunAll(ctx, makeChunks(4), extractor, 2, nil)

		require.Nil(t, results)
		require.ErrorIs(t, err, ErrPipelineCancelled, "run %d", i)
		require.ErrorIs(t, err, context.Canceled, "run %d", i)
		cancel()
	}
}

func TestRunAll_BlankChunkIsIsolated(t *testing.T) {
	status := NewStatus()
	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		calls.Add(1)
		return okExtraction(chunk), nil
	})

	units := makeChunks(3)
	units["chunk-blank"] = core.Chunk{Content: "   ", Order: 1}

	results, err := RunAll(context.Background(), units, extractor, 2, status)

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"chunk-000", "chunk-001", "chunk-002"}, unitIDs(results))
	assert.Equal(t, int32(3), calls.Load(), "blank chunk never reaches the extractor")
	require.Len(t, status.History(), 1)
	assert.Contains(t, status.LatestMessage(), "Chunk extraction failed for chunk-blank")
	assert.Contains(t, status.LatestMessage(), core.ErrEmptyContent.Error())
}

func TestRunAll_AdvisoryCancellationFlag(t *testing.T) {
	status := NewStatus()
	status.RequestCancellation()

	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		calls.Add(1)
		return okExtraction(chunk), nil
	})

	results, err := RunAll(context.Background(), makeChunks(3), extractor, 2, status)

	assert.Nil(t, results)
	assert.ErrorIs(t, err, ErrPipelineCancelled)
	assert.Contains(t, err.Error(), "user cancelled during entity extraction")
	assert.Zero(t, calls.Load())
}

func TestRunAll_PanickingExtractorIsIsolated(t *testing.T) {
	status := NewStatus()
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if chunk.ID == "chunk-002" {
			panic("index out of range")
		}
		return okExtraction(chunk), nil
	})

	results, err := RunAll(context.Background(), makeChunks(4), extractor, 2, status)

	require.NoError(t, err)
	assert.Len(t, results, 3)
	history := status.History()
	require.Len(t, history, 1)
	assert.Contains(t, history[0], "chunk-002")
	assert.Contains(t, history[0], ErrExtractorPanic.Error())
}

func TestRunAll_ExtractorDeadlineIsUnitFailure(t *testing.T) {
	status := NewStatus()
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if chunk.ID == "chunk-000" {
			callCtx, cancel := context.WithTimeout(ctx, time.Millisecond)
			defer cancel()
			<-callCtx.Done()
			return nil, fmt.Errorf("model call: %w", callCtx.Err())
		}
		return okExtraction(chunk), nil
	})

	results, err := RunAll(context.Background(), makeChunks(2), extractor, 1, status)

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Len(t, status.History(), 1)
}

func TestRunAll_FailureIsLoggedWithoutStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	var calls atomic.Int32
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("LLM timeout")
		}
		return okExtraction(chunk), nil
	})

	exec, err := NewExecutor(WithConcurrency(1), WithLogger(logger))
	require.NoError(t, err)

	results, err := exec.RunAll(context.Background(), makeChunks(2), extractor)

	require.NoError(t, err)
	assert.Len(t, results, 1)
	output := buf.String()
	assert.Contains(t, output, "level=ERROR")
	assert.Contains(t, output, "chunk extraction failed")
	assert.Contains(t, output, "chunk-000: LLM timeout")
}

func TestRunAll_ResultCarriesChunkID(t *testing.T) {
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		return &core.Extraction{}, nil
	})

	results, err := RunAll(context.Background(), map[string]core.Chunk{
		"chunk-key": {ID: "ignored", Content: "text"},
	}, extractor, 1, nil)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-key", results[0].UnitID)
	assert.Equal(t, "chunk-key", results[0].Value.ChunkID)
}

func TestRunAll_ProgressOutput(t *testing.T) {
	var buf bytes.Buffer
	extractor := ExtractorFunc(func(ctx context.Context, chunk core.Chunk) (*core.Extraction, error) {
		return okExtraction(chunk), nil
	})

	exec, err := NewExecutor(WithConcurrency(2), WithProgress(&buf, 1), WithLogger(quietLogger()))
	require.NoError(t, err)

	_, err = exec.RunAll(context.Background(), makeChunks(3), extractor)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3/3")
	assert.Contains(t, buf.String(), "chunks/s")
}

func TestRunAll_Misuse(t *testing.T) {
	t.Run("nil extractor", func(t *testing.T) {
		_, err := RunAll(context.Background(), makeChunks(1), nil, 1, nil)
		assert.ErrorIs(t, err, ErrExtractorRequired)
	})

	t.Run("invalid concurrency", func(t *testing.T) {
		_, err := NewExecutor(WithConcurrency(0))
		assert.ErrorIs(t, err, ErrInvalidConcurrency)
	})
}

func TestNewExecutor_Defaults(t *testing.T) {
	exec, err := NewExecutor()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, exec.Concurrency(), 1)
	assert.NotNil(t, exec.logger)
	assert.Nil(t, exec.status)

	var nilStatus *Status
	exec, err = NewExecutor(WithStatus(nilStatus), WithLogger(nil))
	require.NoError(t, err)
	assert.Nil(t, exec.status, "typed nil status is treated as absent")
	assert.NotNil(t, exec.logger)
}
