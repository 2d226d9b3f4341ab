package extraction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/errtag"
)

// unitRunner executes the extraction of a single chunk.
type unitRunner struct {
	extractor Extractor
	status    StatusSink
	logger    *slog.Logger
}

// run extracts one chunk. It returns the result and true on success, false
// when the chunk failed and was reported, and a non-nil error only for
// cancellation, which the caller must propagate.
func (r *unitRunner) run(ctx context.Context, chunk core.Chunk) (core.UnitResult, bool, error) {
	if err := ctx.Err(); err != nil {
		return core.UnitResult{}, false, &CancelledError{Reason: "stopped before chunk " + chunk.ID, Cause: err}
	}
	if source, ok := r.status.(CancellationSource); ok && source.CancellationRequested() {
		return core.UnitResult{}, false, Cancelled("user cancelled during entity extraction")
	}

	if err := core.ValidateChunk(&chunk); err != nil {
		r.fail(ctx, chunk, err)
		return core.UnitResult{}, false, nil
	}

	value, err := r.invoke(ctx, chunk)
	if err == nil {
		if value == nil {
			value = &core.Extraction{}
		}
		if value.ChunkID == "" {
			value.ChunkID = chunk.ID
		}
		return core.UnitResult{UnitID: chunk.ID, Value: value}, true, nil
	}

	if Classify(ctx, err) == KindCancellation {
		return core.UnitResult{}, false, err
	}
	r.fail(ctx, chunk, err)
	return core.UnitResult{}, false, nil
}

// fail logs and reports an isolated unit failure. Once the run is stopped
// the caller has already returned, so late failures are only logged.
func (r *unitRunner) fail(ctx context.Context, chunk core.Chunk, err error) {
	tagged := errtag.Tag(err, chunk.ID)
	if ctx.Err() != nil {
		r.logger.Debug("chunk failed after run stopped", "chunk", chunk.ID, "err", tagged)
		return
	}
	r.logger.Error("chunk extraction failed", "chunk", chunk.ID, "err", tagged)
	if r.status != nil {
		r.status.Report(fmt.Sprintf("Chunk extraction failed for %s: %v", chunk.ID, tagged))
	}
}

func (r *unitRunner) invoke(ctx context.Context, chunk core.Chunk) (out *core.Extraction, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("%w: %v", ErrExtractorPanic, p)
		}
	}()
	return r.extractor.Extract(ctx, chunk)
}
