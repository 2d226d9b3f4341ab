package extraction

import (
	"context"
	"errors"
)

var (
	// ErrExtractorRequired is returned when no extractor is provided.
	ErrExtractorRequired = errors.New("extractor required")

	// ErrInvalidConcurrency is returned when the concurrency limit is not positive.
	ErrInvalidConcurrency = errors.New("concurrency limit must be at least 1")

	// ErrExtractorPanic marks a unit failure caused by a panicking extractor.
	ErrExtractorPanic = errors.New("extractor panicked")

	// ErrPipelineCancelled is the cancellation signal. Errors matching it
	// abort the whole run instead of being isolated.
	ErrPipelineCancelled = errors.New("pipeline cancelled")
)

// CancelledError is a cancellation signal carrying a reason.
// It matches ErrPipelineCancelled under errors.Is.
type CancelledError struct {
	Reason string
	Cause  error
}

// Cancelled returns a cancellation signal with the given reason.
func Cancelled(reason string) error {
	return &CancelledError{Reason: reason}
}

func (e *CancelledError) Error() string {
	msg := ErrPipelineCancelled.Error()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrPipelineCancelled
}

// Kind classifies an extractor error.
type Kind int

const (
	// KindNone means there was no error.
	KindNone Kind = iota
	// KindUnitFailure is an error confined to one unit.
	KindUnitFailure
	// KindCancellation stops the whole run.
	KindCancellation
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnitFailure:
		return "unit-failure"
	case KindCancellation:
		return "cancellation"
	}
	return "unknown"
}

// Classify decides whether err aborts the run governed by ctx.
//
// Context errors count as cancellation only while ctx itself is done; a
// deadline the extractor applied to its own call is an ordinary unit
// failure.
func Classify(ctx context.Context, err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrPipelineCancelled):
		return KindCancellation
	case ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return KindCancellation
	}
	return KindUnitFailure
}
