package reembed

import "errors"

var (
	// ErrInvalidBatchSize is returned when the batch size is <= 0
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")

	// ErrInvalidConcurrency is returned when the concurrency is <= 0
	ErrInvalidConcurrency = errors.New("concurrency must be greater than 0")
)
