package storage

import "errors"

var (
	// ErrNotFound is returned when no entity or relationship matches.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed is returned for operations on a closed backend.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidQuery is returned for a non-positive limit or an empty
	// query vector.
	ErrInvalidQuery = errors.New("invalid query parameters")

	// ErrSerializationFailed wraps encode and decode failures of stored
	// values.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrTruncatedData is returned when a stored key or value is shorter
	// than its layout requires.
	ErrTruncatedData = errors.New("truncated data")
)
