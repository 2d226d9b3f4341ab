package extraction

import (
	"slices"
	"sync"
	"sync/atomic"
)

// StatusSink receives failure reports.
type StatusSink interface {
	Report(message string)
}

// CancellationSource is implemented by sinks that also carry the advisory
// cancellation flag. The runner polls it before each unit starts.
type CancellationSource interface {
	CancellationRequested() bool
}

// Status is the shared progress and error record of a pipeline run.
// Writes are serialized by a mutex. LatestMessage and CancellationRequested
// read without locking and may be momentarily stale.
// The zero value is ready to use.
type Status struct {
	mu      sync.Mutex
	history []string

	latest    atomic.Pointer[string]
	cancelled atomic.Bool
}

var (
	_ StatusSink         = (*Status)(nil)
	_ CancellationSource = (*Status)(nil)
)

// NewStatus returns an empty Status.
func NewStatus() *Status {
	return &Status{}
}

// Report appends message to the history and makes it the latest message.
func (s *Status) Report(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, message)
	s.latest.Store(&message)
}

// RequestCancellation sets the advisory cancellation flag.
func (s *Status) RequestCancellation() {
	s.cancelled.Store(true)
}

// CancellationRequested reports whether cancellation was requested.
func (s *Status) CancellationRequested() bool {
	return s.cancelled.Load()
}

// LatestMessage returns the most recently reported message.
func (s *Status) LatestMessage() string {
	if p := s.latest.Load(); p != nil {
		return *p
	}
	return ""
}

// History returns a snapshot of all reported messages in report order.
func (s *Status) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.history)
}

// Reset clears the history, the latest message and the cancellation flag.
func (s *Status) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.latest.Store(nil)
	s.cancelled.Store(false)
}
