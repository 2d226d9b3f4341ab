package errtag

import (
	"errors"
	"maps"
	"sync"
)

// Error is the generic tagged error returned when the original cannot be
// rebuilt or rewritten. Err remains reachable through errors.Unwrap.
type Error struct {
	Provenance string
	Err        error

	msg   string
	mu    sync.Mutex
	attrs map[string]any
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Attrs returns the wrapped error's attributes overlaid with any set on e.
func (e *Error) Attrs() (attrs map[string]any) {
	attrs = make(map[string]any)
	var inner Attributed
	if errors.As(e.Err, &inner) {
		func() {
			defer func() { _ = recover() }()
			maps.Copy(attrs, inner.Attrs())
		}()
	}
	e.mu.Lock()
	maps.Copy(attrs, e.attrs)
	e.mu.Unlock()
	return attrs
}

// SetAttr sets an attribute on e without touching the wrapped error.
func (e *Error) SetAttr(name string, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.attrs == nil {
		e.attrs = make(map[string]any)
	}
	e.attrs[name] = value
	return nil
}
