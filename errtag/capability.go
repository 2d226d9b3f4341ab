package errtag

import (
	"fmt"
	"maps"
	"slices"
)

// Positional is implemented by errors that retain the positional arguments
// they were constructed with.
type Positional interface {
	error
	Args() []any
}

// Reconstructor builds a fresh error of the same concrete type from
// positional arguments. It returns an error when the arguments cannot
// satisfy the type's construction requirements.
type Reconstructor interface {
	Positional
	Reconstruct(args []any) (error, error)
}

// ArgsRewriter replaces an error's stored arguments in place.
type ArgsRewriter interface {
	Positional
	SetArgs(args []any) error
}

// Attributed exposes an error's extra attributes by name.
type Attributed interface {
	Attrs() map[string]any
	SetAttr(name string, value any) error
}

// Base is an embeddable implementation of Positional, ArgsRewriter and
// Attributed. It is not safe for concurrent mutation.
type Base struct {
	args  []any
	attrs map[string]any
}

// NewBase returns a Base holding a copy of args.
func NewBase(args ...any) Base {
	return Base{args: slices.Clone(args)}
}

// Args returns a copy of the stored arguments.
func (b *Base) Args() []any {
	return slices.Clone(b.args)
}

// SetArgs replaces the stored arguments.
func (b *Base) SetArgs(args []any) error {
	b.args = slices.Clone(args)
	return nil
}

// Attrs returns a copy of the extra attributes.
func (b *Base) Attrs() map[string]any {
	return maps.Clone(b.attrs)
}

// SetAttr sets an extra attribute.
func (b *Base) SetAttr(name string, value any) error {
	if b.attrs == nil {
		b.attrs = make(map[string]any)
	}
	b.attrs[name] = value
	return nil
}

// Message renders the stored arguments: the first textual argument when
// there is one, the first argument otherwise.
func (b *Base) Message() string {
	if len(b.args) == 0 {
		return ""
	}
	for _, arg := range b.args {
		if s, ok := arg.(string); ok {
			return s
		}
	}
	return fmt.Sprint(b.args[0])
}
