package errtag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// messageError is rebuilt from a single message argument.
type messageError struct {
	Base
}

func newMessageError(args ...any) *messageError {
	return &messageError{Base: NewBase(args...)}
}

func (e *messageError) Error() string { return e.Message() }

func (e *messageError) Reconstruct(args []any) (error, error) {
	return newMessageError(args...), nil
}

// errnoError follows the numeric code plus message convention.
type errnoError struct {
	Base
}

func (e *errnoError) Error() string {
	args := e.Args()
	if len(args) == 2 {
		return fmt.Sprintf("[Errno %v] %v", args[0], args[1])
	}
	return e.Message()
}

func (e *errnoError) Reconstruct(args []any) (error, error) {
	if len(args) != 2 {
		return nil, errors.New("errno error takes code and message")
	}
	if _, ok := args[0].(int); !ok {
		return nil, errors.New("errno code must be an int")
	}
	return &errnoError{Base: NewBase(args...)}, nil
}

// keywordOnlyError cannot be rebuilt from positional arguments.
type keywordOnlyError struct {
	Base
	Response any
	Body     any
}

func (e *keywordOnlyError) Error() string { return e.Message() }

func (e *keywordOnlyError) Reconstruct(args []any) (error, error) {
	return nil, errors.New("response and body are required")
}

func (e *keywordOnlyError) Attrs() map[string]any {
	attrs := e.Base.Attrs()
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs["response"] = e.Response
	attrs["body"] = e.Body
	return attrs
}

// immutableError computes its arguments and refuses rewrites.
type immutableError struct{}

func (e *immutableError) Error() string         { return "immutable" }
func (e *immutableError) Args() []any           { return []any{"immutable"} }
func (e *immutableError) SetArgs(_ []any) error { return errors.New("cannot set args") }

// panickyError panics from every capability method.
type panickyError struct{}

func (e *panickyError) Error() string                      { return "panicky" }
func (e *panickyError) Args() []any                        { panic("args unavailable") }
func (e *panickyError) Reconstruct(_ []any) (error, error) { panic("no constructor") }
func (e *panickyError) SetArgs(_ []any) error              { panic("no setter") }

// shapeShifter reconstructs into a different type.
type shapeShifter struct {
	Base
}

func (e *shapeShifter) Error() string { return e.Message() }

func (e *shapeShifter) Reconstruct(args []any) (error, error) {
	return newMessageError(args...), nil
}

func TestTag_Nil(t *testing.T) {
	assert.NoError(t, Tag(nil, "PREFIX"))
}

func TestTag_Reconstruct(t *testing.T) {
	t.Run("message only", func(t *testing.T) {
		orig := newMessageError("something went wrong")

		result := Tag(orig, "PREFIX")

		var typed *messageError
		require.ErrorAs(t, result, &typed)
		assert.NotSame(t, orig, typed)
		assert.Contains(t, result.Error(), "PREFIX: something went wrong")
		assert.Equal(t, "something went wrong", orig.Error(), "original must not change")
	})

	t.Run("numeric code keeps its position", func(t *testing.T) {
		orig := &errnoError{Base: NewBase(2, "No such file or directory")}

		result := Tag(orig, "PREFIX")

		var typed *errnoError
		require.ErrorAs(t, result, &typed)
		assert.NotSame(t, orig, typed)
		assert.Equal(t, []any{2, "PREFIX: No such file or directory"}, typed.Args())
		assert.Equal(t, "[Errno 2] PREFIX: No such file or directory", result.Error())
	})

	t.Run("no arguments", func(t *testing.T) {
		orig := newMessageError()

		result := Tag(orig, "PREFIX")

		var typed *messageError
		require.ErrorAs(t, result, &typed)
		assert.Contains(t, result.Error(), "PREFIX")
	})

	t.Run("attributes survive", func(t *testing.T) {
		orig := newMessageError("rate limited")
		require.NoError(t, orig.SetAttr(StatusCodeAttr, 429))
		require.NoError(t, orig.SetAttr("provider", "openai"))

		result := Tag(orig, "chunk-7")

		typed, ok := result.(*messageError)
		require.True(t, ok)
		assert.Equal(t, 429, typed.Attrs()[StatusCodeAttr])
		assert.Equal(t, "openai", typed.Attrs()["provider"])
		code, ok := StatusCode(result)
		assert.True(t, ok)
		assert.Equal(t, 429, code)
	})
}

func TestTag_RewriteInPlace(t *testing.T) {
	t.Run("keyword-only construction", func(t *testing.T) {
		body := map[string]any{"detail": "Unauthorized"}
		orig := &keywordOnlyError{Base: NewBase("unauthorized"), Response: "resp_obj", Body: body}

		result := Tag(orig, "C[1/14]")

		assert.Same(t, orig, result)
		assert.Contains(t, result.Error(), "C[1/14]")
		assert.Contains(t, result.Error(), "unauthorized")
		assert.Equal(t, "resp_obj", orig.Response)
		assert.Equal(t, body, orig.Body)
	})

	t.Run("status code preserved", func(t *testing.T) {
		orig := &keywordOnlyError{Base: NewBase("Error code: 401 - {'detail': 'Unauthorized'}")}
		require.NoError(t, orig.SetAttr(StatusCodeAttr, 401))

		result := Tag(orig, "chunk-abc123")

		assert.Same(t, orig, result)
		code, ok := StatusCode(result)
		require.True(t, ok)
		assert.Equal(t, 401, code)
		assert.Contains(t, result.Error(), "chunk-abc123")
		assert.Contains(t, result.Error(), "401")
	})

	t.Run("reconstruction into another type is rejected", func(t *testing.T) {
		orig := &shapeShifter{Base: NewBase("drift")}

		result := Tag(orig, "PFX")

		assert.Same(t, orig, result)
		assert.Equal(t, "PFX: drift", result.Error())
	})
}

func TestTag_FallbackWrap(t *testing.T) {
	t.Run("read-only arguments", func(t *testing.T) {
		orig := &immutableError{}

		result := Tag(orig, "PFX")

		var wrapped *Error
		require.ErrorAs(t, result, &wrapped)
		assert.Equal(t, "PFX: immutable", result.Error())
		assert.Equal(t, "PFX", wrapped.Provenance)
		assert.ErrorIs(t, result, orig)
	})

	t.Run("panicking capabilities", func(t *testing.T) {
		orig := &panickyError{}

		var result error
		require.NotPanics(t, func() { result = Tag(orig, "PFX") })

		assert.Equal(t, "PFX: panicky", result.Error())
		assert.ErrorIs(t, result, orig)
	})

	t.Run("opaque error", func(t *testing.T) {
		sentinel := errors.New("connection reset")

		result := Tag(fmt.Errorf("calling model: %w", sentinel), "chunk-001")

		assert.Equal(t, "chunk-001: calling model: connection reset", result.Error())
		assert.ErrorIs(t, result, sentinel)
	})

	t.Run("attributes of wrapped error are visible", func(t *testing.T) {
		inner := &keywordOnlyError{Base: NewBase("denied")}
		require.NoError(t, inner.SetAttr(StatusCodeAttr, 403))

		result := Tag(fmt.Errorf("request failed: %w", inner), "chunk-9")

		wrapped, ok := result.(*Error)
		require.True(t, ok)
		assert.Equal(t, 403, wrapped.Attrs()[StatusCodeAttr])
		require.NoError(t, wrapped.SetAttr("retried", true))
		assert.Equal(t, true, wrapped.Attrs()["retried"])
		_, leaked := inner.Attrs()["retried"]
		assert.False(t, leaked)
	})
}

func TestStatusCode(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, ok := StatusCode(errors.New("plain"))
		assert.False(t, ok)
	})

	t.Run("through joined errors", func(t *testing.T) {
		inner := newMessageError("limited")
		require.NoError(t, inner.SetAttr(StatusCodeAttr, int64(429)))

		code, ok := StatusCode(errors.Join(errors.New("other"), inner))
		assert.True(t, ok)
		assert.Equal(t, 429, code)
	})

	t.Run("non-numeric value", func(t *testing.T) {
		inner := newMessageError("odd")
		require.NoError(t, inner.SetAttr(StatusCodeAttr, "401"))

		_, ok := StatusCode(inner)
		assert.False(t, ok)
	})
}

func TestBase_Message(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"empty", nil, ""},
		{"single message", []any{"boom"}, "boom"},
		{"code then message", []any{111, "connection refused"}, "connection refused"},
		{"no text", []any{42}, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase(tt.args...)
			assert.Equal(t, tt.want, b.Message())
		})
	}
}
