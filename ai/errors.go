package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/poiesic/kgextract/errtag"
)

// ProviderError is a generic provider failure carrying only a message.
type ProviderError struct {
	errtag.Base
}

// NewProviderError creates a ProviderError.
func NewProviderError(message string) *ProviderError {
	return &ProviderError{Base: errtag.NewBase(message)}
}

func (e *ProviderError) Error() string {
	return e.Message()
}

// Reconstruct builds a ProviderError from a single message argument.
func (e *ProviderError) Reconstruct(args []any) (error, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("provider error takes 1 argument, got %d", len(args))
	}
	return &ProviderError{Base: errtag.NewBase(args...)}, nil
}

// ConnectionError reports a transport failure before any response arrived.
type ConnectionError struct {
	errtag.Base
}

// NewConnectionError creates a ConnectionError from an OS error number and a message.
func NewConnectionError(errno int, message string) *ConnectionError {
	return &ConnectionError{Base: errtag.NewBase(errno, message)}
}

// Errno returns the OS error number, or 0 when unknown.
func (e *ConnectionError) Errno() int {
	args := e.Args()
	if len(args) > 0 {
		if n, ok := args[0].(int); ok {
			return n
		}
	}
	return 0
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("[errno %d] %s", e.Errno(), e.Message())
}

// Reconstruct builds a ConnectionError from (errno int, message string).
func (e *ConnectionError) Reconstruct(args []any) (error, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("connection error takes 2 arguments, got %d", len(args))
	}
	errno, ok := args[0].(int)
	if !ok {
		return nil, fmt.Errorf("connection error errno must be int, got %T", args[0])
	}
	message, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("connection error message must be string, got %T", args[1])
	}
	return NewConnectionError(errno, message), nil
}

// APIStatusError is a non-2xx response from the provider. It has no
// positional constructor: the response details are keyword-only, so
// tagging rewrites its message in place.
type APIStatusError struct {
	errtag.Base
	StatusCode int
	Response   string
	Body       string
	RequestID  string
	Cause      error
}

// NewAPIStatusError returns the most specific error type for statusCode.
func NewAPIStatusError(statusCode int, message, body string, cause error) error {
	base := APIStatusError{
		Base:       errtag.NewBase(message),
		StatusCode: statusCode,
		Response:   fmt.Sprintf("%d %s", statusCode, http.StatusText(statusCode)),
		Body:       body,
		Cause:      cause,
	}
	switch {
	case statusCode == 401 || statusCode == 403:
		return &AuthenticationError{APIStatusError: base}
	case statusCode == 429:
		return &RateLimitError{APIStatusError: base}
	case statusCode >= 500:
		return &ServerError{APIStatusError: base}
	default:
		return &base
	}
}

func (e *APIStatusError) Error() string {
	return e.Message()
}

func (e *APIStatusError) Unwrap() error {
	return e.Cause
}

// Attrs includes the response details alongside any attributes set on e.
func (e *APIStatusError) Attrs() map[string]any {
	attrs := e.Base.Attrs()
	if attrs == nil {
		attrs = make(map[string]any)
	}
	attrs[errtag.StatusCodeAttr] = e.StatusCode
	attrs["response"] = e.Response
	attrs["body"] = e.Body
	if e.RequestID != "" {
		attrs["request_id"] = e.RequestID
	}
	return attrs
}

func (e *APIStatusError) apiStatus() *APIStatusError {
	return e
}

// AuthenticationError is a 401 or 403 response.
type AuthenticationError struct {
	APIStatusError
}

// RateLimitError is a 429 response.
type RateLimitError struct {
	APIStatusError
}

// ServerError is a 5xx response.
type ServerError struct {
	APIStatusError
}

// ResponseParseError reports a response body that could not be decoded.
// Its arguments are read-only, so tagging wraps it.
type ResponseParseError struct {
	Raw   string
	Cause error
}

func (e *ResponseParseError) Error() string {
	if e.Cause == nil {
		return "unparseable provider response"
	}
	return "unparseable provider response: " + e.Cause.Error()
}

func (e *ResponseParseError) Unwrap() error {
	return e.Cause
}

// Args returns the error message as the single argument.
func (e *ResponseParseError) Args() []any {
	return []any{e.Error()}
}

type statusCarrier interface {
	apiStatus() *APIStatusError
}

// AsAPIStatus returns the APIStatusError in err's chain, including the
// refined status types.
func AsAPIStatus(err error) (*APIStatusError, bool) {
	var carrier statusCarrier
	if errors.As(err, &carrier) {
		return carrier.apiStatus(), true
	}
	return nil, false
}

// IsAuthenticationError reports whether err carries a 401 status code.
func IsAuthenticationError(err error) bool {
	code, ok := errtag.StatusCode(err)
	return ok && code == 401
}

// IsRetryable reports whether a provider call that failed with err may
// succeed on another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	if code, ok := errtag.StatusCode(err); ok {
		return code == 408 || code == 429 || code >= 500
	}
	return false
}
