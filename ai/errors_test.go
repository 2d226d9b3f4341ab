package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/kgextract/errtag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIStatusError_Refines(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{401, "*ai.AuthenticationError"},
		{403, "*ai.AuthenticationError"},
		{429, "*ai.RateLimitError"},
		{500, "*ai.ServerError"},
		{503, "*ai.ServerError"},
		{400, "*ai.APIStatusError"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := NewAPIStatusError(tt.code, "failed", "{}", nil)
			assert.Equal(t, tt.want, fmt.Sprintf("%T", err))

			status, ok := AsAPIStatus(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, status.StatusCode)
		})
	}
}

func TestTag_ProviderErrorIsReconstructed(t *testing.T) {
	orig := NewProviderError("model overloaded")

	tagged := errtag.Tag(orig, "chunk-1")

	var pe *ProviderError
	require.ErrorAs(t, tagged, &pe)
	assert.NotSame(t, orig, pe)
	assert.Equal(t, "chunk-1: model overloaded", tagged.Error())
	assert.Equal(t, "model overloaded", orig.Error())
}

func TestTag_ConnectionErrorKeepsErrno(t *testing.T) {
	orig := NewConnectionError(111, "connection refused")

	tagged := errtag.Tag(orig, "chunk-2")

	var ce *ConnectionError
	require.ErrorAs(t, tagged, &ce)
	assert.Equal(t, 111, ce.Errno())
	assert.Equal(t, "[errno 111] chunk-2: connection refused", ce.Error())
	assert.True(t, IsRetryable(tagged))
}

func TestTag_AuthenticationErrorRewrittenInPlace(t *testing.T) {
	cause := errors.New("transport detail")
	orig := NewAPIStatusError(401, "Error code: 401 - invalid api key", `{"error":"bad key"}`, cause)

	tagged := errtag.Tag(orig, "chunk-3")

	assert.Same(t, orig, tagged)
	assert.Equal(t, "chunk-3: Error code: 401 - invalid api key", tagged.Error())
	assert.True(t, IsAuthenticationError(tagged))
	assert.ErrorIs(t, tagged, cause)

	code, ok := errtag.StatusCode(tagged)
	require.True(t, ok)
	assert.Equal(t, 401, code)

	response, ok := errtag.Attr(tagged, "response")
	require.True(t, ok)
	assert.Equal(t, "401 Unauthorized", response)

	body, ok := errtag.Attr(tagged, "body")
	require.True(t, ok)
	assert.Equal(t, `{"error":"bad key"}`, body)
}

func TestTag_ResponseParseErrorIsWrapped(t *testing.T) {
	orig := &ResponseParseError{Raw: "not json", Cause: errors.New("invalid character 'n'")}

	tagged := errtag.Tag(orig, "chunk-4")

	var te *errtag.Error
	require.ErrorAs(t, tagged, &te)
	assert.Equal(t, "chunk-4", te.Provenance)
	assert.Equal(t, "chunk-4: unparseable provider response: invalid character 'n'", tagged.Error())

	var pe *ResponseParseError
	require.ErrorAs(t, tagged, &pe)
	assert.Equal(t, "not json", pe.Raw)
}

func TestIsAuthenticationError(t *testing.T) {
	assert.True(t, IsAuthenticationError(NewAPIStatusError(401, "unauthorized", "", nil)))
	assert.True(t, IsAuthenticationError(fmt.Errorf("merge: %w", NewAPIStatusError(401, "unauthorized", "", nil))))
	assert.False(t, IsAuthenticationError(NewAPIStatusError(429, "slow down", "", nil)))
	assert.False(t, IsAuthenticationError(NewAPIStatusError(403, "forbidden", "", nil)))
	assert.False(t, IsAuthenticationError(errors.New("401")))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"cancelled", context.Canceled, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"connection", NewConnectionError(104, "reset by peer"), true},
		{"rate limit", NewAPIStatusError(429, "slow down", "", nil), true},
		{"server", NewAPIStatusError(502, "bad gateway", "", nil), true},
		{"timeout", NewAPIStatusError(408, "request timeout", "", nil), true},
		{"bad request", NewAPIStatusError(400, "bad request", "", nil), false},
		{"auth", NewAPIStatusError(401, "unauthorized", "", nil), false},
		{"parse", &ResponseParseError{Raw: "x"}, false},
		{"tagged server", errtag.Tag(NewAPIStatusError(500, "oops", "", nil), "chunk-1"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
