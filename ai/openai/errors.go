package openai

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strconv"
	"syscall"

	"github.com/poiesic/kgextract/ai"
)

// langchaingo reports HTTP failures as text, e.g.
// "API returned unexpected status code: 401: invalid api key".
var statusCodePattern = regexp.MustCompile(`status code:? (\d{3}):?\s*(.*)`)

// mapError converts a langchaingo client error into the ai error types so
// callers can classify it and errtag can annotate it.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return ai.NewConnectionError(int(errno), err.Error())
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ai.NewConnectionError(0, err.Error())
	}

	if m := statusCodePattern.FindStringSubmatch(err.Error()); m != nil {
		code, convErr := strconv.Atoi(m[1])
		if convErr == nil {
			return ai.NewAPIStatusError(code, err.Error(), m[2], err)
		}
	}
	return ai.NewProviderError(err.Error())
}
