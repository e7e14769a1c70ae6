package alphasms

import (
	"errors"
	"fmt"
)

// Sentinel errors callers can match with errors.Is. Gateway-level rejections
// carry their own type, ProviderError, and are matched with errors.As.
var (
	// ErrInvalidArgument indicates malformed caller input, detected before any
	// network call is made.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransport indicates an HTTP-layer failure: unreachable gateway,
	// timeout, or a non-2xx status.
	ErrTransport = errors.New("transport failure")
	// ErrMalformedResponse indicates the gateway returned XML that is missing
	// required fields or is inconsistent with the request.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrInvalidState indicates an operation on a MessageQueue that has
	// already been flushed.
	ErrInvalidState = errors.New("invalid state")
)

// ProviderError is returned when the gateway itself rejects a request, for
// example on insufficient balance or an unregistered sender signature. Code is
// the gateway's own error code.
type ProviderError struct {
	Code    int
	Message string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Code, e.Message)
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// wrapTransport annotates an error so callers can detect transport failures.
func wrapTransport(err error) error {
	if err == nil {
		return ErrTransport
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}
