package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout is reported when a request sees no progress within its timeout.
var ErrTimeout = errors.New("request timed out")

// TransportError is a failure to obtain a response: DNS, connect, TLS,
// timeout, redirect limit or a broken body read. It records which client
// attempted the call.
type TransportError struct {
	Client string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s client: %v", e.Client, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, ErrTimeout) || errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func transportError(client string, err error) *TransportError {
	return &TransportError{Client: client, Err: err}
}
