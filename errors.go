package slidingsync

import (
	"fmt"

	"github.com/pkg/errors"
)

// CursorExpiredError means the server rejected `pos` with M_UNKNOWN_POS. The
// engine has already reset pos to nil by the time this is returned, so the
// caller's next SyncOnce starts a fresh session.
type CursorExpiredError struct {
	cause error
}

func (e *CursorExpiredError) Error() string {
	return fmt.Sprintf("sliding sync: cursor expired (M_UNKNOWN_POS): %s", e.cause)
}

func (e *CursorExpiredError) Unwrap() error { return e.cause }

func newCursorExpiredError(errCode, errMsg string) *CursorExpiredError {
	return &CursorExpiredError{cause: errors.Errorf("%s: %s", errCode, errMsg)}
}

// TransportFailureError wraps any non-200 response other than M_UNKNOWN_POS,
// or a transport-layer failure (the request never completed).
type TransportFailureError struct {
	StatusCode int
	Body       string
	cause      error
}

func (e *TransportFailureError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("sliding sync: transport failure: %s", e.cause)
	}
	return fmt.Sprintf("sliding sync: transport failure: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *TransportFailureError) Unwrap() error { return e.cause }

func newTransportFailureHTTP(statusCode int, body string) *TransportFailureError {
	return &TransportFailureError{
		StatusCode: statusCode,
		Body:       body,
		cause:      errors.Errorf("HTTP %d", statusCode),
	}
}

func newTransportFailureErr(err error) *TransportFailureError {
	return &TransportFailureError{cause: errors.Wrap(err, "transport")}
}

// MalformedResponseError means a 200 response's JSON shape didn't match the
// minimum contract (e.g. a missing pos). It is fatal for the current tick;
// engine state is left untouched.
type MalformedResponseError struct {
	cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("sliding sync: malformed response: %s", e.cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.cause }

func newMalformedResponseError(format string, args ...interface{}) *MalformedResponseError {
	return &MalformedResponseError{cause: errors.Errorf(format, args...)}
}
