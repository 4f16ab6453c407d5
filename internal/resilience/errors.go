package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks a source failure as safe to retry: rate limiting,
// server-side errors, network timeouts.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient. statusCode is zero for
// non-HTTP failures.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// transientMessages are substrings of client errors that hide a retryable
// network failure behind a plain error value.
var transientMessages = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
}

// IsTransient reports whether the error chain contains a TransientError, a
// network timeout, or a connection-level failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	for _, errno := range []syscall.Errno{syscall.ECONNRESET, syscall.ECONNREFUSED, syscall.ECONNABORTED} {
		if errors.Is(err, errno) {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status is worth retrying.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
