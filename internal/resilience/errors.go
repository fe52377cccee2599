package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// TransientError marks an error as safe to retry. Clients wrap rate-limit
// and overload responses from model backends in this type so the retry
// loop does not have to know each backend's status codes.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// NewTransientError wraps err as transient. statusCode may be 0 when the
// failure was not an HTTP response.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// Substrings that identify retryable failures from wrapped client errors.
// The first group covers the network layer, the second covers backends:
// Ollama reports "loading model" while it pages a model in, Anthropic
// returns overloaded_error under load, and SQLite in WAL mode can report
// a locked database under concurrent audit writes.
var transientSubstrings = []string{
	"connection reset by peer",
	"broken pipe",
	"connection refused",
	"no such host",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"loading model",
	"overloaded_error",
	"database is locked",
	"database table is locked",
}

// IsTransient reports whether err is worth retrying: an explicit
// TransientError anywhere in the chain, a network timeout or refused
// connection, or a known retryable backend message.
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
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range transientSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsTransientHTTPStatus reports whether an HTTP status from a model
// backend indicates a condition that clears on its own. 529 is Anthropic's
// overloaded status.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504, 529:
		return true
	}
	return false
}
