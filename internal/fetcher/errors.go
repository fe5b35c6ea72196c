package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTransport covers DNS, connection, TLS and body read failures.
	KindTransport Kind = iota

	// KindTimeout means the request did not complete within the timeout.
	KindTimeout

	// KindHTTPStatus means the server answered with a non-2xx status.
	KindHTTPStatus
)

// String returns a human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindTimeout:
		return "timeout"
	case KindHTTPStatus:
		return "http status"
	default:
		return "unknown"
	}
}

// Error is a failed fetch.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// StatusCode is set for KindHTTPStatus.
	StatusCode int

	// URL is the requested URL.
	URL string

	// RetryAfter is the server's Retry-After hint in seconds, if any.
	RetryAfter int

	// Err is the underlying error, nil for KindHTTPStatus.
	Err error
}

// Error implements error. The messages are what the crawl records as
// error_message for the URL.
func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "request timed out"
	case KindHTTPStatus:
		return fmt.Sprintf("%d %s for url: %s", e.StatusCode, http.StatusText(e.StatusCode), e.URL)
	default:
		if e.Err == nil {
			return "request failed"
		}
		return "request failed: " + e.Err.Error()
	}
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt may succeed.
// Timeouts, transport failures, 429 and 5xx are transient; other statuses are permanent.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindTransport:
		return true
	case KindHTTPStatus:
		return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
	default:
		return false
	}
}

// classify wraps a transport-level error from the HTTP client.
func classify(url string, err error) *Error {
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, URL: url, Err: err}
	}

	return &Error{Kind: KindTransport, URL: url, Err: err}
}
