package fetcher

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrRetriesExhausted is returned by HTTPFetcher.Fetch when every attempt
	// failed. Callers treat it as "skip this URL".
	ErrRetriesExhausted = errors.New("fetch failed after all retries")

	// ErrSkipped is returned for hosts configured with skip: true.
	ErrSkipped = errors.New("host is configured to be skipped")

	// ErrRendererClosed is returned when rendering after Close.
	ErrRendererClosed = errors.New("renderer is closed")
)

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Code int
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.Code, http.StatusText(e.Code))
}

// Transient reports whether the status is worth retrying: 408, 425, 429 and
// every 5xx.
func (e *StatusError) Transient() bool {
	switch {
	case e.Code == http.StatusRequestTimeout,
		e.Code == http.StatusTooEarly,
		e.Code == http.StatusTooManyRequests:
		return true
	default:
		return e.Code >= 500
	}
}
