// Package ingest fetches SEC XBRL company facts and daily prices, and
// reads and writes the raw-fact table the normalizer consumes.
package ingest

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownTicker means the ticker is absent from the SEC ticker map
	ErrUnknownTicker = errors.New("unknown ticker")

	// ErrSchema means a table is missing a required column or has an unparsable row
	ErrSchema = errors.New("invalid table schema")

	// ErrDisallowed means robots.txt forbids the request
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrBodyTooLarge means a response exceeded the configured size limit
	ErrBodyTooLarge = errors.New("response body too large")
)

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code       int
	Status     string
	URL        string
	RetryAfter time.Duration // From the Retry-After header, zero if absent
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}
