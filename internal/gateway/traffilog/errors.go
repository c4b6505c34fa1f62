package traffilog

import (
	"errors"
	"fmt"
	"strings"
)

const maxErrorBodyPreview = 500

var (
	// ErrAuth indicates the login call failed or returned no session token.
	ErrAuth = errors.New("traffilog: authentication failed")

	// ErrNoPosition indicates the data query returned no records for the
	// requested license number.
	ErrNoPosition = errors.New("traffilog: no position data")

	// ErrVehicleNotFound indicates the upstream reported an error record for
	// the license number (unknown vehicle or no authorization for it).
	ErrVehicleNotFound = errors.New("traffilog: vehicle not found or not authorized")

	// ErrBadCoordinates indicates a data record carried coordinates that
	// could not be parsed as finite numbers.
	ErrBadCoordinates = errors.New("traffilog: unparseable coordinates")
)

// UpstreamError carries HTTP context for a failed call to the fleet-tracking
// API. Body holds a truncated preview of the upstream response, never the
// request payload, so credentials cannot leak through it.
type UpstreamError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Cause      error
}

func (e *UpstreamError) Error() string {
	parts := []string{"traffilog: " + e.Op + " request failed"}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if e.URL != "" {
		parts = append(parts, e.URL)
	}
	if preview := compactBodyPreview(e.Body); preview != "" {
		parts = append(parts, fmt.Sprintf("body=%q", preview))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}
	return strings.Join(parts, "; ")
}

func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

func compactBodyPreview(body string) string {
	body = strings.Join(strings.Fields(body), " ")
	if len(body) > maxErrorBodyPreview {
		return body[:maxErrorBodyPreview] + "..."
	}
	return body
}
