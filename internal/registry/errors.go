package registry

import (
	"errors"
	"fmt"
)

// ErrUnavailable is returned when the registry's circuit breaker is open.
var ErrUnavailable = errors.New("registry unavailable")

// HTTPError represents a non-2xx response from the registry.
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.URL)
}

// IsNotFound returns true if the error represents a 404 response.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}
