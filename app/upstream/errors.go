package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError is returned when the upstream answers with a non-2xx status.
type HTTPError struct {
	StatusCode int
	StatusText string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, e.StatusText)
}

// FetchExhaustedError is returned once every attempt for a URL has failed.
// Retries holds the number of attempts actually made.
type FetchExhaustedError struct {
	URL     string
	Retries int
	Err     error
}

func (e *FetchExhaustedError) Error() string {
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.URL, e.Retries, e.Err)
}

func (e *FetchExhaustedError) Unwrap() error {
	return e.Err
}

func IsForbidden(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusForbidden
}
