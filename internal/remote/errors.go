package remote

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError is a non-2xx answer from the remote API.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote %s responded %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("remote %s responded %d: %s", e.Path, e.StatusCode, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *StatusError) Temporary() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == http.StatusRequestTimeout:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// Unauthorized reports a rejected credential.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// FetchError reports where in a collection a page could not be fetched.
type FetchError struct {
	Path   string
	Offset int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
