package rewrite

import (
	"errors"
	"fmt"
)

// ErrUpstream matches any provider failure wrapped as *UpstreamError.
var ErrUpstream = errors.New("upstream provider error")

// UpstreamError carries minimal diagnostics for a provider failure: which
// provider, the HTTP status when known, and the provider's message. The
// original error is preserved for unwrapping, never discarded.
type UpstreamError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: upstream error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: upstream error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match UpstreamError with ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// Upstream wraps err as an *UpstreamError for the named provider. A nil err
// yields a generic message so the classification is never lost.
func Upstream(provider string, err error) *UpstreamError {
	msg := "unspecified failure"
	if err != nil {
		msg = err.Error()
	}
	return &UpstreamError{Provider: provider, Message: msg, Err: err}
}
