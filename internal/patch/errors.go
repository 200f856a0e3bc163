package patch

import (
	"errors"
	"fmt"
)

// Sentinel errors for queue operations.
var (
	// ErrInvalidSpan is returned when request offsets are inverted or out of
	// the base text's bounds.
	ErrInvalidSpan = errors.New("invalid span")

	// ErrSpanOverlap is returned when a request's span intersects an
	// already-queued request.
	ErrSpanOverlap = errors.New("span overlaps a queued request")

	// ErrStaleRequest is returned when a request's recorded selection no
	// longer matches the live text at its offsets.
	ErrStaleRequest = errors.New("request selection is stale")

	// ErrSelectionMismatch is returned at Add time when the provided
	// selection does not match the base text at the given offsets.
	ErrSelectionMismatch = errors.New("selection does not match base text")

	// ErrUnknownRequest is returned when removing a request id that is not queued.
	ErrUnknownRequest = errors.New("unknown request id")
)

// StaleError reports a drifted request excluded from a batch. It carries a
// character-level diff between the recorded selection and the live text so
// callers can show the author what moved underneath their mark.
type StaleError struct {
	RequestID string
	Expected  string
	Actual    string
	Diff      string
}

// Error implements the error interface.
func (e *StaleError) Error() string {
	return fmt.Sprintf("request %s: selection drifted from base text", e.RequestID)
}

// Is allows errors.Is to match StaleError with ErrStaleRequest.
func (e *StaleError) Is(target error) bool {
	return target == ErrStaleRequest
}
