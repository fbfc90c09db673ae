package engine

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by Search while no index has been installed
	ErrNotReady = errors.New("index not ready")

	// ErrInvalidQuery is returned for queries shorter than the minimum length
	ErrInvalidQuery = errors.New("invalid query")

	// ErrBuildAlreadyInProgress is returned when a build is requested while
	// another one is running
	ErrBuildAlreadyInProgress = errors.New("index build already in progress")

	// ErrSearchFailed matches any *SearchFailedError
	ErrSearchFailed = errors.New("search failed")
)

// SearchFailedError wraps an embedding or ranking failure during a search
type SearchFailedError struct {
	Cause error
}

func (e *SearchFailedError) Error() string {
	return fmt.Sprintf("%s: %v", ErrSearchFailed, e.Cause)
}

func (e *SearchFailedError) Unwrap() error { return e.Cause }

func (e *SearchFailedError) Is(target error) bool { return target == ErrSearchFailed }

// Timeout reports whether the search ran out of time
func (e *SearchFailedError) Timeout() bool {
	return errors.Is(e.Cause, context.DeadlineExceeded)
}
