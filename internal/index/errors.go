package index

import (
	"errors"
	"fmt"

	"github.com/verselens-search-api/internal/verses"
)

var (
	// ErrEmbeddingFailed matches any *EmbeddingFailedError
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrDimensionMismatch is returned when vectors of different lengths meet
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// EmbeddingFailedError reports the verse whose embedding aborted a build
type EmbeddingFailedError struct {
	Reference verses.Reference
	Cause     error
}

func (e *EmbeddingFailedError) Error() string {
	return fmt.Sprintf("embed %s: %v", e.Reference, e.Cause)
}

func (e *EmbeddingFailedError) Unwrap() error { return e.Cause }

func (e *EmbeddingFailedError) Is(target error) bool { return target == ErrEmbeddingFailed }

// DimensionMismatchError reports the first verse whose vector length differs
// from the first vector of the build
type DimensionMismatchError struct {
	Reference verses.Reference
	Got       int
	Want      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("%s: %s has %d components, want %d", ErrDimensionMismatch, e.Reference, e.Got, e.Want)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
