package eventsearch

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidQuery is returned when a query is rejected before any store call.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrDimensionMismatch is returned when a vector's length disagrees with the store's.
	// It is not retryable.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStoreUnavailable is returned when a store cannot be reached or fails a request.
	// Callers may retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrStoreTimeout is returned when a store round trip exceeds the caller's deadline
	// or is cancelled.
	ErrStoreTimeout = errors.New("store timeout")

	// ErrEmptyEmbedding is returned when the embedding generator yields no usable vector.
	// It is terminal for the request.
	ErrEmptyEmbedding = errors.New("empty embedding")

	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
)

// DimensionError reports the expected and actual vector lengths.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("dimension mismatch: store has %d, vector has %d", e.Want, e.Got)
}

// Unwrap lets errors.Is match ErrDimensionMismatch.
func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

// CheckDimensions returns a *DimensionError if len(vec) differs from dims.
// A non-positive dims disables the check.
func CheckDimensions(vec []float32, dims int) error {
	if dims > 0 && len(vec) != dims {
		return &DimensionError{Want: dims, Got: len(vec)}
	}
	return nil
}

// StoreError classifies err from a store round trip named op. Errors already carrying
// one of the package sentinels are wrapped as-is; context deadline and cancellation map
// to ErrStoreTimeout; everything else maps to ErrStoreUnavailable.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrDimensionMismatch),
		errors.Is(err, ErrStoreTimeout),
		errors.Is(err, ErrStoreUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%s: %w: %v", op, ErrStoreTimeout, err)
	default:
		return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
	}
}
