package index

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("index: k must be positive")

	// ErrPositionOutOfRange is returned by Reconstruct for unknown positions.
	ErrPositionOutOfRange = errors.New("index: position out of range")

	// ErrCorrupt is returned when a serialized index cannot be decoded.
	ErrCorrupt = errors.New("index: corrupt index data")
)

// DimensionError indicates a vector or persisted artifact whose
// dimensionality disagrees with the configured pipeline. It is a
// configuration-level failure and must not be coerced.
type DimensionError struct {
	Op       string
	Expected int
	Actual   int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("index: %s: dimension mismatch: expected %d, got %d", e.Op, e.Expected, e.Actual)
}

// IsDimensionError reports whether err wraps a *DimensionError.
func IsDimensionError(err error) bool {
	var de *DimensionError
	return errors.As(err, &de)
}
