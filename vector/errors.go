package vector

import "errors"

var (
	// ErrEmpty is returned for a zero-length feature vector.
	ErrEmpty = errors.New("vector: empty feature vector")

	// ErrMalformed is returned for vectors with NaN or infinite components.
	ErrMalformed = errors.New("vector: malformed feature vector")

	// ErrZeroNorm is returned when a vector cannot be L2 normalized.
	ErrZeroNorm = errors.New("vector: zero-norm vector")
)
