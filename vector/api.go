package vector

import (
	"fmt"
	"math"
)

// FeatureVector is the fixed-length acoustic fingerprint of a track, as
// produced by a feature extractor. All vectors held by one index share the
// same dimensionality.
type FeatureVector []float32

// Dimension returns the number of components.
func (v FeatureVector) Dimension() int { return len(v) }

// Validate reports whether v is a usable feature vector: non-empty and free
// of NaN and infinite components.
func (v FeatureVector) Validate() error {
	if len(v) == 0 {
		return ErrEmpty
	}
	for i, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("vector: component %d is %v: %w", i, x, ErrMalformed)
		}
	}
	return nil
}

// Clone returns a copy of v.
func (v FeatureVector) Clone() FeatureVector {
	if v == nil {
		return nil
	}
	return append(FeatureVector(nil), v...)
}

// Float64s widens v to float64.
func (v FeatureVector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

// FromFloat64s narrows a float64 slice to a FeatureVector.
func FromFloat64s(src []float64) FeatureVector {
	out := make(FeatureVector, len(src))
	for i, x := range src {
		out[i] = float32(x)
	}
	return out
}
