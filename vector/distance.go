package vector

import (
	"fmt"
	"math"

	"github.com/viant/vec/search"
	"gonum.org/v1/gonum/floats"
)

// CosineSimilarity computes the cosine similarity between two vectors. It
// returns an error if the vectors have different lengths or if either vector
// has zero magnitude.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: cosine similarity dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vector: cosine similarity on empty vectors")
	}
	va := search.Float32s(a)
	ma, mb := va.Magnitude(), search.Float32s(b).Magnitude()
	if ma == 0 || mb == 0 {
		return 0, fmt.Errorf("vector: cosine similarity with zero-magnitude vector")
	}
	return 1 - float64(va.CosineDistanceWithMagnitude(b, ma, mb)), nil
}

// L2Distance computes the Euclidean (L2) distance between two vectors. It
// returns an error if the vectors have different lengths.
func L2Distance(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector: L2 distance dimension mismatch: %d vs %d", len(a), len(b))
	}
	return float64(search.Float32s(a).EuclideanDistance(b)), nil
}

// Dot computes the inner product of two equal-length vectors, accumulating
// in float64 so index scores keep their ranking precision.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// NormalizeL2 divides v by its Euclidean norm in place. The norm is computed
// in float64 so that the float32 result has unit length within float32
// rounding. ErrZeroNorm is returned, and v left untouched, when the norm is
// zero.
func NormalizeL2(v []float64) error {
	norm := floats.Norm(v, 2)
	if norm == 0 || math.IsNaN(norm) {
		return ErrZeroNorm
	}
	floats.Scale(1/norm, v)
	return nil
}
