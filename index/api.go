package index

import (
	"encoding"
	"fmt"
	"strings"
)

// Metric names the ordering used by a vector index.
type Metric uint8

const (
	// MetricInnerProduct ranks by descending inner product. Over unit-length
	// vectors this equals cosine similarity.
	MetricInnerProduct Metric = iota + 1

	// MetricL2 ranks by ascending Euclidean distance. It is meant for raw,
	// unnormalized vectors.
	MetricL2
)

func (m Metric) String() string {
	switch m {
	case MetricInnerProduct:
		return "ip"
	case MetricL2:
		return "l2"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(m))
	}
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool { return m == MetricInnerProduct || m == MetricL2 }

// ParseMetric parses the String form of a metric.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ip", "inner_product", "dot", "cosine":
		return MetricInnerProduct, nil
	case "l2", "euclidean":
		return MetricL2, nil
	}
	return 0, fmt.Errorf("index: unsupported metric %q", s)
}

// Better reports whether score a ranks ahead of score b under m.
func (m Metric) Better(a, b float64) bool {
	if m == MetricL2 {
		return a < b
	}
	return a > b
}

// Hit is a single search result: the store position of a vector and its
// score under the store metric (distance for L2, similarity for inner
// product).
type Hit struct {
	Position int
	Score    float64
}

// Store is an ordered, append-only collection of fixed-dimension vectors
// addressed by zero-based position, with exact k-nearest-neighbour search.
// Positions are assigned sequentially by Append and never reused.
type Store interface {
	// Append adds a copy of vector and returns its position. A vector whose
	// length differs from Dimension fails with *DimensionError.
	Append(vector []float32) (int, error)

	// Search returns the min(k, Len()) best hits for query ordered by the
	// store metric, ties broken by ascending position.
	Search(query []float32, k int) ([]Hit, error)

	// Reconstruct returns a copy of the vector stored at position.
	Reconstruct(position int) ([]float32, error)

	// Len returns the number of stored vectors.
	Len() int

	// Dimension returns the fixed dimensionality.
	Dimension() int

	// Metric returns the configured metric.
	Metric() Metric

	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}
