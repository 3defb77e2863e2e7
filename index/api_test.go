package index

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{
		"ip":        MetricInnerProduct,
		"Cosine":    MetricInnerProduct,
		" l2 ":      MetricL2,
		"euclidean": MetricL2,
	} {
		got, err := ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
		assert.True(t, got.Valid())
	}
	_, err := ParseMetric("hamming")
	assert.Error(t, err)
	assert.False(t, Metric(0).Valid())
}

func TestMetricBetter(t *testing.T) {
	assert.True(t, MetricInnerProduct.Better(0.9, 0.1))
	assert.False(t, MetricInnerProduct.Better(0.1, 0.9))
	assert.True(t, MetricL2.Better(0.1, 0.9))
}

func TestDimensionError(t *testing.T) {
	err := fmt.Errorf("load: %w", &DimensionError{Op: "append", Expected: 64, Actual: 51})
	assert.True(t, IsDimensionError(err))
	assert.Contains(t, err.Error(), "expected 64, got 51")
	assert.False(t, IsDimensionError(ErrInvalidK))
}
