package scaler

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracksim/index"
	"github.com/viant/tracksim/vector"
)

func TestFit_PopulationStats(t *testing.T) {
	s, err := Fit([]vector.FeatureVector{{1, 10}, {3, 10}, {5, 10}})
	require.NoError(t, err)
	assert.Equal(t, 2, s.Dimension())
	assert.InDelta(t, 3.0, s.Means[0], 1e-12)
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.Stds[0], 1e-12)
	assert.InDelta(t, 10.0, s.Means[1], 1e-12)
	assert.Equal(t, 1.0, s.Stds[1], "constant component divides by 1")
}

func TestFit_Errors(t *testing.T) {
	_, err := Fit(nil)
	assert.ErrorIs(t, err, ErrNoSamples)

	_, err = Fit([]vector.FeatureVector{{1, 2}, {1}})
	assert.True(t, index.IsDimensionError(err))
}

func TestTransform(t *testing.T) {
	s := &Scaler{Means: []float64{1, 2}, Stds: []float64{2, 1}}
	z, err := s.Transform([]float32{3, 0})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, -2}, z)

	_, err = s.Transform([]float32{1, 2, 3})
	var de *index.DimensionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 2, de.Expected)
}

func TestTransformNormalize(t *testing.T) {
	s := &Scaler{Means: []float64{0, 0}, Stds: []float64{1, 1}}
	v, err := s.TransformNormalize([]float32{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	_, err = s.TransformNormalize([]float32{0, 0})
	assert.ErrorIs(t, err, vector.ErrZeroNorm)
}

func TestTransformNormalize_UnitLength(t *testing.T) {
	s, err := Fit([]vector.FeatureVector{{1, 2, 3}, {2, 4, 1}, {0, 7, 2}, {5, 1, 1}})
	require.NoError(t, err)
	v, err := s.TransformNormalize([]float32{3, 3, 3})
	require.NoError(t, err)
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
}

func TestMarshalRoundTrip(t *testing.T) {
	s, err := Fit([]vector.FeatureVector{{1, 2, 3}, {4, 5, 7}})
	require.NoError(t, err)
	data, err := s.MarshalBinary()
	require.NoError(t, err)

	var got Scaler
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, s.Means, got.Means)
	assert.Equal(t, s.Stds, got.Stds)

	data[headerSize] ^= 0x01
	assert.ErrorIs(t, got.UnmarshalBinary(data), ErrCorrupt)
	assert.ErrorIs(t, got.UnmarshalBinary(data[:6]), ErrCorrupt)
}
