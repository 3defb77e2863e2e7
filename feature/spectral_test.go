package feature

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracksim/vector"
)

func sine(freq float64, sr, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr)))
	}
	return out
}

func TestNewSpectral_Defaults(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 64, s.Dimension())
	assert.Equal(t, "spectral-v1-f2048-h512-b27", s.ID())

	_, err = NewSpectral(512, 1024, 8)
	assert.Error(t, err)
}

func TestSpectral_Extract(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	v, err := s.Extract(context.Background(), sine(440, 22050, 22050*2), 22050)
	require.NoError(t, err)
	require.Len(t, v, s.Dimension())
	require.NoError(t, v.Validate())

	centroid := v[2*s.Bands]
	assert.InDelta(t, 440, centroid, 60, "centroid of a pure tone sits near its frequency")
}

func TestSpectral_Deterministic(t *testing.T) {
	s, err := NewSpectral(1024, 256, 16)
	require.NoError(t, err)
	in := sine(1000, 16000, 16000)
	a, err := s.Extract(context.Background(), in, 16000)
	require.NoError(t, err)
	b, err := s.Extract(context.Background(), in, 16000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSpectral_Discriminates(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	ctx := context.Background()
	low, err := s.Extract(ctx, sine(220, 22050, 22050), 22050)
	require.NoError(t, err)
	low2, err := s.Extract(ctx, sine(225, 22050, 22050), 22050)
	require.NoError(t, err)
	high, err := s.Extract(ctx, sine(4000, 22050, 22050), 22050)
	require.NoError(t, err)

	near, err := vector.L2Distance(low, low2)
	require.NoError(t, err)
	far, err := vector.L2Distance(low, high)
	require.NoError(t, err)
	assert.Less(t, near, far)
}

func TestSpectral_UnusableInput(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	ctx := context.Background()

	v, err := s.Extract(ctx, make([]float32, 4096), 22050)
	require.NoError(t, err)
	assert.Empty(t, v)

	v, err = s.Extract(ctx, nil, 22050)
	require.NoError(t, err)
	assert.Empty(t, v)

	bad := sine(440, 22050, 4096)
	bad[10] = float32(math.NaN())
	v, err = s.Extract(ctx, bad, 22050)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestSpectral_ShortInputPadded(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	v, err := s.Extract(context.Background(), sine(440, 22050, 300), 22050)
	require.NoError(t, err)
	assert.Len(t, v, 64)
}

func TestSpectral_Cancelled(t *testing.T) {
	s, err := NewSpectral(0, 0, 0)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Extract(ctx, sine(440, 22050, 22050), 22050)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFunc(t *testing.T) {
	f := Func{Name: "const", Dim: 2, Fn: func(context.Context, []float32, int) (vector.FeatureVector, error) {
		return vector.FeatureVector{1, 2}, nil
	}}
	assert.Equal(t, "const", f.ID())
	assert.Equal(t, 2, f.Dimension())
	v, err := f.Extract(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, vector.FeatureVector{1, 2}, v)
}
