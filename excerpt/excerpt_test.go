package excerpt

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tone(n int, amp float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = amp * float32(math.Sin(float64(i)*0.1))
	}
	return out
}

func TestNew(t *testing.T) {
	s, err := New(0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultFrameLength, s.FrameLength)
	assert.Equal(t, DefaultHopLength, s.HopLength)

	_, err = New(512, 512)
	assert.Error(t, err)
}

func TestSelect_ShortInputUnchanged(t *testing.T) {
	samples := tone(1000, 0.5)
	out, w, err := Default().Select(samples, 100, 10)
	require.NoError(t, err)
	assert.Equal(t, samples, out)
	assert.True(t, w.Whole)
	assert.InDelta(t, 10.0, w.Duration, 1e-12)
}

func TestSelect_InvalidInput(t *testing.T) {
	_, _, err := Default().Select(tone(10, 1), 0, 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = Default().Select(tone(10, 1), 10, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSelect_LoudestSection(t *testing.T) {
	s := &Selector{FrameLength: 4, HopLength: 2}
	sr := 10
	samples := make([]float32, 100)
	for i := 60; i < 80; i++ {
		samples[i] = 1
	}
	out, w, err := s.Select(samples, sr, 2)
	require.NoError(t, err)
	require.Len(t, out, 20)
	assert.False(t, w.Fallback)
	var energy float64
	for _, x := range out {
		energy += float64(x * x)
	}
	assert.GreaterOrEqual(t, energy, 18.0)
	assert.GreaterOrEqual(t, w.Offset, 5.6)
	assert.LessOrEqual(t, w.Offset, 6.2)
}

func TestSelect_ExactLengthAndClamp(t *testing.T) {
	s := &Selector{FrameLength: 4, HopLength: 2}
	samples := make([]float32, 100)
	for i := 95; i < 100; i++ {
		samples[i] = 1
	}
	out, w, err := s.Select(samples, 10, 3)
	require.NoError(t, err)
	assert.Len(t, out, 30)
	assert.LessOrEqual(t, w.Offset+w.Duration, 10.0+1e-9)
	assert.Equal(t, float32(1), out[len(out)-1])
}

func TestSelect_FallbackCentred(t *testing.T) {
	// hop larger than target*sr yields a zero-frame window.
	s := &Selector{FrameLength: 64, HopLength: 32}
	samples := tone(100, 1)
	out, w, err := s.Select(samples, 10, 3)
	require.NoError(t, err)
	assert.True(t, w.Fallback)
	assert.InDelta(t, 3.5, w.Offset, 1e-12)
	assert.Len(t, out, 30)
}

func TestSelect_Deterministic(t *testing.T) {
	samples := tone(22050*40, 0.3)
	for i := 22050 * 20; i < 22050*25; i++ {
		samples[i] *= 3
	}
	s := Default()
	a, wa, err := s.Select(samples, 22050, 30)
	require.NoError(t, err)
	b, wb, err := s.Select(samples, 22050, 30)
	require.NoError(t, err)
	assert.Equal(t, wa, wb)
	assert.Equal(t, len(a), len(b))
	assert.Len(t, a, 22050*30)
}

func TestRMS_CentredFrames(t *testing.T) {
	s := &Selector{FrameLength: 4, HopLength: 2}
	rms := s.RMS([]float32{1, 1, 1, 1, 1, 1})
	require.Len(t, rms, 4)
	// frame 0 covers [-2, 2): two real samples out of four
	assert.InDelta(t, math.Sqrt(0.5), rms[0], 1e-12)
	assert.InDelta(t, 1.0, rms[1], 1e-12)
	assert.InDelta(t, 1.0, rms[2], 1e-12)
	assert.InDelta(t, math.Sqrt(0.5), rms[3], 1e-12)
}

func TestBestWindow_FirstArgmax(t *testing.T) {
	assert.Equal(t, 1, bestWindow([]float64{0, 1, 1, 1, 1, 0}, 2))
	assert.Equal(t, 0, bestWindow([]float64{2, 2, 2, 2}, 2))
}
