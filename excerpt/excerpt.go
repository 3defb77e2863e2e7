// Package excerpt picks the most energetic fixed-length section of a
// recording, so a query is fingerprinted on the part of a track with the
// most going on rather than an intro or fade-out.
package excerpt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultFrameLength is the RMS analysis frame in samples.
	DefaultFrameLength = 2048
	// DefaultHopLength is the distance between RMS frame centres in samples.
	DefaultHopLength = 512
	// DefaultDuration is the excerpt length in seconds.
	DefaultDuration = 30.0
)

// ErrInvalidInput is returned for a non-positive sample rate or duration.
var ErrInvalidInput = errors.New("excerpt: invalid input")

// Window describes the selected excerpt in seconds.
type Window struct {
	Offset   float64
	Duration float64
	// Whole is set when the input was no longer than the target and was
	// returned unchanged.
	Whole bool
	// Fallback is set when the energy window could not be evaluated and the
	// centred excerpt was used instead.
	Fallback bool
}

// Selector selects excerpts using centred RMS frames.
type Selector struct {
	FrameLength int
	HopLength   int
}

// New returns a Selector, applying defaults for non-positive values.
func New(frameLength, hopLength int) (*Selector, error) {
	if frameLength <= 0 {
		frameLength = DefaultFrameLength
	}
	if hopLength <= 0 {
		hopLength = DefaultHopLength
	}
	if frameLength <= hopLength {
		return nil, fmt.Errorf("excerpt: frame length %d must exceed hop length %d", frameLength, hopLength)
	}
	return &Selector{FrameLength: frameLength, HopLength: hopLength}, nil
}

// Default returns a Selector with a 2048 sample frame and 512 sample hop.
func Default() *Selector {
	return &Selector{FrameLength: DefaultFrameLength, HopLength: DefaultHopLength}
}

// Select returns the target-second excerpt of samples with the highest mean
// RMS energy. Inputs no longer than target are returned unchanged. The
// result aliases samples.
func (s *Selector) Select(samples []float32, sampleRate int, target float64) ([]float32, Window, error) {
	if sampleRate <= 0 || !(target > 0) {
		return nil, Window{}, fmt.Errorf("excerpt: sample rate %d, duration %v: %w", sampleRate, target, ErrInvalidInput)
	}
	total := float64(len(samples)) / float64(sampleRate)
	if total <= target {
		return samples, Window{Duration: total, Whole: true}, nil
	}

	rms := s.RMS(samples)
	window := int(target * float64(sampleRate) / float64(s.HopLength))
	var offset float64
	fallback := false
	if window <= 0 || window > len(rms) {
		offset = math.Max(0, (total-target)/2)
		fallback = true
	} else {
		best := bestWindow(rms, window)
		offset = float64(best*s.HopLength) / float64(sampleRate)
		if offset+target > total {
			offset = math.Max(0, total-target)
		}
	}

	length := int(math.Round(target * float64(sampleRate)))
	start := int(math.Round(offset * float64(sampleRate)))
	if start+length > len(samples) {
		start = len(samples) - length
	}
	if start < 0 {
		start = 0
	}
	return samples[start : start+length], Window{Offset: offset, Duration: target, Fallback: fallback}, nil
}

// RMS returns the root-mean-square energy of centred frames: frame i covers
// samples [i*hop - frame/2, i*hop + frame/2), zero padded at both edges.
// There are 1 + len(samples)/hop frames.
func (s *Selector) RMS(samples []float32) []float64 {
	n := len(samples)
	sq := make([]float64, n+1)
	for i, x := range samples {
		sq[i+1] = float64(x) * float64(x)
	}
	floats.CumSum(sq, sq)

	half := s.FrameLength / 2
	count := 1 + n/s.HopLength
	out := make([]float64, count)
	for i := range out {
		lo := i*s.HopLength - half
		hi := lo + s.FrameLength
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		var energy float64
		if hi > lo {
			energy = sq[hi] - sq[lo]
		}
		if energy < 0 {
			energy = 0
		}
		out[i] = math.Sqrt(energy / float64(s.FrameLength))
	}
	return out
}

// bestWindow returns the first start frame of the window-frame run with the
// highest mean RMS.
func bestWindow(rms []float64, window int) int {
	sums := make([]float64, len(rms)+1)
	copy(sums[1:], rms)
	floats.CumSum(sums, sums)

	best, bestAvg := 0, math.Inf(-1)
	for i := 0; i+window <= len(rms); i++ {
		avg := (sums[i+window] - sums[i]) / float64(window)
		// rounding-level differences must not move a plateau off its first frame
		if avg > bestAvg+1e-12*math.Abs(bestAvg) {
			best, bestAvg = i, avg
		}
	}
	return best
}
