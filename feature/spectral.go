package feature

import (
	"context"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/window"
	"github.com/viant/tracksim/vector"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultFrameSize = 2048
	DefaultHopSize   = 512
	DefaultBands     = 27

	minBandHz   = 40.0
	maxBandHz   = 16000.0
	rolloffFrac = 0.85
	logFloor    = 1e-10
	scalarStats = 5
)

// Spectral is the reference extractor. For each Hann-windowed frame it
// measures the log energy of Bands log-spaced frequency bands, spectral
// centroid, 85% rolloff, flatness, zero-crossing rate and RMS. The vector is
// the per-frame mean and population standard deviation of each measure:
// band means, band stds, then mean/std pairs of the five scalars.
type Spectral struct {
	FrameSize int
	HopSize   int
	Bands     int

	win []float64
}

// NewSpectral returns a Spectral extractor. Non-positive values select the
// defaults (2048, 512, 27), which yield 64 dimensions.
func NewSpectral(frameSize, hopSize, bands int) (*Spectral, error) {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	if hopSize <= 0 {
		hopSize = DefaultHopSize
	}
	if bands <= 0 {
		bands = DefaultBands
	}
	if hopSize > frameSize {
		return nil, fmt.Errorf("feature: hop %d exceeds frame %d", hopSize, frameSize)
	}
	if bands > frameSize/2 {
		return nil, fmt.Errorf("feature: %d bands for %d FFT bins", bands, frameSize/2)
	}
	return &Spectral{
		FrameSize: frameSize,
		HopSize:   hopSize,
		Bands:     bands,
		win:       window.Hann(frameSize),
	}, nil
}

func (s *Spectral) ID() string {
	return fmt.Sprintf("spectral-v1-f%d-h%d-b%d", s.FrameSize, s.HopSize, s.Bands)
}

func (s *Spectral) Dimension() int { return 2*s.Bands + 2*scalarStats }

// Extract computes the feature vector. It is safe for concurrent use; each
// call owns its FFT plan since a gonum plan is not.
func (s *Spectral) Extract(ctx context.Context, samples []float32, sampleRate int) (vector.FeatureVector, error) {
	if sampleRate <= 0 || len(samples) == 0 || !audible(samples) {
		return vector.FeatureVector{}, nil
	}
	n := s.FrameSize
	frames := 1
	if len(samples) > n {
		frames += (len(samples) - n) / s.HopSize
	}
	edges := s.bandEdges(sampleRate)
	bins := n/2 + 1
	binHz := float64(sampleRate) / float64(n)

	bandSeries := make([][]float64, s.Bands)
	for b := range bandSeries {
		bandSeries[b] = make([]float64, frames)
	}
	scalars := make([][]float64, scalarStats)
	for i := range scalars {
		scalars[i] = make([]float64, frames)
	}

	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	power := make([]float64, bins)
	coeffs := make([]complex128, bins)
	for f := 0; f < frames; f++ {
		if f%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := f * s.HopSize
		var sq float64
		crossings := 0
		for k := 0; k < n; k++ {
			var x float64
			if start+k < len(samples) {
				x = float64(samples[start+k])
			}
			sq += x * x
			if k > 0 && (x >= 0) != (buf[k-1] >= 0) {
				crossings++
			}
			buf[k] = x
		}
		scalars[3][f] = float64(crossings) / float64(n)
		scalars[4][f] = math.Sqrt(sq / float64(n))

		for k := range buf {
			buf[k] *= s.win[k]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		var total, weighted, logSum float64
		for k, c := range coeffs {
			p := real(c)*real(c) + imag(c)*imag(c)
			power[k] = p
			total += p
			weighted += p * float64(k) * binHz
			logSum += math.Log(p + logFloor)
		}

		for b := 0; b < s.Bands; b++ {
			lo := int(math.Ceil(edges[b] / binHz))
			hi := int(math.Ceil(edges[b+1] / binHz))
			if hi <= lo {
				hi = lo + 1
			}
			var e float64
			for k := lo; k < hi && k < bins; k++ {
				e += power[k]
			}
			bandSeries[b][f] = math.Log(e + logFloor)
		}

		if total > 0 {
			scalars[0][f] = weighted / total
			var cum float64
			for k, p := range power {
				cum += p
				if cum >= rolloffFrac*total {
					scalars[1][f] = float64(k) * binHz
					break
				}
			}
			scalars[2][f] = math.Exp(logSum/float64(bins)) / (total/float64(bins) + logFloor)
		}
	}

	out := make([]float64, 0, s.Dimension())
	for _, series := range bandSeries {
		out = append(out, stat.Mean(series, nil))
	}
	for _, series := range bandSeries {
		out = append(out, stat.PopStdDev(series, nil))
	}
	for _, series := range scalars {
		out = append(out, stat.Mean(series, nil), stat.PopStdDev(series, nil))
	}
	return vector.FromFloat64s(out), nil
}

// bandEdges returns Bands+1 log-spaced edges in Hz, capped at Nyquist.
func (s *Spectral) bandEdges(sampleRate int) []float64 {
	top := math.Min(maxBandHz, float64(sampleRate)/2)
	bottom := math.Min(minBandHz, top/2)
	edges := make([]float64, s.Bands+1)
	ratio := top / bottom
	for i := range edges {
		edges[i] = bottom * math.Pow(ratio, float64(i)/float64(s.Bands))
	}
	return edges
}

func audible(samples []float32) bool {
	loud := false
	for _, x := range samples {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
		if x != 0 {
			loud = true
		}
	}
	return loud
}

var _ Extractor = (*Spectral)(nil)
var _ Extractor = Func{}
