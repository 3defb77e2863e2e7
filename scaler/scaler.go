// Package scaler standardizes feature vectors to zero mean and unit variance
// per component. A Scaler is fitted once over the build corpus and persisted
// next to the index so that queries are transformed by exactly the same
// statistics.
package scaler

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/viant/tracksim/index"
	"github.com/viant/tracksim/vector"
	"gonum.org/v1/gonum/stat"
)

// MinStd is the smallest standard deviation used as a divisor. Components
// with a smaller spread are treated as constant and divided by 1.
const MinStd = 1e-8

const (
	magic         = "TSSC"
	formatVersion = 1
	headerSize    = 4 + 2 + 2 + 4
	trailerSize   = 8
)

var (
	// ErrNoSamples is returned by Fit when given no vectors.
	ErrNoSamples = errors.New("scaler: no samples to fit")

	// ErrCorrupt is returned when persisted scaler state cannot be decoded.
	ErrCorrupt = errors.New("scaler: corrupt scaler data")
)

// Scaler holds per-component means and standard deviations. Stds are stored
// after the MinStd substitution, so they are always safe divisors.
type Scaler struct {
	Means []float64
	Stds  []float64
}

// Fit computes population statistics (ddof = 0) over vectors, all of which
// must share the first vector's dimensionality.
func Fit(vectors []vector.FeatureVector) (*Scaler, error) {
	if len(vectors) == 0 {
		return nil, ErrNoSamples
	}
	dim := len(vectors[0])
	if dim == 0 {
		return nil, vector.ErrEmpty
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("scaler: sample %d: %w", i, &index.DimensionError{Op: "fit", Expected: dim, Actual: len(v)})
		}
	}
	s := &Scaler{Means: make([]float64, dim), Stds: make([]float64, dim)}
	col := make([]float64, len(vectors))
	for j := 0; j < dim; j++ {
		for i, v := range vectors {
			col[i] = float64(v[j])
		}
		mean := stat.Mean(col, nil)
		std := stat.PopStdDev(col, nil)
		if std < MinStd || math.IsNaN(std) {
			std = 1
		}
		s.Means[j] = mean
		s.Stds[j] = std
	}
	return s, nil
}

// Dimension returns the number of components the scaler was fitted on.
func (s *Scaler) Dimension() int { return len(s.Means) }

// Transform standardizes v. A length mismatch is a *index.DimensionError.
func (s *Scaler) Transform(v []float32) ([]float64, error) {
	if len(v) != len(s.Means) {
		return nil, &index.DimensionError{Op: "standardize", Expected: len(s.Means), Actual: len(v)}
	}
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = (float64(x) - s.Means[i]) / s.Stds[i]
	}
	return out, nil
}

// TransformNormalize standardizes v and scales the result to unit length.
// Normalization happens in float64 before narrowing. vector.ErrZeroNorm is
// returned when the standardized vector is all zeros.
func (s *Scaler) TransformNormalize(v []float32) (vector.FeatureVector, error) {
	z, err := s.Transform(v)
	if err != nil {
		return nil, err
	}
	if err := vector.NormalizeL2(z); err != nil {
		return nil, err
	}
	return vector.FromFloat64s(z), nil
}

// MarshalBinary encodes: magic "TSSC", version(uint16), reserved(uint16),
// dim(uint32), dim float64 means, dim float64 stds and an xxhash64 checksum
// of all preceding bytes, little-endian.
func (s *Scaler) MarshalBinary() ([]byte, error) {
	if len(s.Means) != len(s.Stds) {
		return nil, fmt.Errorf("scaler: %d means but %d stds", len(s.Means), len(s.Stds))
	}
	out := make([]byte, 0, headerSize+16*len(s.Means)+trailerSize)
	out = append(out, magic...)
	out = binary.LittleEndian.AppendUint16(out, formatVersion)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(s.Means)))
	out = append(out, vector.EncodeFloat64s(s.Means)...)
	out = append(out, vector.EncodeFloat64s(s.Stds)...)
	out = binary.LittleEndian.AppendUint64(out, xxhash.Checksum64(out))
	return out, nil
}

// UnmarshalBinary decodes MarshalBinary output into s.
func (s *Scaler) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize+trailerSize || string(data[:4]) != magic {
		return ErrCorrupt
	}
	body := data[:len(data)-trailerSize]
	if binary.LittleEndian.Uint64(data[len(body):]) != xxhash.Checksum64(body) {
		return fmt.Errorf("scaler: checksum mismatch: %w", ErrCorrupt)
	}
	if v := binary.LittleEndian.Uint16(data[4:]); v != formatVersion {
		return fmt.Errorf("scaler: unsupported format version %d: %w", v, ErrCorrupt)
	}
	dim := int(binary.LittleEndian.Uint32(data[8:]))
	payload := body[headerSize:]
	if dim <= 0 || len(payload) != dim*16 {
		return fmt.Errorf("scaler: dimension %d does not match payload: %w", dim, ErrCorrupt)
	}
	means, err := vector.DecodeFloat64s(payload[:dim*8])
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrCorrupt)
	}
	stds, err := vector.DecodeFloat64s(payload[dim*8:])
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrCorrupt)
	}
	for i, sd := range stds {
		if !(sd > 0) || math.IsInf(sd, 0) {
			return fmt.Errorf("scaler: invalid std %v at %d: %w", sd, i, ErrCorrupt)
		}
	}
	s.Means, s.Stds = means, stds
	return nil
}
