// Package feature defines the acoustic feature extractor contract and ships
// a deterministic spectral reference extractor.
package feature

import (
	"context"

	"github.com/viant/tracksim/vector"
)

// Extractor turns mono PCM samples into a fixed-length feature vector.
//
// Implementations return an empty vector, with a nil error, for input they
// cannot analyze (silence, undecodable or non-finite samples). The returned
// error is reserved for failures of the extractor itself, such as context
// cancellation.
type Extractor interface {
	// ID identifies the extractor and its parameters. Vectors produced under
	// different IDs are not comparable.
	ID() string

	// Dimension is the length of every non-empty vector returned by Extract.
	Dimension() int

	Extract(ctx context.Context, samples []float32, sampleRate int) (vector.FeatureVector, error)
}

// Func adapts a function to the Extractor interface.
type Func struct {
	Name string
	Dim  int
	Fn   func(ctx context.Context, samples []float32, sampleRate int) (vector.FeatureVector, error)
}

func (f Func) ID() string     { return f.Name }
func (f Func) Dimension() int { return f.Dim }

func (f Func) Extract(ctx context.Context, samples []float32, sampleRate int) (vector.FeatureVector, error) {
	return f.Fn(ctx, samples, sampleRate)
}
