// Package query answers "which library tracks sound like this recording"
// against a loaded artifact set.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/viant/tracksim/artifact"
	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/feature"
	"github.com/viant/tracksim/index"
	"github.com/viant/tracksim/library"
	"github.com/viant/tracksim/vector"
)

const (
	DefaultK    = 11
	DefaultTopN = 5
)

var (
	// ErrInvalidArgs is returned unless k >= topN >= 1.
	ErrInvalidArgs = errors.New("query: k must be >= topN >= 1")

	// ErrPipelineDrift marks a query vector or extractor that does not match
	// the pipeline the artifacts were built with. It is not recoverable
	// without a rebuild.
	ErrPipelineDrift = errors.New("query: feature pipeline does not match index")

	// ErrUnknownTrack is returned by Similarity for filenames not in the index.
	ErrUnknownTrack = errors.New("query: track not in index")

	// ErrNoDecoder is returned by QueryFile when no decoder is configured.
	ErrNoDecoder = errors.New("query: no audio decoder configured")
)

// Result is one ranked match.
type Result struct {
	Rank     int
	Filename string
	Score    float64
	// Track is the library row for Filename, nil when unknown.
	Track *library.Track
}

// Display returns the track's display name, or the filename without a
// library row.
func (r Result) Display() string {
	if r.Track == nil {
		return r.Filename
	}
	return r.Track.Display()
}

// Decoder loads mono samples for a file.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]float32, error)
}

// Engine runs queries. It is safe for concurrent use; the artifact set is
// treated as immutable.
type Engine struct {
	set        *artifact.Set
	extractor  feature.Extractor
	selector   *excerpt.Selector
	duration   float64
	decoder    Decoder
	sampleRate int
	library    *library.Library
	logger     *slog.Logger
}

// New validates set against itself and against ex and returns an Engine.
// ex may be nil when only QueryVector and Similarity are used.
func New(set *artifact.Set, ex feature.Extractor, opts ...Option) (*Engine, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if ex != nil {
		dim := set.Index.Dimension()
		if d := ex.Dimension(); d > 0 && d != dim {
			return nil, fmt.Errorf("%w: %w", ErrPipelineDrift, &index.DimensionError{Op: "extractor", Expected: dim, Actual: d})
		}
		if id := set.Manifest.Extractor; id != "" && id != ex.ID() {
			return nil, fmt.Errorf("%w: index built with extractor %q, query uses %q", ErrPipelineDrift, id, ex.ID())
		}
	}
	e := &Engine{
		set:       set,
		extractor: ex,
		selector:  excerpt.Default(),
		duration:  excerpt.DefaultDuration,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e, nil
}

// Set returns the artifact set the engine serves.
func (e *Engine) Set() *artifact.Set { return e.set }

// Query selects the most energetic excerpt of samples, extracts its
// features and returns up to topN distinct tracks among the k nearest
// neighbours. Input without usable features yields an empty result.
func (e *Engine) Query(ctx context.Context, samples []float32, sampleRate, k, topN int) ([]Result, error) {
	if err := checkArgs(k, topN); err != nil {
		return nil, err
	}
	if e.extractor == nil {
		return nil, errors.New("query: no feature extractor configured")
	}
	clip, w, err := e.selector.Select(samples, sampleRate, e.duration)
	if err != nil {
		e.logger.Warn("excerpt selection failed", "reason", err)
		return []Result{}, nil
	}
	e.logger.Debug("excerpt selected", "offset", w.Offset, "duration", w.Duration, "fallback", w.Fallback, "whole", w.Whole)

	vec, err := e.extractor.Extract(ctx, clip, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("query: extract: %w", err)
	}
	return e.QueryVector(ctx, vec, k, topN)
}

// QueryFile decodes path and runs Query on it.
func (e *Engine) QueryFile(ctx context.Context, path string, k, topN int) ([]Result, error) {
	if err := checkArgs(k, topN); err != nil {
		return nil, err
	}
	if e.decoder == nil {
		return nil, ErrNoDecoder
	}
	samples, err := e.decoder.Decode(ctx, path)
	if err != nil {
		e.logger.Warn("query audio could not be decoded", "filename", path, "reason", err)
		return []Result{}, nil
	}
	return e.Query(ctx, samples, e.sampleRate, k, topN)
}

// QueryVector ranks library tracks against a raw feature vector.
func (e *Engine) QueryVector(ctx context.Context, vec vector.FeatureVector, k, topN int) ([]Result, error) {
	if err := checkArgs(k, topN); err != nil {
		return nil, err
	}
	if err := vec.Validate(); err != nil {
		e.logger.Warn("no usable query features", "reason", err)
		return []Result{}, nil
	}
	q, err := e.prepare(vec)
	if err != nil {
		if errors.Is(err, vector.ErrZeroNorm) {
			e.logger.Warn("query vector has zero norm after standardization")
			return []Result{}, nil
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	hits, err := e.set.Index.Search(q, k)
	if err != nil {
		return nil, fmt.Errorf("query: search: %w", err)
	}
	return e.rank(hits, topN), nil
}

// Similarity returns the cosine similarity, in standardized feature space,
// between a raw query vector and the indexed track filename.
func (e *Engine) Similarity(ctx context.Context, vec vector.FeatureVector, filename string) (float64, error) {
	pos, ok := e.set.Mapping.Position(filename)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTrack, filename)
	}
	if err := vec.Validate(); err != nil {
		return 0, err
	}
	q, err := e.prepare(vec)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	stored, err := e.set.Index.Reconstruct(pos)
	if err != nil {
		return 0, err
	}
	return clampCosine(vector.Dot(q, stored)), nil
}

func (e *Engine) prepare(vec vector.FeatureVector) (vector.FeatureVector, error) {
	q, err := e.set.Scaler.TransformNormalize(vec)
	if err != nil {
		if index.IsDimensionError(err) {
			return nil, fmt.Errorf("%w: %w", ErrPipelineDrift, err)
		}
		return nil, err
	}
	return q, nil
}

func (e *Engine) rank(hits []index.Hit, topN int) []Result {
	out := make([]Result, 0, topN)
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		name, ok := e.set.Mapping.Filename(h.Position)
		if !ok {
			e.logger.Warn("search hit has no mapping entry", "position", h.Position)
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		r := Result{Rank: len(out) + 1, Filename: name, Score: clampCosine(h.Score)}
		if t, ok := e.library.Lookup(name); ok {
			r.Track = &t
		}
		out = append(out, r)
		if len(out) == topN {
			break
		}
	}
	return out
}

// clampCosine bounds a unit-vector inner product to [-1, 1]; float32
// storage may overshoot by a few ulps.
func clampCosine(s float64) float64 {
	return max(-1, min(1, s))
}

func checkArgs(k, topN int) error {
	if topN < 1 || k < topN {
		return fmt.Errorf("%w: k=%d topN=%d", ErrInvalidArgs, k, topN)
	}
	return nil
}
