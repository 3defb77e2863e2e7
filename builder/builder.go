// Package builder turns per-track feature vectors into an artifact set:
// it filters unusable vectors, fits the scaler, standardizes and normalizes
// every vector and appends it to a fresh inner-product index, recording the
// position of each track.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/viant/tracksim/artifact"
	"github.com/viant/tracksim/index"
	"github.com/viant/tracksim/index/bruteforce"
	"github.com/viant/tracksim/scaler"
	"github.com/viant/tracksim/vector"
)

// ErrEmptyLibrary is returned when no vector survives validation.
var ErrEmptyLibrary = errors.New("builder: no usable feature vectors")

// Track is one library file and its raw feature vector.
type Track struct {
	Filename string
	Vector   vector.FeatureVector
}

// Skip records a track left out of the index.
type Skip struct {
	Filename string
	Reason   string
}

// Report summarizes a build or an extraction.
type Report struct {
	Input     int
	Indexed   int
	Dimension int
	Skipped   []Skip
}

func (r *Report) skip(logger *slog.Logger, filename, reason string) {
	r.Skipped = append(r.Skipped, Skip{Filename: filename, Reason: reason})
	logger.Warn("skipping track", "filename", filename, "reason", reason)
}

// Builder builds artifact sets.
type Builder struct {
	dimension   int
	extractorID string
	logger      *slog.Logger
	workers     int
	cache       vector.Store
	excerpt     *excerptSpec
	progress    func(filename string, err error)
}

// New returns a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{workers: defaultWorkers()}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.New(slog.DiscardHandler)
	}
	return b
}

// Build indexes tracks in the order given; position i of the result holds
// the i-th surviving track.
func (b *Builder) Build(ctx context.Context, tracks []Track) (*artifact.Set, Report, error) {
	report := Report{Input: len(tracks)}
	dim := b.dimension
	if dim <= 0 {
		dim = majorityDimension(tracks)
		b.logger.Warn("feature dimension not configured, using most common length", "dimension", dim)
	}
	report.Dimension = dim

	survivors := make([]Track, 0, len(tracks))
	for _, t := range tracks {
		if err := t.Vector.Validate(); err != nil {
			if errors.Is(err, vector.ErrEmpty) {
				report.skip(b.logger, t.Filename, "empty feature vector")
			} else {
				report.skip(b.logger, t.Filename, err.Error())
			}
			continue
		}
		if len(t.Vector) != dim {
			report.skip(b.logger, t.Filename, fmt.Sprintf("dimension mismatch: expected %d, got %d", dim, len(t.Vector)))
			continue
		}
		survivors = append(survivors, t)
	}
	if len(survivors) == 0 || dim <= 0 {
		return nil, report, ErrEmptyLibrary
	}
	if err := ctx.Err(); err != nil {
		return nil, report, err
	}

	vecs := make([]vector.FeatureVector, len(survivors))
	for i, t := range survivors {
		vecs[i] = t.Vector
	}
	sc, err := scaler.Fit(vecs)
	if err != nil {
		return nil, report, fmt.Errorf("builder: fit scaler: %w", err)
	}

	idx, err := bruteforce.New(dim, index.MetricInnerProduct)
	if err != nil {
		return nil, report, err
	}
	filenames := make([]string, 0, len(survivors))
	for _, t := range survivors {
		v, err := sc.TransformNormalize(t.Vector)
		if errors.Is(err, vector.ErrZeroNorm) {
			report.skip(b.logger, t.Filename, "zero norm after standardization")
			continue
		}
		if err != nil {
			return nil, report, err
		}
		pos, err := idx.Append(v)
		if err != nil {
			return nil, report, err
		}
		if pos != len(filenames) {
			return nil, report, fmt.Errorf("builder: index assigned position %d, expected %d", pos, len(filenames))
		}
		filenames = append(filenames, t.Filename)
	}
	if len(filenames) == 0 {
		return nil, report, ErrEmptyLibrary
	}
	report.Indexed = len(filenames)

	set := &artifact.Set{
		Manifest: artifact.NewManifest(b.extractorID),
		Index:    idx,
		Scaler:   sc,
		Mapping:  artifact.NewMapping(filenames),
	}
	set.Seal()
	if err := set.Validate(); err != nil {
		return nil, report, err
	}
	b.logger.Info("index built", "count", report.Indexed, "skipped", len(report.Skipped), "dimension", dim)
	return set, report, nil
}

// majorityDimension returns the most common non-zero vector length, the
// smaller length winning ties.
func majorityDimension(tracks []Track) int {
	counts := map[int]int{}
	for _, t := range tracks {
		if len(t.Vector) > 0 {
			counts[len(t.Vector)]++
		}
	}
	dims := make([]int, 0, len(counts))
	for d := range counts {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	best, bestN := 0, 0
	for _, d := range dims {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}
