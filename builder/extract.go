package builder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/feature"
	"github.com/viant/tracksim/vector"
	"golang.org/x/sync/errgroup"
)

// Decoder loads mono samples for a file.
type Decoder interface {
	Decode(ctx context.Context, path string) ([]float32, error)
}

// Extract computes raw feature vectors for files, given as paths relative to
// root, using up to the configured number of workers. Files that fail to
// decode or yield no features are logged and reported as skipped. The
// result is sorted by filename regardless of completion order.
func (b *Builder) Extract(ctx context.Context, root string, files []string, dec Decoder, ex feature.Extractor, sampleRate int) ([]Track, Report, error) {
	report := Report{Input: len(files), Dimension: ex.Dimension()}
	extractorID := b.extractorID
	if extractorID == "" {
		extractorID = ex.ID()
	}
	key := b.cacheKey(extractorID, sampleRate)

	var (
		mu      sync.Mutex
		tracks  = make([]Track, 0, len(files))
		fresh   []vector.Feature
		skipped []Skip
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for _, name := range files {
		g.Go(func() error {
			v, cached, err := b.extractOne(gctx, root, name, dec, ex, sampleRate, key)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				skipped = append(skipped, Skip{Filename: name, Reason: err.Error()})
			case len(v) == 0:
				err = errors.New("no features extracted")
				skipped = append(skipped, Skip{Filename: name, Reason: err.Error()})
			default:
				tracks = append(tracks, Track{Filename: name, Vector: v})
				if !cached {
					fresh = append(fresh, vector.Feature{Filename: name, Extractor: key, Vector: v})
				}
			}
			if b.progress != nil {
				b.progress(name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, report, err
	}

	if b.cache != nil && len(fresh) > 0 {
		if err := b.cache.Put(ctx, fresh); err != nil {
			b.logger.Warn("feature cache update failed", "count", len(fresh), "reason", err)
		}
	}

	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Filename < tracks[j].Filename })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Filename < skipped[j].Filename })
	for _, s := range skipped {
		b.logger.Warn("skipping file", "filename", s.Filename, "reason", s.Reason)
	}
	report.Skipped = skipped
	report.Indexed = len(tracks)
	b.logger.Info("features extracted", "count", len(tracks), "skipped", len(skipped), "cached", len(tracks)-len(fresh))
	return tracks, report, nil
}

// CacheKey identifies the pipeline that produced a cached vector: the
// extractor, the decode sample rate and, when sel is set, the excerpt window.
// Vectors cached under one key are never reused under another.
func CacheKey(extractorID string, sampleRate int, sel *excerpt.Selector, duration float64) string {
	key := fmt.Sprintf("%s@sr%d", extractorID, sampleRate)
	if sel != nil {
		key += fmt.Sprintf("+excerpt-f%d-h%d-d%g", sel.FrameLength, sel.HopLength, duration)
	}
	return key
}

func (b *Builder) cacheKey(extractorID string, sampleRate int) string {
	if b.excerpt == nil {
		return CacheKey(extractorID, sampleRate, nil, 0)
	}
	return CacheKey(extractorID, sampleRate, b.excerpt.selector, b.excerpt.duration)
}

func (b *Builder) extractOne(ctx context.Context, root, name string, dec Decoder, ex feature.Extractor, sampleRate int, key string) (vector.FeatureVector, bool, error) {
	if b.cache != nil {
		v, ok, err := b.cache.Get(ctx, name, key)
		switch {
		case err != nil:
			b.logger.Warn("feature cache read failed", "filename", name, "reason", err)
		case ok && (ex.Dimension() <= 0 || len(v) == ex.Dimension()) && v.Validate() == nil:
			return v, true, nil
		case ok:
			b.logger.Warn("discarding cached features", "filename", name, "dimension", len(v))
		}
	}
	samples, err := dec.Decode(ctx, filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return nil, false, fmt.Errorf("decode: %w", err)
	}
	if b.excerpt != nil {
		samples, _, err = b.excerpt.selector.Select(samples, sampleRate, b.excerpt.duration)
		if err != nil {
			return nil, false, err
		}
	}
	v, err := ex.Extract(ctx, samples, sampleRate)
	if err != nil {
		return nil, false, fmt.Errorf("extract: %w", err)
	}
	return v, false, nil
}
