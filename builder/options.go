package builder

import (
	"log/slog"
	"runtime"

	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/vector"
)

// Option configures a Builder.
type Option func(*Builder)

// WithDimension fixes the expected feature dimensionality. Zero selects the
// most common length among the input vectors.
func WithDimension(d int) Option { return func(b *Builder) { b.dimension = d } }

// WithExtractorID records the extractor identity in the manifest. Together
// with the sample rate and excerpt window it keys the feature cache.
func WithExtractorID(id string) Option { return func(b *Builder) { b.extractorID = id } }

// WithLogger sets the logger; nil discards.
func WithLogger(l *slog.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithWorkers bounds concurrent extractions; non-positive selects GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(b *Builder) {
		if n <= 0 {
			n = defaultWorkers()
		}
		b.workers = n
	}
}

// WithCache reuses raw vectors from store and records new ones in it.
func WithCache(store vector.Store) Option { return func(b *Builder) { b.cache = store } }

// WithExcerpt makes Extract fingerprint only the most energetic duration
// seconds of each library file, as queries are.
func WithExcerpt(sel *excerpt.Selector, duration float64) Option {
	return func(b *Builder) { b.excerpt = &excerptSpec{selector: sel, duration: duration} }
}

// WithProgress registers a callback invoked once per processed file.
func WithProgress(fn func(filename string, err error)) Option {
	return func(b *Builder) { b.progress = fn }
}

type excerptSpec struct {
	selector *excerpt.Selector
	duration float64
}

func defaultWorkers() int { return runtime.GOMAXPROCS(0) }
