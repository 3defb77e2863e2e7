package query

import (
	"log/slog"

	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/library"
)

// Option configures an Engine.
type Option func(*Engine)

// WithExcerpt overrides the excerpt selector and its target duration in
// seconds.
func WithExcerpt(sel *excerpt.Selector, duration float64) Option {
	return func(e *Engine) {
		if sel != nil {
			e.selector = sel
		}
		if duration > 0 {
			e.duration = duration
		}
	}
}

// WithDecoder enables QueryFile; samples are decoded at sampleRate.
func WithDecoder(d Decoder, sampleRate int) Option {
	return func(e *Engine) {
		e.decoder = d
		e.sampleRate = sampleRate
	}
}

// WithLibrary attaches display metadata to results.
func WithLibrary(l *library.Library) Option { return func(e *Engine) { e.library = l } }

// WithLogger sets the logger; nil discards.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }
