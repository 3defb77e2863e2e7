package artifact

import (
	"context"
	"log/slog"
	"time"
)

// Repository persists artifact sets atomically: Load never observes a
// partially written Save.
type Repository interface {
	Save(ctx context.Context, set *Set) error
	Load(ctx context.Context) (*Set, error)
}

// DefaultLockTimeout bounds how long Save and Load wait for the lock.
const DefaultLockTimeout = 30 * time.Second

type options struct {
	compression Compression
	lockTimeout time.Duration
	logger      *slog.Logger
	name        string
}

// Option configures a repository.
type Option func(*options)

// WithCompression selects index blob compression for the directory layout.
func WithCompression(c Compression) Option { return func(o *options) { o.compression = c } }

// WithLockTimeout overrides DefaultLockTimeout.
func WithLockTimeout(d time.Duration) Option { return func(o *options) { o.lockTimeout = d } }

// WithLogger sets the logger; nil discards.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithName selects the named set inside a SQLite database.
func WithName(name string) Option { return func(o *options) { o.name = name } }

func newOptions(opts []Option) options {
	o := options{compression: CompressionNone, lockTimeout: DefaultLockTimeout, name: "default"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	if o.compression == "" {
		o.compression = CompressionNone
	}
	return o
}
