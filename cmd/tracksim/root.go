package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/tracksim/artifact"
	"github.com/viant/tracksim/audio"
	"github.com/viant/tracksim/engine"
	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/feature"
	"github.com/viant/tracksim/internal/config"
	"github.com/viant/tracksim/vector"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:          "tracksim",
	Short:        "Find acoustically similar tracks in an audio library",
	SilenceUsage: true,
	Long: `tracksim fingerprints every file of an audio library, builds a cosine
similarity index over the standardized fingerprints and ranks library tracks
against the most energetic excerpt of a query recording.`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to tracksim.yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles what the subcommands share.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
}

func setup() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return &app{cfg: cfg, logger: newLogger(cfg.Log, os.Stderr)}, nil
}

func newLogger(c config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (a *app) extractor() (*feature.Spectral, error) {
	f := a.cfg.Feature
	ex, err := feature.NewSpectral(f.FrameSize, f.HopSize, f.Bands)
	if err != nil {
		return nil, err
	}
	if f.Dimension != 0 && ex.Dimension() != f.Dimension {
		return nil, fmt.Errorf("feature.dimension %d does not match extractor dimension %d", f.Dimension, ex.Dimension())
	}
	return ex, nil
}

func (a *app) selector() (*excerpt.Selector, error) {
	return excerpt.New(a.cfg.Excerpt.FrameLength, a.cfg.Excerpt.HopLength)
}

func (a *app) decoder() *audio.Decoder {
	return audio.NewDecoder(a.cfg.Audio.FFmpeg, a.cfg.Audio.SampleRate)
}

// repository opens the configured artifact repository. The returned closer
// is never nil.
func (a *app) repository(ctx context.Context) (artifact.Repository, func(), error) {
	compression, err := artifact.ParseCompression(a.cfg.Index.Compression)
	if err != nil {
		return nil, func() {}, err
	}
	opts := []artifact.Option{artifact.WithCompression(compression), artifact.WithLogger(a.logger)}
	if a.cfg.Index.Backend == config.BackendSQLite {
		db, err := engine.OpenFile(a.cfg.Index.Database)
		if err != nil {
			return nil, func() {}, err
		}
		repo, err := artifact.NewSQLiteRepository(ctx, db, opts...)
		if err != nil {
			_ = db.Close()
			return nil, func() {}, err
		}
		return repo, func() { _ = db.Close() }, nil
	}
	return artifact.NewDirRepository(a.cfg.Index.Dir, opts...), func() {}, nil
}

// featureCache opens the raw feature cache when build.cache is set.
func (a *app) featureCache() (*vector.SQLiteStore, *sql.DB, error) {
	if a.cfg.Build.Cache == "" {
		return nil, nil, nil
	}
	if err := engine.RegisterVectorFunctions(nil); err != nil {
		return nil, nil, err
	}
	db, err := engine.OpenFile(a.cfg.Build.Cache)
	if err != nil {
		return nil, nil, err
	}
	store, err := vector.NewSQLiteStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
