// Package config loads the tracksim YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Audio configures decoding.
type Audio struct {
	SampleRate int    `yaml:"sample_rate"`
	FFmpeg     string `yaml:"ffmpeg"`
}

// Excerpt configures energy-based excerpt selection.
type Excerpt struct {
	Duration    float64 `yaml:"duration"`
	FrameLength int     `yaml:"frame_length"`
	HopLength   int     `yaml:"hop_length"`
}

// Feature configures the reference extractor.
type Feature struct {
	Dimension int `yaml:"dimension"`
	FrameSize int `yaml:"frame_size"`
	HopSize   int `yaml:"hop_size"`
	Bands     int `yaml:"bands"`
}

// Index configures where artifacts live.
type Index struct {
	Dir         string `yaml:"dir"`
	Backend     string `yaml:"backend"`
	Database    string `yaml:"database,omitempty"`
	Compression string `yaml:"compression"`
}

// Build configures library extraction.
type Build struct {
	Workers    int      `yaml:"workers"`
	Cache      string   `yaml:"cache,omitempty"`
	Extensions []string `yaml:"extensions,omitempty"`
	Excerpt    bool     `yaml:"excerpt"`
}

// Query configures search breadth.
type Query struct {
	K    int `yaml:"k"`
	TopN int `yaml:"top_n"`
}

// Library points at the optional track library CSV.
type Library struct {
	Path string `yaml:"path,omitempty"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the in-memory representation of tracksim.yaml.
type Config struct {
	Audio   Audio   `yaml:"audio"`
	Excerpt Excerpt `yaml:"excerpt"`
	Feature Feature `yaml:"feature"`
	Index   Index   `yaml:"index"`
	Build   Build   `yaml:"build"`
	Query   Query   `yaml:"query"`
	Library Library `yaml:"library"`
	Log     Log     `yaml:"log"`
}

const (
	BackendDir    = "dir"
	BackendSQLite = "sqlite"
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Audio:   Audio{SampleRate: 22050, FFmpeg: "ffmpeg"},
		Excerpt: Excerpt{Duration: 30, FrameLength: 2048, HopLength: 512},
		Feature: Feature{Dimension: 64, FrameSize: 2048, HopSize: 512, Bands: 27},
		Index:   Index{Dir: "models", Backend: BackendDir, Compression: "none"},
		Build:   Build{Extensions: []string{".mp3", ".wav", ".flac"}},
		Query:   Query{K: 11, TopN: 5},
		Log:     Log{Level: "info", Format: "text"},
	}
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot expand ~: %w", err)
	}
	return filepath.Join(home, p[1:]), nil
}

// Load reads path over Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("cannot read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
		}
	}
	if err := cfg.expand(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save marshals cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) expand() error {
	for _, p := range []*string{&c.Index.Dir, &c.Index.Database, &c.Build.Cache, &c.Library.Path, &c.Audio.FFmpeg} {
		v, err := ExpandPath(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate))
	}
	if c.Excerpt.Duration <= 0 {
		errs = append(errs, fmt.Errorf("excerpt.duration must be positive, got %v", c.Excerpt.Duration))
	}
	if c.Excerpt.FrameLength <= c.Excerpt.HopLength || c.Excerpt.HopLength <= 0 {
		errs = append(errs, fmt.Errorf("excerpt.frame_length (%d) must exceed a positive hop_length (%d)", c.Excerpt.FrameLength, c.Excerpt.HopLength))
	}
	if c.Feature.Dimension < 0 {
		errs = append(errs, fmt.Errorf("feature.dimension must not be negative, got %d", c.Feature.Dimension))
	}
	if want := 2*c.Feature.Bands + 10; c.Feature.Dimension != 0 && c.Feature.Bands > 0 && c.Feature.Dimension != want {
		errs = append(errs, fmt.Errorf("feature.dimension %d does not match %d bands (want %d)", c.Feature.Dimension, c.Feature.Bands, want))
	}
	switch c.Index.Backend {
	case BackendDir:
		if c.Index.Dir == "" {
			errs = append(errs, errors.New("index.dir is required for the dir backend"))
		}
	case BackendSQLite:
		if c.Index.Database == "" {
			errs = append(errs, errors.New("index.database is required for the sqlite backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("index.backend must be %q or %q, got %q", BackendDir, BackendSQLite, c.Index.Backend))
	}
	switch c.Index.Compression {
	case "", "none", "zstd":
	default:
		errs = append(errs, fmt.Errorf("index.compression must be none or zstd, got %q", c.Index.Compression))
	}
	if c.Build.Workers < 0 {
		errs = append(errs, fmt.Errorf("build.workers must not be negative, got %d", c.Build.Workers))
	}
	if c.Query.TopN < 1 || c.Query.K < c.Query.TopN {
		errs = append(errs, fmt.Errorf("query requires k >= top_n >= 1, got k=%d top_n=%d", c.Query.K, c.Query.TopN))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
