package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/viant/tracksim/internal/config"
	"github.com/viant/tracksim/library"
	"github.com/viant/tracksim/query"
)

var queryFlags struct {
	k    int
	topN int
	to   string
}

var queryCmd = &cobra.Command{
	Use:   "query <audio-file>",
	Short: "Rank library tracks by similarity to a recording",
	Long: `Select the most energetic excerpt of <audio-file>, fingerprint it and
print the top-N distinct library tracks among its k nearest neighbours.

With --to, print only the similarity between the recording and one indexed
track instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryFlags.k, "k", "k", 0, "search breadth (default query.k)")
	queryCmd.Flags().IntVarP(&queryFlags.topN, "top", "n", 0, "results to show (default query.top_n)")
	queryCmd.Flags().StringVar(&queryFlags.to, "to", "", "indexed filename to compare against")
	rootCmd.AddCommand(queryCmd)
}

// searchLimits merges flags over configuration. The configured k widens to
// cover an explicit --top; an explicit --k is passed through unchanged so
// that an invalid combination is rejected by the engine.
func searchLimits(c config.Query, k, topN int) (int, int) {
	if topN <= 0 {
		topN = c.TopN
	}
	if k > 0 {
		return k, topN
	}
	return max(c.K, topN), topN
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup()
	if err != nil {
		return err
	}
	k, topN := searchLimits(a.cfg.Query, queryFlags.k, queryFlags.topN)

	repo, closeRepo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()
	set, err := repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("cannot load index (run `tracksim build` first): %w", err)
	}
	ex, err := a.extractor()
	if err != nil {
		return err
	}
	sel, err := a.selector()
	if err != nil {
		return err
	}
	dec := a.decoder()
	engine, err := query.New(set, ex,
		query.WithExcerpt(sel, a.cfg.Excerpt.Duration),
		query.WithDecoder(dec, dec.SampleRate),
		query.WithLibrary(a.loadLibrary()),
		query.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	if queryFlags.to != "" {
		return runSimilarity(cmd, a, engine, args[0])
	}

	results, err := engine.QueryFile(ctx, args[0], k, topN)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		printErr("", "could not extract features from this file; try a different audio file or format")
		return nil
	}
	printSection("Top similar tracks")
	for _, r := range results {
		id := "not found"
		if r.Track != nil && r.Track.TrackID > 0 {
			id = fmt.Sprintf("%d", r.Track.TrackID)
		}
		fmt.Printf("  %d. ID %s | %s\n     similarity %.3f  (%s)\n", r.Rank, id, r.Display(), r.Score, r.Filename)
	}
	return nil
}

func runSimilarity(cmd *cobra.Command, a *app, engine *query.Engine, path string) error {
	ctx := cmd.Context()
	samples, err := a.decoder().Decode(ctx, path)
	if err != nil {
		return err
	}
	sel, err := a.selector()
	if err != nil {
		return err
	}
	clip, _, err := sel.Select(samples, a.cfg.Audio.SampleRate, a.cfg.Excerpt.Duration)
	if err != nil {
		return err
	}
	ex, err := a.extractor()
	if err != nil {
		return err
	}
	vec, err := ex.Extract(ctx, clip, a.cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	s, err := engine.Similarity(ctx, vec, queryFlags.to)
	if err != nil {
		return err
	}
	fmt.Printf("similarity to %s: %.3f\n", queryFlags.to, s)
	return nil
}

// loadLibrary returns the configured library, or nil when it is unset or
// unreadable; results then show raw filenames.
func (a *app) loadLibrary() *library.Library {
	if a.cfg.Library.Path == "" {
		return nil
	}
	lib, err := library.Load(a.cfg.Library.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("track library not found, showing filenames", "filename", a.cfg.Library.Path)
		} else {
			a.logger.Warn("track library unreadable, showing filenames", "filename", a.cfg.Library.Path, "reason", err)
		}
		return nil
	}
	return lib
}
