package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"github.com/viant/tracksim/audio"
	"github.com/viant/tracksim/builder"
)

var buildFlags struct {
	workers int
	noCache bool
	quiet   bool
}

var buildCmd = &cobra.Command{
	Use:   "build <audio-dir>",
	Short: "Extract features from a library and rebuild the index",
	Long: `Walk <audio-dir>, fingerprint every audio file and replace the index
artifacts (index, scaler, position mapping, manifest) as one unit.

Filenames are stored relative to <audio-dir>. Files that cannot be decoded or
yield no features are reported and left out.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().IntVarP(&buildFlags.workers, "workers", "w", 0, "parallel extractions (default build.workers or GOMAXPROCS)")
	buildCmd.Flags().BoolVar(&buildFlags.noCache, "no-cache", false, "ignore build.cache and re-extract every file")
	buildCmd.Flags().BoolVarP(&buildFlags.quiet, "quiet", "q", false, "hide the progress bar")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup()
	if err != nil {
		return err
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	files, err := audio.Collect(root, a.cfg.Build.Extensions)
	if err != nil {
		return fmt.Errorf("cannot scan %s: %w", root, err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no audio files found under %s", root)
	}
	ex, err := a.extractor()
	if err != nil {
		return err
	}
	dec := a.decoder()
	if !dec.Available() {
		return fmt.Errorf("%s not found on PATH; install ffmpeg to decode audio", dec.FFmpeg)
	}

	workers := buildFlags.workers
	if workers == 0 {
		workers = a.cfg.Build.Workers
	}
	opts := []builder.Option{
		builder.WithDimension(a.cfg.Feature.Dimension),
		builder.WithExtractorID(ex.ID()),
		builder.WithLogger(a.logger),
		builder.WithWorkers(workers),
	}
	if a.cfg.Build.Excerpt {
		sel, err := a.selector()
		if err != nil {
			return err
		}
		opts = append(opts, builder.WithExcerpt(sel, a.cfg.Excerpt.Duration))
	}
	if !buildFlags.noCache {
		cache, db, err := a.featureCache()
		if err != nil {
			return err
		}
		if db != nil {
			defer db.Close()
			opts = append(opts, builder.WithCache(cache))
		}
	}

	var p *mpb.Progress
	if !buildFlags.quiet {
		p = mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar := p.AddBar(int64(len(files)),
			mpb.PrependDecorators(
				decor.Name("Extracting: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.Percentage(),
				decor.EwmaETA(decor.ET_STYLE_GO, 60),
			),
		)
		opts = append(opts, builder.WithProgress(func(string, error) { bar.Increment() }))
	}

	b := builder.New(opts...)
	tracks, extractReport, err := b.Extract(ctx, root, files, dec, ex, a.cfg.Audio.SampleRate)
	if p != nil {
		p.Wait()
	}
	if err != nil {
		return err
	}
	set, report, err := b.Build(ctx, tracks)
	if err != nil {
		return err
	}

	repo, closeRepo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()
	if err := repo.Save(ctx, set); err != nil {
		return err
	}

	printSection("Build")
	printOK("", fmt.Sprintf("indexed %d of %d files (dimension %d)", report.Indexed, extractReport.Input, report.Dimension))
	printOK("", fmt.Sprintf("build %s", set.Manifest.BuildID))
	for _, s := range append(extractReport.Skipped, report.Skipped...) {
		printWarn(s.Filename, s.Reason)
	}
	return nil
}
