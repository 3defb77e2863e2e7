package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/tracksim/builder"
	"github.com/viant/tracksim/excerpt"
)

var featuresFlags struct {
	nearest int
}

var featuresCmd = &cobra.Command{
	Use:   "features <audio-file>",
	Short: "Print the raw feature vector of a recording",
	Long: `Fingerprint the most energetic excerpt of <audio-file> and print the raw
feature vector. With --nearest, also rank the cached library vectors by
Euclidean distance in raw feature space (requires build.cache).`,
	Args: cobra.ExactArgs(1),
	RunE: runFeatures,
}

func init() {
	featuresCmd.Flags().IntVar(&featuresFlags.nearest, "nearest", 0, "list the N nearest cached vectors")
	rootCmd.AddCommand(featuresCmd)
}

func runFeatures(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := setup()
	if err != nil {
		return err
	}
	ex, err := a.extractor()
	if err != nil {
		return err
	}
	sel, err := a.selector()
	if err != nil {
		return err
	}
	samples, err := a.decoder().Decode(ctx, args[0])
	if err != nil {
		return err
	}
	clip, w, err := sel.Select(samples, a.cfg.Audio.SampleRate, a.cfg.Excerpt.Duration)
	if err != nil {
		return err
	}
	vec, err := ex.Extract(ctx, clip, a.cfg.Audio.SampleRate)
	if err != nil {
		return err
	}
	if err := vec.Validate(); err != nil {
		printErr(args[0], err.Error())
		return nil
	}

	printSection("Features")
	fmt.Printf("  extractor %s, excerpt %.2fs + %.2fs\n", ex.ID(), w.Offset, w.Duration)
	parts := make([]string, len(vec))
	for i, x := range vec {
		parts[i] = fmt.Sprintf("%.4g", x)
	}
	fmt.Printf("  [%s]\n", strings.Join(parts, " "))

	if featuresFlags.nearest <= 0 {
		return nil
	}
	cache, db, err := a.featureCache()
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("--nearest requires build.cache")
	}
	defer db.Close()
	var buildSel *excerpt.Selector
	if a.cfg.Build.Excerpt {
		buildSel = sel
	}
	key := builder.CacheKey(ex.ID(), a.cfg.Audio.SampleRate, buildSel, a.cfg.Excerpt.Duration)
	matches, err := cache.Nearest(ctx, vec, key, featuresFlags.nearest)
	if err != nil {
		return err
	}
	printSection("Nearest cached (raw L2)")
	for i, m := range matches {
		fmt.Printf("  %d. %s  distance %.4f\n", i+1, m.Filename, m.Distance)
	}
	return nil
}
