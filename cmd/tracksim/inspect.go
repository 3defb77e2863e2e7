package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var inspectFlags struct {
	entries bool
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Verify the index artifacts and show their manifest",
	Long: `Load the configured artifacts, verifying checksums and that index,
scaler and position mapping agree, then print the manifest.`,
	Args: cobra.NoArgs,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectFlags.entries, "entries", false, "also list every position and filename")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := setup()
	if err != nil {
		return err
	}
	repo, closeRepo, err := a.repository(ctx)
	if err != nil {
		return err
	}
	defer closeRepo()
	set, err := repo.Load(ctx)
	if err != nil {
		printErr("", err.Error())
		return err
	}
	m := set.Manifest

	printSection("Index")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  build\t%s\n", m.BuildID)
	fmt.Fprintf(w, "  created\t%s\n", m.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "  extractor\t%s\n", m.Extractor)
	fmt.Fprintf(w, "  vectors\t%d\n", set.Index.Len())
	fmt.Fprintf(w, "  dimension\t%d\n", set.Index.Dimension())
	fmt.Fprintf(w, "  metric\t%s\n", set.Index.Metric())
	fmt.Fprintf(w, "  compression\t%s\n", m.Compression)
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\txxh64:%s\n", name, m.Files[name])
	}
	if err := w.Flush(); err != nil {
		return err
	}
	printOK("", "artifacts are consistent")

	if inspectFlags.entries {
		printSection("Positions")
		for _, e := range set.Mapping.Entries() {
			fmt.Printf("  %6d  %s\n", e.Position, e.Filename)
		}
	}
	return nil
}
