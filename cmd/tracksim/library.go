package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/viant/tracksim/library"
)

var libraryFlags struct {
	catalogue string
	output    string
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the track library used to display results",
}

var libraryScanCmd = &cobra.Command{
	Use:   "scan <audio-dir>",
	Short: "Build the track library CSV from embedded tags",
	Long: `Read embedded tags of every audio file under <audio-dir> and write a
library CSV (filename,track_id,title,artist,genre). Six-digit file names such
as 000002.mp3 are parsed as catalogue ids and, with --catalogue, joined with
an FMA style tracks.csv for missing titles and artists.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryScan,
}

func init() {
	libraryScanCmd.Flags().StringVar(&libraryFlags.catalogue, "catalogue", "", "FMA tracks.csv to join by track id")
	libraryScanCmd.Flags().StringVarP(&libraryFlags.output, "output", "o", "", "output CSV (default library.path)")
	libraryCmd.AddCommand(libraryScanCmd)
	rootCmd.AddCommand(libraryCmd)
}

func runLibraryScan(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	out := libraryFlags.output
	if out == "" {
		out = a.cfg.Library.Path
	}
	if out == "" {
		return fmt.Errorf("no output path: pass --output or set library.path")
	}
	root, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	tracks, err := library.Scan(cmd.Context(), root, a.cfg.Build.Extensions, a.logger)
	if err != nil {
		return err
	}
	if libraryFlags.catalogue != "" {
		f, err := os.Open(libraryFlags.catalogue)
		if err != nil {
			return err
		}
		catalogue, err := library.ReadCatalogue(f)
		_ = f.Close()
		if err != nil {
			return err
		}
		library.Enrich(tracks, catalogue)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}
	if err := library.Save(out, tracks); err != nil {
		return err
	}
	printOK("", fmt.Sprintf("saved %s with %d rows", out, len(tracks)))
	return nil
}
