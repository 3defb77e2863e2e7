package library

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/viant/tracksim/audio"
)

// Scan builds library rows for the audio files under root. Titles, artists
// and genres come from embedded tags when present; otherwise the title falls
// back to the file name. Catalogue ids are parsed from six-digit names.
func Scan(ctx context.Context, root string, exts []string, logger *slog.Logger) ([]Track, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	names, err := audio.Collect(root, exts)
	if err != nil {
		return nil, fmt.Errorf("library: scan %s: %w", root, err)
	}
	tracks := make([]Track, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t := Track{Filename: name}
		if id, ok := ParseTrackID(name); ok {
			t.TrackID = id
		}
		if err := readTags(filepath.Join(root, filepath.FromSlash(name)), &t); err != nil {
			logger.Debug("no embedded tags", "filename", name, "reason", err)
		}
		if t.Title == "" {
			t.Title = defaultTitle(name)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func readTags(filename string, t *Track) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	m, err := tag.ReadFrom(f)
	if err != nil {
		return err
	}
	t.Title = strings.TrimSpace(m.Title())
	t.Artist = strings.TrimSpace(m.Artist())
	t.Genre = strings.TrimSpace(m.Genre())
	return nil
}

// ReadCatalogue parses a catalogue table with a two-row header, such as the
// FMA tracks.csv, where the first row names a group ("track", "artist") and
// the second a field ("title", "name"). Group and field are joined with "_"
// and rows whose first column is not an integer id are skipped.
func ReadCatalogue(r io.Reader) (map[int]Track, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	groups, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("library: catalogue header: %w", err)
	}
	fields, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("library: catalogue header: %w", err)
	}
	col := map[string]int{}
	group := ""
	for i := range fields {
		if i < len(groups) && groups[i] != "" && !strings.HasPrefix(groups[i], "Unnamed") {
			group = groups[i]
		}
		col[group+"_"+fields[i]] = i
	}
	get := func(rec []string, name string) string {
		if i, ok := col[name]; ok && i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	out := map[int]Track{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("library: catalogue: %w", err)
		}
		if len(rec) == 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			continue
		}
		out[id] = Track{
			TrackID: id,
			Title:   get(rec, "track_title"),
			Artist:  get(rec, "artist_name"),
			Genre:   get(rec, "track_genre_top"),
		}
	}
}

// Enrich fills missing title, artist and genre from catalogue rows matched by
// TrackID. Values already present win.
func Enrich(tracks []Track, catalogue map[int]Track) {
	for i := range tracks {
		c, ok := catalogue[tracks[i].TrackID]
		if !ok || tracks[i].TrackID == 0 {
			continue
		}
		if c.Title != "" && (tracks[i].Title == "" || tracks[i].Title == defaultTitle(tracks[i].Filename)) {
			tracks[i].Title = c.Title
		}
		if tracks[i].Artist == "" {
			tracks[i].Artist = c.Artist
		}
		if tracks[i].Genre == "" {
			tracks[i].Genre = c.Genre
		}
	}
}

func defaultTitle(filename string) string {
	return strings.TrimSuffix(path.Base(filename), path.Ext(filename))
}
