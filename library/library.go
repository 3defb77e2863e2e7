// Package library holds display metadata for indexed tracks. The library is
// optional: a missing row only degrades a result to its raw filename.
package library

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// UnknownArtist is shown when a track has no artist metadata.
const UnknownArtist = "Unknown Artist"

var fmaID = regexp.MustCompile(`(?i)^(\d{6})\.mp3$`)

var columns = []string{"filename", "track_id", "title", "artist", "genre"}

// Track is one library row keyed by Filename.
type Track struct {
	Filename string
	// TrackID is the external catalogue id; zero when unknown.
	TrackID int
	Title   string
	Artist  string
	Genre   string
}

// Display renders "title - artist", substituting the filename and
// UnknownArtist for missing values.
func (t Track) Display() string {
	title := t.Title
	if title == "" {
		title = path.Base(t.Filename)
	}
	artist := t.Artist
	if artist == "" {
		artist = UnknownArtist
	}
	return title + " - " + artist
}

// ParseTrackID extracts the six-digit catalogue id from names such as
// "000002.mp3".
func ParseTrackID(filename string) (int, bool) {
	m := fmaID.FindStringSubmatch(path.Base(filename))
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

// Library indexes tracks by filename.
type Library struct {
	tracks map[string]Track
}

// New builds a library; later duplicates of a filename replace earlier ones.
func New(tracks []Track) *Library {
	l := &Library{tracks: make(map[string]Track, len(tracks))}
	for _, t := range tracks {
		l.tracks[t.Filename] = t
	}
	return l
}

// Lookup returns the row for filename. A nil Library has no rows.
func (l *Library) Lookup(filename string) (Track, bool) {
	if l == nil {
		return Track{}, false
	}
	t, ok := l.tracks[filename]
	return t, ok
}

// Len returns the number of rows.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.tracks)
}

// Tracks returns all rows ordered by filename.
func (l *Library) Tracks() []Track {
	if l == nil {
		return nil
	}
	out := make([]Track, 0, len(l.tracks))
	for _, t := range l.tracks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out
}

// Load reads a library CSV file.
func Load(filename string) (*Library, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses a library table. The header must contain "filename";
// "track_id", "title", "artist" and "genre" (or "genre_top") are optional
// and may appear in any order.
func ReadCSV(r io.Reader) (*Library, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("library: empty file")
		}
		return nil, fmt.Errorf("library: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["genre"]; !ok {
		if i, ok := col["genre_top"]; ok {
			col["genre"] = i
		}
	}
	if _, ok := col["filename"]; !ok {
		return nil, errors.New("library: missing filename column")
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var tracks []Track
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("library: line %d: %w", line, err)
		}
		t := Track{
			Filename: field(rec, "filename"),
			Title:    field(rec, "title"),
			Artist:   field(rec, "artist"),
			Genre:    field(rec, "genre"),
		}
		if t.Filename == "" {
			continue
		}
		if id := field(rec, "track_id"); id != "" {
			// pandas writes integer columns with NaN as floats
			if f, err := strconv.ParseFloat(id, 64); err == nil {
				t.TrackID = int(f)
			}
		}
		tracks = append(tracks, t)
	}
	return New(tracks), nil
}

// WriteCSV writes tracks with the columns filename,track_id,title,artist,genre.
func WriteCSV(w io.Writer, tracks []Track) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, t := range tracks {
		id := ""
		if t.TrackID > 0 {
			id = strconv.Itoa(t.TrackID)
		}
		if err := cw.Write([]string{t.Filename, id, t.Title, t.Artist, t.Genre}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes tracks to a CSV file.
func Save(filename string, tracks []Track) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, tracks); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
