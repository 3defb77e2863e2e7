package artifact

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Entry binds an index position to the filename of the track stored there.
type Entry struct {
	Position int
	Filename string
}

// Mapping resolves index positions to filenames. Positions are dense and
// zero-based; entry i describes position i.
type Mapping struct {
	filenames []string
	positions map[string]int
}

// NewMapping returns the mapping where filenames[i] is stored at position i.
func NewMapping(filenames []string) *Mapping {
	m := &Mapping{
		filenames: append([]string(nil), filenames...),
		positions: make(map[string]int, len(filenames)),
	}
	for i, name := range m.filenames {
		if _, ok := m.positions[name]; !ok {
			m.positions[name] = i
		}
	}
	return m
}

// Len returns the number of entries.
func (m *Mapping) Len() int { return len(m.filenames) }

// Filename returns the filename at position.
func (m *Mapping) Filename(position int) (string, bool) {
	if position < 0 || position >= len(m.filenames) {
		return "", false
	}
	return m.filenames[position], true
}

// Position returns the first position holding filename.
func (m *Mapping) Position(filename string) (int, bool) {
	p, ok := m.positions[filename]
	return p, ok
}

// Entries returns all entries in position order.
func (m *Mapping) Entries() []Entry {
	out := make([]Entry, len(m.filenames))
	for i, name := range m.filenames {
		out[i] = Entry{Position: i, Filename: name}
	}
	return out
}

// WriteCSV writes the mapping with a "position,filename" header.
func (m *Mapping) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"position", "filename"}); err != nil {
		return err
	}
	for i, name := range m.filenames {
		if err := cw.Write([]string{strconv.Itoa(i), name}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadMapping parses WriteCSV output. Rows may come in any order but every
// position in [0, n) must appear exactly once. A legacy "index_pos" header
// is accepted for the position column.
func ReadMapping(r io.Reader) (*Mapping, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty mapping", ErrInconsistent)
		}
		return nil, fmt.Errorf("artifact: mapping header: %w", err)
	}
	posCol, nameCol := -1, -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "position", "index_pos":
			posCol = i
		case "filename":
			nameCol = i
		}
	}
	if posCol < 0 || nameCol < 0 {
		return nil, fmt.Errorf("%w: mapping header %v", ErrInconsistent, header)
	}

	byPos := map[int]string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("artifact: mapping: %w", err)
		}
		pos, err := strconv.Atoi(strings.TrimSpace(rec[posCol]))
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("%w: mapping position %q", ErrInconsistent, rec[posCol])
		}
		if _, dup := byPos[pos]; dup {
			return nil, fmt.Errorf("%w: duplicate mapping position %d", ErrInconsistent, pos)
		}
		byPos[pos] = rec[nameCol]
	}
	filenames := make([]string, len(byPos))
	for i := range filenames {
		name, ok := byPos[i]
		if !ok {
			return nil, fmt.Errorf("%w: mapping positions are not dense, missing %d", ErrInconsistent, i)
		}
		filenames[i] = name
	}
	return NewMapping(filenames), nil
}
