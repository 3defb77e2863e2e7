package audio

import (
	"io/fs"
	"path/filepath"
	"sort"
)

// Collect walks root and returns the audio files under it as slash-separated
// paths relative to root, sorted. Those relative paths are the filenames
// used as track keys throughout an index.
func Collect(root string, exts []string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsAudio(p, exts) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}
