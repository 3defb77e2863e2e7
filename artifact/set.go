// Package artifact persists and loads the artifact set of a build: the
// vector index, the fitted scaler, the position mapping and a manifest. The
// parts are only ever written and read as one unit.
package artifact

import (
	"errors"
	"fmt"

	"github.com/viant/tracksim/index"
	"github.com/viant/tracksim/scaler"
)

// Set is everything a query needs from a build.
type Set struct {
	Manifest Manifest
	Index    index.Store
	Scaler   *scaler.Scaler
	Mapping  *Mapping
}

// Seal copies count, dimension and metric from the index into the manifest.
func (s *Set) Seal() {
	if s.Index == nil {
		return
	}
	s.Manifest.Count = s.Index.Len()
	s.Manifest.Dimension = s.Index.Dimension()
	s.Manifest.Metric = s.Index.Metric().String()
	if s.Manifest.Version == 0 {
		s.Manifest.Version = ManifestVersion
	}
}

// Validate checks that every part is present and that they agree with each
// other and with the manifest.
func (s *Set) Validate() error {
	if s == nil || s.Index == nil || s.Scaler == nil || s.Mapping == nil {
		return fmt.Errorf("%w: incomplete set", ErrMissingArtifact)
	}
	n, dim := s.Index.Len(), s.Index.Dimension()
	if s.Mapping.Len() != n {
		return fmt.Errorf("%w: mapping has %d entries, index has %d vectors", ErrInconsistent, s.Mapping.Len(), n)
	}
	if s.Scaler.Dimension() != dim {
		return fmt.Errorf("%w: %w", ErrInconsistent, &index.DimensionError{Op: "scaler", Expected: dim, Actual: s.Scaler.Dimension()})
	}
	if len(s.Scaler.Stds) != len(s.Scaler.Means) {
		return fmt.Errorf("%w: scaler has %d means and %d stds", ErrInconsistent, len(s.Scaler.Means), len(s.Scaler.Stds))
	}
	m := s.Manifest
	if m.Dimension != 0 && m.Dimension != dim {
		return fmt.Errorf("%w: %w", ErrInconsistent, &index.DimensionError{Op: "manifest", Expected: m.Dimension, Actual: dim})
	}
	if m.Count != 0 && m.Count != n {
		return fmt.Errorf("%w: manifest count %d, index has %d vectors", ErrInconsistent, m.Count, n)
	}
	if m.Metric != "" && m.Metric != s.Index.Metric().String() {
		return fmt.Errorf("%w: manifest metric %s, index metric %s", ErrInconsistent, m.Metric, s.Index.Metric())
	}
	return nil
}

// IsFatal reports whether err means the artifacts cannot be used as they are
// and a rebuild is required.
func IsFatal(err error) bool {
	return errors.Is(err, ErrMissingArtifact) ||
		errors.Is(err, ErrInconsistent) ||
		errors.Is(err, ErrChecksum) ||
		errors.Is(err, index.ErrCorrupt) ||
		errors.Is(err, scaler.ErrCorrupt) ||
		index.IsDimensionError(err)
}
