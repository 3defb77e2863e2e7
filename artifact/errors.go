package artifact

import "errors"

var (
	// ErrMissingArtifact is returned when a required artifact, including the
	// manifest that marks a complete write, is absent.
	ErrMissingArtifact = errors.New("artifact: missing artifact")

	// ErrInconsistent is returned when index, scaler, mapping and manifest
	// disagree on vector count or dimensionality.
	ErrInconsistent = errors.New("artifact: inconsistent artifact set")

	// ErrChecksum is returned when a file does not match its manifest
	// checksum.
	ErrChecksum = errors.New("artifact: checksum mismatch")

	// ErrLocked is returned when the artifact lock cannot be acquired in time.
	ErrLocked = errors.New("artifact: locked by another process")
)
