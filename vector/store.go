package vector

import "context"

// Feature is a raw, unnormalized feature vector cached for one library file.
type Feature struct {
	// Filename identifies the track; it is the key of the position mapping.
	Filename string

	// Extractor identifies the pipeline that produced Vector: extractor,
	// version and decode settings. Vectors from different pipelines are
	// never mixed.
	Extractor string

	// Vector is the raw extractor output.
	Vector FeatureVector
}

// RawMatch is a nearest-neighbour hit in raw (unstandardized) feature space.
type RawMatch struct {
	Filename string
	Distance float64
}

// Store is the raw feature cache used between library extraction and index
// builds, so that a rebuild does not decode and analyze every file again.
type Store interface {
	// Put inserts or replaces the given features.
	Put(ctx context.Context, features []Feature) error

	// Get returns the cached vector for filename produced by extractor.
	Get(ctx context.Context, filename, extractor string) (FeatureVector, bool, error)

	// All returns every feature produced by extractor ordered by filename.
	All(ctx context.Context, extractor string) ([]Feature, error)

	// Nearest ranks cached raw vectors by ascending Euclidean distance.
	Nearest(ctx context.Context, query FeatureVector, extractor string, k int) ([]RawMatch, error)

	// Remove deletes the cached feature for filename.
	Remove(ctx context.Context, filename string) error
}
