// Package vector defines the feature-vector data contract and SQLite-backed
// utilities used by this project. It includes:
//   - FeatureVector and its validation rules
//   - Distance and normalization helpers
//   - Embedding encoding (BLOB) for SQLite storage
//   - SQLiteStore: the raw feature cache shared by library builds
package vector
