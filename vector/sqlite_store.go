package vector

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLiteStore implements Store on a SQLite database. Nearest relies on the
// vec_l2 SQL function, so engine.RegisterVectorFunctions must be called
// before the database connection is opened.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed Store. It ensures the features
// schema exists in the provided database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("vector: db is nil")
	}
	if err := EnsureSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Put upserts features in a single transaction.
func (s *SQLiteStore) Put(ctx context.Context, features []Feature) error {
	if len(features) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO features(filename, extractor, dim, embedding) VALUES(?, ?, ?, ?)
ON CONFLICT(filename) DO UPDATE SET
  extractor = excluded.extractor,
  dim = excluded.dim,
  embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range features {
		if f.Filename == "" {
			return fmt.Errorf("vector: Feature.Filename must be set")
		}
		emb, err := EncodeEmbedding(f.Vector)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, f.Filename, f.Extractor, len(f.Vector), emb); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Get returns the cached vector for filename. A row written by a different
// extractor is reported as absent.
func (s *SQLiteStore) Get(ctx context.Context, filename, extractor string) (FeatureVector, bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var emb []byte
	err := s.db.QueryRowContext(ctx, `SELECT embedding FROM features WHERE filename = ? AND extractor = ?`, filename, extractor).Scan(&emb)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	vec, err := DecodeEmbedding(emb)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// All returns every cached feature of extractor ordered by filename.
func (s *SQLiteStore) All(ctx context.Context, extractor string) ([]Feature, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := s.db.QueryContext(ctx, `SELECT filename, embedding FROM features WHERE extractor = ? ORDER BY filename`, extractor)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Feature
	for rows.Next() {
		f := Feature{Extractor: extractor}
		var emb []byte
		if err := rows.Scan(&f.Filename, &emb); err != nil {
			return nil, err
		}
		if f.Vector, err = DecodeEmbedding(emb); err != nil {
			return nil, fmt.Errorf("vector: decode %s: %w", f.Filename, err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Nearest orders cached vectors of the same dimensionality by vec_l2
// distance to query. It is a diagnostic over raw features; similarity search
// proper runs against the standardized index.
func (s *SQLiteStore) Nearest(ctx context.Context, query FeatureVector, extractor string, k int) ([]RawMatch, error) {
	if k <= 0 {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	q, err := EncodeEmbedding(query)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT filename, vec_l2(embedding, ?) AS distance
FROM features
WHERE extractor = ? AND dim = ?
ORDER BY distance ASC, filename ASC
LIMIT ?`, q, extractor, len(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RawMatch
	for rows.Next() {
		var m RawMatch
		if err := rows.Scan(&m.Filename, &m.Distance); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes a cached feature by filename.
func (s *SQLiteStore) Remove(ctx context.Context, filename string) error {
	if filename == "" {
		return fmt.Errorf("vector: Remove called with empty filename")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM features WHERE filename = ?`, filename)
	return err
}

// Ensure SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)
