package artifact

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracksim_manifest (
		name     TEXT PRIMARY KEY,
		manifest TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS vector_storage (
		name    TEXT PRIMARY KEY,
		"index" BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS scaler_state (
		name  TEXT PRIMARY KEY,
		state BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS index_mapping (
		name     TEXT NOT NULL,
		position INTEGER NOT NULL,
		filename TEXT NOT NULL,
		PRIMARY KEY (name, position)
	)`,
}

// SQLiteRepository stores named sets in a SQLite database. A Save replaces
// every table row of its set inside one BEGIN IMMEDIATE transaction, so a
// concurrent Load sees either the previous or the new build.
type SQLiteRepository struct {
	db *sql.DB
	options
}

// NewSQLiteRepository creates the tables when missing.
func NewSQLiteRepository(ctx context.Context, db *sql.DB, opts ...Option) (*SQLiteRepository, error) {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("artifact: sqlite schema: %w", err)
		}
	}
	return &SQLiteRepository{db: db, options: newOptions(opts)}, nil
}

// Save writes set in a single write transaction.
func (r *SQLiteRepository) Save(ctx context.Context, set *Set) (err error) {
	set.Seal()
	if err := set.Validate(); err != nil {
		return err
	}
	p, err := encodeParts(set, CompressionNone)
	if err != nil {
		return err
	}
	m := set.Manifest
	if m.BuildID == "" {
		m.BuildID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Compression = CompressionNone
	m.Files = map[string]string{
		IndexFile:   checksum(p.index),
		ScalerFile:  checksum(p.scaler),
		MappingFile: checksum(p.mapping),
	}
	manifest, err := json.Marshal(m)
	if err != nil {
		return err
	}

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("%w: %v", ErrLocked, err)
	}
	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	if _, err = conn.ExecContext(ctx, `INSERT OR REPLACE INTO vector_storage(name, "index") VALUES(?, ?)`, r.name, p.index); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, `INSERT OR REPLACE INTO scaler_state(name, state) VALUES(?, ?)`, r.name, p.scaler); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, `DELETE FROM index_mapping WHERE name = ?`, r.name); err != nil {
		return err
	}
	var stmt *sql.Stmt
	if stmt, err = conn.PrepareContext(ctx, `INSERT INTO index_mapping(name, position, filename) VALUES(?, ?, ?)`); err != nil {
		return err
	}
	defer stmt.Close()
	for _, e := range set.Mapping.Entries() {
		if _, err = stmt.ExecContext(ctx, r.name, e.Position, e.Filename); err != nil {
			return err
		}
	}
	if _, err = conn.ExecContext(ctx, `INSERT OR REPLACE INTO tracksim_manifest(name, manifest) VALUES(?, ?)`, r.name, string(manifest)); err != nil {
		return err
	}
	if _, err = conn.ExecContext(ctx, `COMMIT`); err != nil {
		return err
	}
	set.Manifest = m
	r.logger.Info("artifacts saved", "db", r.name, "build_id", m.BuildID, "count", m.Count, "dimension", m.Dimension)
	return nil
}

// Load reads the named set inside one read transaction.
func (r *SQLiteRepository) Load(ctx context.Context) (*Set, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	if err := tx.QueryRowContext(ctx, `SELECT manifest FROM tracksim_manifest WHERE name = ?`, r.name).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: manifest %q", ErrMissingArtifact, r.name)
		}
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrInconsistent, err)
	}

	p := &parts{}
	if err := scanBlob(ctx, tx, `SELECT "index" FROM vector_storage WHERE name = ?`, r.name, &p.index); err != nil {
		return nil, err
	}
	if err := scanBlob(ctx, tx, `SELECT state FROM scaler_state WHERE name = ?`, r.name, &p.scaler); err != nil {
		return nil, err
	}
	rows, err := tx.QueryContext(ctx, `SELECT position, filename FROM index_mapping WHERE name = ? ORDER BY position`, r.name)
	if err != nil {
		return nil, err
	}
	var filenames []string
	for rows.Next() {
		var pos int
		var name string
		if err := rows.Scan(&pos, &name); err != nil {
			rows.Close()
			return nil, err
		}
		if pos != len(filenames) {
			rows.Close()
			return nil, fmt.Errorf("%w: mapping positions are not dense at %d", ErrInconsistent, pos)
		}
		filenames = append(filenames, name)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	mapping := NewMapping(filenames)
	var csvBuf bytes.Buffer
	if err := mapping.WriteCSV(&csvBuf); err != nil {
		return nil, err
	}
	p.mapping = csvBuf.Bytes()

	for name, data := range map[string][]byte{IndexFile: p.index, ScalerFile: p.scaler, MappingFile: p.mapping} {
		if want := m.Files[name]; want != "" && checksum(data) != want {
			return nil, fmt.Errorf("%w: %s", ErrChecksum, name)
		}
	}
	set, err := decodeSet(m, p.index, p.scaler, mapping)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("artifacts loaded", "db", r.name, "build_id", m.BuildID, "count", m.Count)
	return set, nil
}

func scanBlob(ctx context.Context, tx *sql.Tx, query, name string, dst *[]byte) error {
	if err := tx.QueryRowContext(ctx, query, name).Scan(dst); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrMissingArtifact, query)
		}
		return err
	}
	return nil
}

var _ Repository = (*SQLiteRepository)(nil)
