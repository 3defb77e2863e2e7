package vector

import (
	"database/sql"
)

const featuresSchema = `
CREATE TABLE IF NOT EXISTS features (
    filename  TEXT PRIMARY KEY,
    extractor TEXT NOT NULL,
    dim       INTEGER NOT NULL,
    embedding BLOB
);
CREATE INDEX IF NOT EXISTS features_extractor ON features(extractor);
`

// EnsureSchema creates the raw feature cache table in the provided database
// if it does not already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(featuresSchema)
	return err
}
