package vector

import (
	"testing"

	"github.com/viant/tracksim/engine"
)

// TestEnsureSchema verifies that EnsureSchema creates the features table
// without error on a fresh in-memory database and is idempotent.
func TestEnsureSchema(t *testing.T) {
	db, err := engine.Open(":memory:")
	if err != nil {
		t.Fatalf("engine.Open(:memory:) failed: %v", err)
	}
	defer db.Close()

	if err := EnsureSchema(db); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	if err := EnsureSchema(db); err != nil {
		t.Fatalf("second EnsureSchema failed: %v", err)
	}

	// Sanity check: we can insert a row into features.
	if _, err := db.Exec(`INSERT INTO features(filename, extractor, dim, embedding) VALUES('a.mp3', 'x', 0, X'')`); err != nil {
		t.Fatalf("insert into features failed: %v", err)
	}
}
