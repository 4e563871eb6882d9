package repo

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenSQLite_MissingParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "app.db")
	if _, err := OpenSQLite(path); err == nil {
		t.Fatalf("expected error for missing parent directory")
	}
}

func TestOpenSQLite_AndAutoMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	// Both models are usable after migration.
	if _, err := CreateRequest(context.Background(), db, "u1", 1, "Dune", nil); err != nil {
		t.Fatalf("CreateRequest on migrated schema: %v", err)
	}
	if err := SavePollCursor(context.Background(), db, "bot1", 5); err != nil {
		t.Fatalf("SavePollCursor on migrated schema: %v", err)
	}
}
