package db

import (
	"path/filepath"
	"testing"
)

// TestPragmasApplied verifies that essential PRAGMAs are set on all databases
func TestPragmasApplied(t *testing.T) {
	db, err := NewDB(filepath.Join(t.TempDir(), "test_pragmas.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected journal_mode=wal, got %s", journalMode)
	}

	checks := []struct {
		pragma string
		want   int
	}{
		{"busy_timeout", 5000},
		{"synchronous", 1}, // NORMAL
		{"temp_store", 2},  // MEMORY
		{"foreign_keys", 1},
	}
	for _, c := range checks {
		var got int
		if err := db.QueryRow("PRAGMA " + c.pragma).Scan(&got); err != nil {
			t.Fatalf("Failed to query %s: %v", c.pragma, err)
		}
		if got != c.want {
			t.Errorf("Expected %s=%d, got %d", c.pragma, c.want, got)
		}
	}
}

func TestNewDB_Memory(t *testing.T) {
	db, err := NewDB(MemoryPath)
	if err != nil {
		t.Fatalf("NewDB(memory): %v", err)
	}
	defer db.Close()

	if !tableExists(t, db, "experiments") {
		t.Error("in-memory database not migrated")
	}
	if db.Path() != MemoryPath {
		t.Errorf("Path() = %q", db.Path())
	}
}
