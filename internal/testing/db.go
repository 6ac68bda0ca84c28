// Package testing provides testing utilities and helpers for the stockdesk project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/stockdesk/internal/clientdata"
	"github.com/aristath/stockdesk/internal/database"
)

// NewTestDB creates a file-backed SQLite database holding the snapshot schema.
// Returns the database instance and a cleanup function that closes the connection.
// The cleanup function is idempotent and can be called multiple times safely.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	// Temporary files keep every test isolated
	tmpFile, err := os.CreateTemp("", "test_snapshots_*.db")
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileCache,
		Name:    "snapshots",
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(clientdata.Schema); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			// Log error but don't fail test
			t.Logf("Warning: Failed to close test database: %v", err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if err := os.Remove(tmpPath + suffix); err != nil && !os.IsNotExist(err) {
				t.Logf("Warning: Failed to remove %s: %v", tmpPath+suffix, err)
			}
		}
	}
}

// NewSnapshotRepository returns a snapshot repository on a fresh test database, closed with the test.
func NewSnapshotRepository(t *testing.T) *clientdata.Repository {
	t.Helper()

	db, cleanup := NewTestDB(t)
	t.Cleanup(cleanup)
	return clientdata.NewRepository(db.Conn())
}

// Describe returns a short description of a database for test failure messages
func Describe(db *database.DB) string {
	return fmt.Sprintf("%s (%s)", db.Name(), db.Path())
}
