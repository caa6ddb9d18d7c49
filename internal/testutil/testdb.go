package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/signoff/internal/clock"
	"github.com/alexanderramin/signoff/internal/db"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// Epoch is the first reading of every clock built by NewTestClock.
var Epoch = time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)

// NewTestClock returns a clock that starts at Epoch and advances one
// millisecond per reading, so records created in sequence sort in order.
func NewTestClock() *clock.Stepping {
	return clock.NewStepping(Epoch, time.Millisecond)
}
