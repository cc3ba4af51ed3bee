package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"artifacts",
		"persons",
		"locations",
		"events",
		"event_participants",
		"event_venues",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedIndexes := []string{
		"idx_persons_name",
		"idx_locations_name",
		"idx_locations_artifact",
		"idx_events_artifact",
		"idx_events_date",
		"idx_participants_person",
		"idx_venues_location",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	// Run migrations twice; the ALTER TABLE in v2 would fail if re-applied.
	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count, "should have exactly 2 migrations recorded after double-run")
}

func TestMigrationRunner_Version(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	v, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, runner.Latest(), v)

	var name string
	err = db.QueryRow("SELECT name FROM schema_migrations WHERE version = 2").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "location_detail", name)
}

func TestMigrationRunner_WALMode(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var journalMode string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	// In-memory databases report "memory"; WAL only applies to files.
	assert.Contains(t, []string{"wal", "memory"}, journalMode)
}

func TestMigrationRunner_ForeignKeyEnforcement(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(
		"INSERT INTO event_participants (event_id, person_id) VALUES ('nonexistent', 'nobody')",
	)
	assert.Error(t, err, "foreign key constraint should prevent orphan participant rows")
}

func TestMigrationRunner_LocationDetailColumns(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(`
		INSERT INTO locations (id, name, address, neighborhood, borough, latitude, longitude, geometry)
		VALUES ('L1', 'Five Points', 'Worth St', 'Lower Manhattan', 'Manhattan', 40.714, -74.001, 'POINT(-74.001 40.714)')
	`)
	require.NoError(t, err)

	var neighborhood, borough string
	err = db.QueryRow("SELECT neighborhood, borough FROM locations WHERE id = 'L1'").Scan(&neighborhood, &borough)
	require.NoError(t, err)
	assert.Equal(t, "Lower Manhattan", neighborhood)
	assert.Equal(t, "Manhattan", borough)
}
