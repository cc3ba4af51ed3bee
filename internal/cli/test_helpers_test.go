package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openTestStore creates a migrated in-memory store.
func openTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := storage.NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

// testConfig is the default config with quiet logging.
func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "error"
	return cfg
}

// seedEvents imports three events: two at Five Points and one undated.
func seedEvents(t *testing.T, store *storage.SQLiteStore) {
	t.Helper()
	fivePoints := &model.Location{
		ID: "L1", Name: "Five Points", ArtifactID: "gangs", Neighborhood: "Lower Manhattan",
		Latitude: model.Float(40.7146), Longitude: model.Float(-74.0011),
	}
	tweed := model.Person{ID: "P1", Name: "Boss Tweed", ArtifactID: "gangs"}
	nast := model.Person{ID: "P2", Name: "Thomas Nast", ArtifactID: "gangs"}

	events := []model.EnrichedEvent{
		{Event: model.Event{ID: "E1", Description: "Draft Riots", ArtifactID: "gangs", EventDate: "1863-07-13"},
			Location: fivePoints, People: []model.Person{tweed}},
		{Event: model.Event{ID: "E2", Description: "Orange Riot", ArtifactID: "gangs", EventDate: "1871-07-12"},
			Location: fivePoints, People: []model.Person{nast, tweed}},
		{Event: model.Event{ID: "E3", Description: "Undated rumour", ArtifactID: "gangs"}, People: []model.Person{}},
	}
	_, err := store.ImportEnriched(context.Background(), events)
	require.NoError(t, err)
}

// writeEventsFile writes body to a temp JSON file and returns its path.
func writeEventsFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}
