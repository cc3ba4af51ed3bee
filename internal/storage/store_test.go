package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/historian/internal/model"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// seedDraftRiots imports a small dataset: two located events and one
// undated event without a venue.
func seedDraftRiots(t *testing.T, store *SQLiteStore) []model.EnrichedEvent {
	t.Helper()
	fivePoints := &model.Location{
		ID: "L1", Name: "Five Points", ArtifactID: "gangs",
		Latitude: model.Float(40.7146), Longitude: model.Float(-74.0011),
		Neighborhood: "Lower Manhattan",
	}
	tweed := model.Person{ID: "P1", Name: "Boss Tweed", Aliases: []string{"William Tweed"}, ArtifactID: "gangs", BirthYear: model.Int(1823)}
	nast := model.Person{ID: "P2", Name: "Thomas Nast", ArtifactID: "gangs"}

	events := []model.EnrichedEvent{
		{Event: model.Event{ID: "E2", Description: "Orange Riot", ArtifactID: "gangs", EventDate: "1871-07-12"}, Location: fivePoints, People: []model.Person{nast, tweed}},
		{Event: model.Event{ID: "E1", Description: "Draft Riots", ArtifactID: "gangs", EventDate: "1863-07-13"}, Location: fivePoints, People: []model.Person{tweed}},
		{Event: model.Event{ID: "E3", Description: "Undated rumour", ArtifactID: "gangs"}, People: []model.Person{}},
	}

	n, err := store.ImportEnriched(context.Background(), events)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	return events
}

func TestOpen_FileBackedDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "historian.db")

	store, db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()
	defer store.Close()

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Events)
}

func TestAddArtifact_GetArtifact_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	a := &Artifact{Title: "Gangs of New York", Author: "Herbert Asbury", PublicationYear: model.Int(1928)}
	require.NoError(t, store.AddArtifact(ctx, a))
	assert.Contains(t, a.ID, "ART-")

	got, err := store.GetArtifact(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gangs of New York", got.Title)
	assert.Equal(t, "Herbert Asbury", got.Author)
	require.NotNil(t, got.PublicationYear)
	assert.Equal(t, 1928, *got.PublicationYear)
	assert.Nil(t, got.TimePeriodStart)
}

func TestGetArtifact_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetArtifact(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEnriched_OrderAndShape(t *testing.T) {
	store := openTestStore(t)
	seedDraftRiots(t, store)

	events, err := store.ListEnriched(context.Background(), YearQuery{})
	require.NoError(t, err)
	require.Len(t, events, 3)

	// Dated by date string first, undated last.
	assert.Equal(t, []string{"E1", "E2", "E3"}, model.IDs(events))

	first := events[0]
	assert.Equal(t, 1863, first.Year)
	assert.Equal(t, model.PrecisionExact, first.DatePrecision)
	assert.Equal(t, "gangs", first.ArtifactID)
	require.NotNil(t, first.Location)
	assert.Equal(t, "Five Points", first.Location.Name)
	assert.Equal(t, "Lower Manhattan", first.Location.Neighborhood)
	assert.True(t, first.Location.HasCoordinates())
	require.Len(t, first.People, 1)
	assert.Equal(t, []string{"William Tweed"}, first.People[0].Aliases)
	require.NotNil(t, first.People[0].BirthYear)
	assert.Equal(t, 1823, *first.People[0].BirthYear)

	// Participants keep insertion order.
	require.Len(t, events[1].People, 2)
	assert.Equal(t, "P2", events[1].People[0].ID)
	assert.Equal(t, "P1", events[1].People[1].ID)

	undated := events[2]
	assert.Equal(t, 0, undated.Year)
	assert.Equal(t, model.PrecisionUnknown, undated.DatePrecision)
	assert.Nil(t, undated.Location)
	assert.NotNil(t, undated.People)
	assert.Empty(t, undated.People)
}

func TestListEnriched_YearFilterExcludesUndated(t *testing.T) {
	store := openTestStore(t)
	seedDraftRiots(t, store)
	ctx := context.Background()

	events, err := store.ListEnriched(ctx, YearQuery{Start: model.Int(1870)})
	require.NoError(t, err)
	assert.Equal(t, []string{"E2"}, model.IDs(events))

	events, err = store.ListEnriched(ctx, YearQuery{End: model.Int(1863)})
	require.NoError(t, err)
	assert.Equal(t, []string{"E1"}, model.IDs(events))

	events, err = store.ListEnriched(ctx, YearQuery{Start: model.Int(1900), End: model.Int(1910)})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestImportEnriched_UpdatesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedDraftRiots(t, store)

	_, err := store.ImportEnriched(ctx, []model.EnrichedEvent{
		{Event: model.Event{ID: "E1", Description: "New York City draft riots", EventDate: "1863-07-13"}, People: []model.Person{{ID: "P2", Name: "Thomas Nast"}}},
	})
	require.NoError(t, err)

	got, err := store.GetEnriched(ctx, "E1")
	require.NoError(t, err)
	assert.Equal(t, "New York City draft riots", got.Description)
	assert.Nil(t, got.Location)
	require.Len(t, got.People, 1)
	assert.Equal(t, "P2", got.People[0].ID)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Events)
}

func TestImportEnriched_YearOnlyRecordKeepsYear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.ImportEnriched(ctx, []model.EnrichedEvent{
		{Event: model.Event{ID: "Y1", Description: "Sometime in 1870", Year: 1870}},
	})
	require.NoError(t, err)

	got, err := store.GetEnriched(ctx, "Y1")
	require.NoError(t, err)
	assert.Equal(t, 1870, got.Year)
	assert.Equal(t, "1870", got.EventDate)
	assert.Equal(t, model.PrecisionYear, got.DatePrecision)
}

func TestAddEvent_LinksPeopleAndVenue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	p := &model.Person{Name: "Bill the Butcher"}
	require.NoError(t, store.UpsertPerson(ctx, p))
	l := &model.Location{Name: "Bowery"}
	require.NoError(t, store.UpsertLocation(ctx, l))

	e := &model.Event{Description: "Bowery brawl", EventDate: "1857-07-04"}
	require.NoError(t, store.AddEvent(ctx, e, []string{p.ID}, l.ID))
	assert.Contains(t, e.ID, "EVT-")
	assert.Equal(t, 1857, e.Year)

	got, err := store.GetEnriched(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Location)
	assert.Equal(t, l.ID, got.Location.ID)
	assert.False(t, got.Location.HasCoordinates())
	require.Len(t, got.People, 1)
	assert.Equal(t, "Bill the Butcher", got.People[0].Name)
	assert.Empty(t, got.People[0].Aliases)
}

func TestAddEvent_UnknownPersonFails(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.AddEvent(ctx, &model.Event{ID: "E9", Description: "x"}, []string{"ghost"}, "")
	require.Error(t, err)

	_, err = store.GetEnriched(ctx, "E9")
	assert.ErrorIs(t, err, ErrNotFound, "failed insert should roll back")
}

func TestGetEnriched_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetEnriched(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteEvent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedDraftRiots(t, store)

	require.NoError(t, store.DeleteEvent(ctx, "E2"))
	_, err := store.GetEnriched(ctx, "E2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteEvent(ctx, "E2"), ErrNotFound)
}

func TestPruneOrphans(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedDraftRiots(t, store)

	require.NoError(t, store.UpsertPerson(ctx, &model.Person{ID: "P9", Name: "Nobody"}))
	require.NoError(t, store.DeleteEvent(ctx, "E2"))

	// P2 only took part in E2; P9 never took part in anything.
	res, err := store.PruneOrphans(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Persons)
	assert.Equal(t, int64(0), res.Locations)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Persons, "dry run must not delete")

	res, err = store.PruneOrphans(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Persons)

	stats, err = store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Persons)
}

func TestPurgeAll(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedDraftRiots(t, store)

	require.NoError(t, store.PurgeAll(ctx))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Events)
	assert.Equal(t, int64(0), stats.Persons)
	assert.Equal(t, int64(0), stats.Locations)
	assert.Equal(t, int64(0), stats.Artifacts)
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	seedDraftRiots(t, store)

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Artifacts)
	assert.Equal(t, int64(3), stats.Events)
	assert.Equal(t, int64(2), stats.DatedEvents)
	assert.Equal(t, int64(2), stats.Persons)
	assert.Equal(t, int64(1), stats.Locations)
	assert.Equal(t, int64(1), stats.GeocodedLocations)
	assert.Equal(t, 1863, stats.EarliestYear)
	assert.Equal(t, 1871, stats.LatestYear)
	require.Len(t, stats.TopLocations, 1)
	assert.Equal(t, LocationCount{LocationID: "L1", Name: "Five Points", Count: 2}, stats.TopLocations[0])
}

func TestGetStats_EmptyDB(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Events)
	assert.Equal(t, 0, stats.EarliestYear)
	assert.NotNil(t, stats.TopLocations)
}

func TestSafeJSONList(t *testing.T) {
	assert.Equal(t, []string{}, safeJSONList(sql.NullString{}))
	assert.Equal(t, []string{}, safeJSONList(sql.NullString{String: "not json", Valid: true}))
	assert.Equal(t, []string{}, safeJSONList(sql.NullString{String: `{"a":1}`, Valid: true}))
	assert.Equal(t, []string{"a", "b"}, safeJSONList(sql.NullString{String: `["a","b"]`, Valid: true}))
}
