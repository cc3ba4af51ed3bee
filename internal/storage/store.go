package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/historian/internal/model"
)

// Store defines the interface for historian data operations.
type Store interface {
	AddArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, id string) (*Artifact, error)
	UpsertPerson(ctx context.Context, p *model.Person) error
	UpsertLocation(ctx context.Context, l *model.Location) error
	AddEvent(ctx context.Context, e *model.Event, personIDs []string, locationID string) error
	ImportEnriched(ctx context.Context, events []model.EnrichedEvent) (int, error)
	ListEnriched(ctx context.Context, q YearQuery) ([]model.EnrichedEvent, error)
	GetEnriched(ctx context.Context, id string) (*model.EnrichedEvent, error)
	DeleteEvent(ctx context.Context, id string) error
	PruneOrphans(ctx context.Context, dryRun bool) (*PruneResult, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

var _ Store = (*SQLiteStore)(nil)

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getArtifact  *sql.Stmt
	getEvent     *sql.Stmt
	firstVenue   *sql.Stmt
	participants *sql.Stmt
	deleteEvent  *sql.Stmt
}

// Open opens (creating if needed) the database at path, runs migrations and
// returns a ready store together with the underlying *sql.DB.
func Open(path string) (*SQLiteStore, *sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store: %w", err)
	}

	return store, db, nil
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

const locationColumns = `l.id, l.name, l.artifact_id, l.address, l.neighborhood, l.borough,
	l.latitude, l.longitude, l.geometry`

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getArtifact, err = s.db.Prepare(`
		SELECT id, title, author, publication_year, time_period_start, time_period_end
		FROM artifacts WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.getEvent, err = s.db.Prepare(`
		SELECT id, description, artifact_id, event_date FROM events WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.firstVenue, err = s.db.Prepare(`
		SELECT ` + locationColumns + `
		FROM event_venues ev
		JOIN locations l ON l.id = ev.location_id
		WHERE ev.event_id = ?
		ORDER BY ev.rowid
		LIMIT 1
	`)
	if err != nil {
		return err
	}

	s.participants, err = s.db.Prepare(`
		SELECT p.id, p.name, p.aliases, p.artifact_id, p.birth_year, p.death_year
		FROM event_participants ep
		JOIN persons p ON p.id = ep.person_id
		WHERE ep.event_id = ?
		ORDER BY ep.rowid
	`)
	if err != nil {
		return err
	}

	s.deleteEvent, err = s.db.Prepare(`DELETE FROM events WHERE id = ?`)
	if err != nil {
		return err
	}

	return nil
}

// generateID creates an id with the given prefix, e.g. EVT-1b4e28ba.
func generateID(prefix string) string {
	return prefix + "-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// safeJSONList decodes a JSON array of strings, returning an empty list for
// anything else.
func safeJSONList(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal([]byte(raw.String), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}

func encodeJSONList(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// AddArtifact inserts an artifact. An empty ID is generated.
func (s *SQLiteStore) AddArtifact(ctx context.Context, a *Artifact) error {
	if a.ID == "" {
		a.ID = generateID("ART")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, title, author, publication_year, time_period_start, time_period_end)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.Author, nullInt(a.PublicationYear), nullInt(a.TimePeriodStart), nullInt(a.TimePeriodEnd),
	)
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact by ID.
func (s *SQLiteStore) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	var a Artifact
	var pub, start, end sql.NullInt64
	err := s.getArtifact.QueryRowContext(ctx, id).Scan(&a.ID, &a.Title, &a.Author, &pub, &start, &end)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("artifact %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	a.PublicationYear = intPtr(pub)
	a.TimePeriodStart = intPtr(start)
	a.TimePeriodEnd = intPtr(end)
	return &a, nil
}

// ensureArtifact makes sure a referenced artifact row exists so foreign keys
// hold for imported data that names a book we have not catalogued.
func ensureArtifact(ctx context.Context, ex execer, id string) error {
	if id == "" {
		return nil
	}
	_, err := ex.ExecContext(ctx,
		`INSERT OR IGNORE INTO artifacts (id, title, author) VALUES (?, ?, '')`, id, id)
	if err != nil {
		return fmt.Errorf("ensure artifact %s: %w", id, err)
	}
	return nil
}

// UpsertPerson inserts a person or updates the stored attributes.
func (s *SQLiteStore) UpsertPerson(ctx context.Context, p *model.Person) error {
	return upsertPerson(ctx, s.db, p)
}

func upsertPerson(ctx context.Context, ex execer, p *model.Person) error {
	if p.ID == "" {
		p.ID = generateID("PER")
	}
	if err := ensureArtifact(ctx, ex, p.ArtifactID); err != nil {
		return err
	}
	aliases, err := encodeJSONList(p.Aliases)
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO persons (id, name, aliases, artifact_id, birth_year, death_year)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			aliases = excluded.aliases,
			artifact_id = excluded.artifact_id,
			birth_year = excluded.birth_year,
			death_year = excluded.death_year`,
		p.ID, p.Name, aliases, nullString(p.ArtifactID), nullInt(p.BirthYear), nullInt(p.DeathYear),
	)
	if err != nil {
		return fmt.Errorf("upsert person: %w", err)
	}
	return nil
}

// UpsertLocation inserts a location or updates the stored attributes.
func (s *SQLiteStore) UpsertLocation(ctx context.Context, l *model.Location) error {
	return upsertLocation(ctx, s.db, l)
}

func upsertLocation(ctx context.Context, ex execer, l *model.Location) error {
	if l.ID == "" {
		l.ID = generateID("LOC")
	}
	if err := ensureArtifact(ctx, ex, l.ArtifactID); err != nil {
		return err
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO locations (id, name, artifact_id, address, neighborhood, borough, latitude, longitude, geometry)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			artifact_id = excluded.artifact_id,
			address = excluded.address,
			neighborhood = excluded.neighborhood,
			borough = excluded.borough,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			geometry = excluded.geometry`,
		l.ID, l.Name, nullString(l.ArtifactID), nullString(l.NormalizedAddress),
		nullString(l.Neighborhood), nullString(l.Borough),
		nullFloat(l.Latitude), nullFloat(l.Longitude), nullString(l.Geometry),
	)
	if err != nil {
		return fmt.Errorf("upsert location: %w", err)
	}
	return nil
}

// AddEvent inserts an event and links it to existing people and an optional
// venue in a single transaction. An empty event ID is generated.
func (s *SQLiteStore) AddEvent(ctx context.Context, e *model.Event, personIDs []string, locationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := writeEvent(ctx, tx, e, personIDs, locationID); err != nil {
		return err
	}

	return tx.Commit()
}

// writeEvent inserts or replaces an event row and its join rows.
func writeEvent(ctx context.Context, ex execer, e *model.Event, personIDs []string, locationID string) error {
	if e.ID == "" {
		e.ID = generateID("EVT")
	}
	// Year-only records keep their year as a bare YYYY date.
	if e.EventDate == "" && e.Year > 0 {
		e.EventDate = fmt.Sprintf("%04d", e.Year)
	}
	if err := ensureArtifact(ctx, ex, e.ArtifactID); err != nil {
		return err
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO events (id, description, artifact_id, event_date)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			artifact_id = excluded.artifact_id,
			event_date = excluded.event_date`,
		e.ID, e.Description, nullString(e.ArtifactID), nullString(e.EventDate),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM event_participants WHERE event_id = ?",
		"DELETE FROM event_venues WHERE event_id = ?",
	} {
		if _, err := ex.ExecContext(ctx, stmt, e.ID); err != nil {
			return fmt.Errorf("reset event links: %w", err)
		}
	}

	for _, pid := range personIDs {
		_, err := ex.ExecContext(ctx,
			"INSERT OR IGNORE INTO event_participants (event_id, person_id) VALUES (?, ?)", e.ID, pid)
		if err != nil {
			return fmt.Errorf("insert participant %s: %w", pid, err)
		}
	}

	if locationID != "" {
		_, err := ex.ExecContext(ctx,
			"INSERT INTO event_venues (event_id, location_id) VALUES (?, ?)", e.ID, locationID)
		if err != nil {
			return fmt.Errorf("insert venue %s: %w", locationID, err)
		}
	}

	e.Year = model.YearFromDate(e.EventDate)
	e.DatePrecision = model.PrecisionFor(e.EventDate)
	return nil
}

// ImportEnriched writes a batch of enriched events, with their people and
// locations, in one transaction. Existing rows with the same ids are
// updated. It returns the number of events written.
func (s *SQLiteStore) ImportEnriched(ctx context.Context, events []model.EnrichedEvent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i := range events {
		e := &events[i]

		locationID := ""
		if e.Location != nil {
			if err := upsertLocation(ctx, tx, e.Location); err != nil {
				return 0, fmt.Errorf("event %s: %w", e.ID, err)
			}
			locationID = e.Location.ID
		}

		personIDs := make([]string, 0, len(e.People))
		for j := range e.People {
			if err := upsertPerson(ctx, tx, &e.People[j]); err != nil {
				return 0, fmt.Errorf("event %s: %w", e.ID, err)
			}
			personIDs = append(personIDs, e.People[j].ID)
		}

		if err := writeEvent(ctx, tx, &e.Event, personIDs, locationID); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(events), nil
}

// ListEnriched returns events joined with their first venue and their
// participants. Dated events come first, ordered by date string, then
// insertion time.
func (s *SQLiteStore) ListEnriched(ctx context.Context, q YearQuery) ([]model.EnrichedEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, description, artifact_id, event_date
		FROM events
		ORDER BY (event_date IS NULL) ASC, event_date ASC, created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	// Collect base rows before issuing per-event queries so a single
	// connection is never asked to serve two result sets at once.
	var events []model.EnrichedEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if q.Filtered() {
			if !e.Dated() {
				continue
			}
			if q.Start != nil && e.Year < *q.Start {
				continue
			}
			if q.End != nil && e.Year > *q.End {
				continue
			}
		}
		events = append(events, model.EnrichedEvent{Event: e})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range events {
		if err := s.enrich(ctx, &events[i]); err != nil {
			return nil, err
		}
	}

	// Return empty slice rather than nil
	if events == nil {
		events = []model.EnrichedEvent{}
	}

	return events, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (model.Event, error) {
	var e model.Event
	var artifactID, date sql.NullString
	if err := row.Scan(&e.ID, &e.Description, &artifactID, &date); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}
	e.ArtifactID = artifactID.String
	e.EventDate = date.String
	e.Year = model.YearFromDate(e.EventDate)
	e.DatePrecision = model.PrecisionFor(e.EventDate)
	return e, nil
}

// enrich loads the venue and participants of e.
func (s *SQLiteStore) enrich(ctx context.Context, e *model.EnrichedEvent) error {
	var l model.Location
	var artifactID, address, neighborhood, borough, geometry sql.NullString
	var lat, lng sql.NullFloat64
	err := s.firstVenue.QueryRowContext(ctx, e.ID).Scan(
		&l.ID, &l.Name, &artifactID, &address, &neighborhood, &borough, &lat, &lng, &geometry,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("venue for event %s: %w", e.ID, err)
	default:
		l.ArtifactID = artifactID.String
		l.NormalizedAddress = address.String
		l.Neighborhood = neighborhood.String
		l.Borough = borough.String
		l.Geometry = geometry.String
		l.Latitude = floatPtr(lat)
		l.Longitude = floatPtr(lng)
		e.Location = &l
	}

	rows, err := s.participants.QueryContext(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("participants for event %s: %w", e.ID, err)
	}
	defer rows.Close()

	e.People = []model.Person{}
	for rows.Next() {
		var p model.Person
		var aliases, artifact sql.NullString
		var birth, death sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &aliases, &artifact, &birth, &death); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		p.Aliases = safeJSONList(aliases)
		p.ArtifactID = artifact.String
		p.BirthYear = intPtr(birth)
		p.DeathYear = intPtr(death)
		e.People = append(e.People, p)
	}
	return rows.Err()
}

// GetEnriched retrieves a single enriched event by ID.
func (s *SQLiteStore) GetEnriched(ctx context.Context, id string) (*model.EnrichedEvent, error) {
	e, err := scanEvent(s.getEvent.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	out := model.EnrichedEvent{Event: e}
	if err := s.enrich(ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteEvent removes an event by ID. Join rows are cascade-deleted by the schema.
func (s *SQLiteStore) DeleteEvent(ctx context.Context, id string) error {
	res, err := s.deleteEvent.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}

	return nil
}

const (
	orphanPersons   = `FROM persons WHERE id NOT IN (SELECT person_id FROM event_participants WHERE person_id IS NOT NULL)`
	orphanLocations = `FROM locations WHERE id NOT IN (SELECT location_id FROM event_venues WHERE location_id IS NOT NULL)`
)

// PruneOrphans removes people and locations no event refers to. With dryRun
// set it only counts them.
func (s *SQLiteStore) PruneOrphans(ctx context.Context, dryRun bool) (*PruneResult, error) {
	res := &PruneResult{}

	if dryRun {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+orphanPersons).Scan(&res.Persons); err != nil {
			return nil, fmt.Errorf("count orphan persons: %w", err)
		}
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) "+orphanLocations).Scan(&res.Locations); err != nil {
			return nil, fmt.Errorf("count orphan locations: %w", err)
		}
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	r, err := tx.ExecContext(ctx, "DELETE "+orphanPersons)
	if err != nil {
		return nil, fmt.Errorf("prune persons: %w", err)
	}
	if res.Persons, err = r.RowsAffected(); err != nil {
		return nil, err
	}

	r, err = tx.ExecContext(ctx, "DELETE "+orphanLocations)
	if err != nil {
		return nil, fmt.Errorf("prune locations: %w", err)
	}
	if res.Locations, err = r.RowsAffected(); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return res, nil
}

// PurgeAll deletes every row of every data table.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM event_participants",
		"DELETE FROM event_venues",
		"DELETE FROM events",
		"DELETE FROM persons",
		"DELETE FROM locations",
		"DELETE FROM artifacts",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{TopLocations: []LocationCount{}}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM artifacts", &stats.Artifacts},
		{"SELECT COUNT(*) FROM events", &stats.Events},
		{"SELECT COUNT(*) FROM persons", &stats.Persons},
		{"SELECT COUNT(*) FROM locations", &stats.Locations},
		{"SELECT COUNT(*) FROM locations WHERE latitude IS NOT NULL AND longitude IS NOT NULL AND latitude != 0 AND longitude != 0", &stats.GeocodedLocations},
		{"SELECT COUNT(*) FROM events WHERE event_date GLOB '[0-9][0-9][0-9][0-9]*'", &stats.DatedEvents},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats (%s): %w", c.query, err)
		}
	}

	// Year range (handle no dated events)
	if stats.DatedEvents > 0 {
		err := s.db.QueryRowContext(ctx, `
			SELECT MIN(CAST(substr(event_date, 1, 4) AS INTEGER)), MAX(CAST(substr(event_date, 1, 4) AS INTEGER))
			FROM events WHERE event_date GLOB '[0-9][0-9][0-9][0-9]*'
		`).Scan(&stats.EarliestYear, &stats.LatestYear)
		if err != nil {
			return nil, fmt.Errorf("event year range: %w", err)
		}
	}

	// Top locations
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.name, COUNT(*) AS cnt
		FROM event_venues ev
		JOIN locations l ON l.id = ev.location_id
		GROUP BY l.id
		ORDER BY cnt DESC, l.name ASC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top locations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var lc LocationCount
		if err := rows.Scan(&lc.LocationID, &lc.Name, &lc.Count); err != nil {
			return nil, err
		}
		stats.TopLocations = append(stats.TopLocations, lc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getArtifact, s.getEvent, s.firstVenue, s.participants, s.deleteEvent,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
