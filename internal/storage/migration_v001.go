package storage

import "database/sql"

// migrateV001 creates the historian schema: artifacts (source books), the
// people and places extracted from them, events, and the join tables that
// tie events to participants and venues. Every statement uses IF NOT EXISTS
// for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS artifacts (
			id                TEXT PRIMARY KEY,
			title             TEXT NOT NULL,
			author            TEXT NOT NULL,
			publication_year  INTEGER,
			time_period_start INTEGER,
			time_period_end   INTEGER,
			created_at        TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS persons (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			aliases     TEXT,
			artifact_id TEXT REFERENCES artifacts(id) ON DELETE CASCADE,
			birth_year  INTEGER,
			death_year  INTEGER,
			created_at  TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS locations (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			aliases     TEXT,
			artifact_id TEXT REFERENCES artifacts(id) ON DELETE CASCADE,
			address     TEXT,
			latitude    REAL,
			longitude   REAL,
			created_at  TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS events (
			id          TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			artifact_id TEXT REFERENCES artifacts(id) ON DELETE CASCADE,
			page_range  TEXT,
			event_type  TEXT,
			event_date  TEXT,
			created_at  TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS event_participants (
			event_id  TEXT REFERENCES events(id) ON DELETE CASCADE,
			person_id TEXT REFERENCES persons(id) ON DELETE CASCADE,
			role      TEXT,
			PRIMARY KEY (event_id, person_id)
		)`,

		`CREATE TABLE IF NOT EXISTS event_venues (
			event_id    TEXT REFERENCES events(id) ON DELETE CASCADE,
			location_id TEXT REFERENCES locations(id) ON DELETE CASCADE,
			PRIMARY KEY (event_id, location_id)
		)`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_persons_name       ON persons(name)`,
		`CREATE INDEX IF NOT EXISTS idx_locations_name     ON locations(name)`,
		`CREATE INDEX IF NOT EXISTS idx_locations_artifact ON locations(artifact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_artifact    ON events(artifact_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_date        ON events(event_date)`,
		`CREATE INDEX IF NOT EXISTS idx_participants_person ON event_participants(person_id)`,
		`CREATE INDEX IF NOT EXISTS idx_venues_location    ON event_venues(location_id)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
