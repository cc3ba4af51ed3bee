package storage

import "database/sql"

// migrateV002 adds the geocoding detail that the map view shows alongside a
// location name.
func migrateV002(tx *sql.Tx) error {
	stmts := []string{
		`ALTER TABLE locations ADD COLUMN neighborhood TEXT`,
		`ALTER TABLE locations ADD COLUMN borough TEXT`,
		`ALTER TABLE locations ADD COLUMN geometry TEXT`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
