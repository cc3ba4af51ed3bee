package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string              `json:"version"`
	DatabasePath      string              `json:"database_path"`
	DatabaseSizeBytes int64               `json:"database_size_bytes"`
	SchemaVersion     int                 `json:"schema_version"`
	Artifacts         int64               `json:"artifacts"`
	Events            int64               `json:"events"`
	DatedEvents       int64               `json:"dated_events"`
	Persons           int64               `json:"persons"`
	Locations         int64               `json:"locations"`
	GeocodedLocations int64               `json:"geocoded_locations"`
	EarliestYear      int                 `json:"earliest_year,omitempty"`
	LatestYear        int                 `json:"latest_year,omitempty"`
	TopLocations      []locationCountJSON `json:"top_locations"`
	Source            string              `json:"source"`
}

type locationCountJSON struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	store, db, dbPath, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store, db, dbPath, cfg)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(store *storage.SQLiteStore, db *sql.DB, dbPath string, cfg *config.Config) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	schema, err := storage.NewMigrationRunner(db).Version()
	if err != nil {
		return fmt.Errorf("schema version: %w", err)
	}

	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: getDatabaseSize(db, dbPath),
		SchemaVersion:     schema,
		Artifacts:         stats.Artifacts,
		Events:            stats.Events,
		DatedEvents:       stats.DatedEvents,
		Persons:           stats.Persons,
		Locations:         stats.Locations,
		GeocodedLocations: stats.GeocodedLocations,
		EarliestYear:      stats.EarliestYear,
		LatestYear:        stats.LatestYear,
		TopLocations:      make([]locationCountJSON, len(stats.TopLocations)),
		Source:            cfg.Source.Kind,
	}
	for i, l := range stats.TopLocations {
		out.TopLocations[i] = locationCountJSON{ID: l.LocationID, Name: l.Name, Count: l.Count}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	c.printHuman(out)
	return nil
}

func (c *StatusCommand) printHuman(s statusJSON) {
	printTitle("Historian Status")
	fmt.Printf("Version:       %s\n", s.Version)
	fmt.Printf("Database:      %s (%s, schema v%d)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes), s.SchemaVersion)
	fmt.Printf("Artifacts:     %s\n", formatNumber(s.Artifacts))

	if s.Events > 0 {
		pct := float64(s.DatedEvents) / float64(s.Events) * 100
		fmt.Printf("Events:        %s (%.1f%% dated)\n", formatNumber(s.Events), pct)
		fmt.Printf("Years:         %s-%s\n", formatYear(s.EarliestYear), formatYear(s.LatestYear))
	} else {
		fmt.Printf("Events:        %s\n", formatNumber(s.Events))
	}

	fmt.Printf("People:        %s\n", formatNumber(s.Persons))
	fmt.Printf("Locations:     %s (%s geocoded)\n", formatNumber(s.Locations), formatNumber(s.GeocodedLocations))

	if len(s.TopLocations) > 0 {
		fmt.Println()
		fmt.Println(heading.Sprint("Top Locations:"))
		for _, l := range s.TopLocations {
			fmt.Printf("  %-30s %s\n", l.Name, formatNumber(l.Count))
		}
	}

	fmt.Println()
	fmt.Printf("Source:        %s\n", s.Source)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}
