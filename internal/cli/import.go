package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/source"
	"github.com/runnerr0/historian/internal/storage"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if c.File == "" {
		return fmt.Errorf("--file is required for import command")
	}

	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store, cfg)
}

// executeWithStore runs the import against a provided store (used by tests).
func (c *ImportCommand) executeWithStore(store *storage.SQLiteStore, cfg *config.Config) error {
	ctx := context.Background()

	logger := newLogger(c.globals, cfg)
	defer logger.Sync() //nolint:errcheck

	events, err := source.NewFileSource(c.File, logger).Events(ctx)
	if err != nil {
		return err
	}
	if c.Artifact != "" {
		assignArtifact(events, c.Artifact)
	}

	n, err := store.ImportEnriched(ctx, events)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"file":     c.File,
			"imported": n,
			"ids":      model.IDs(events),
		})
	}

	fmt.Printf("%s %d events from %s\n", good.Sprint("Imported"), n, c.File)
	return nil
}

// assignArtifact fills the artifact id of every record that has none.
func assignArtifact(events []model.EnrichedEvent, artifactID string) {
	for i := range events {
		e := &events[i]
		if e.ArtifactID == "" {
			e.ArtifactID = artifactID
		}
		if e.Location != nil && e.Location.ArtifactID == "" {
			e.Location.ArtifactID = artifactID
		}
		for j := range e.People {
			if e.People[j].ArtifactID == "" {
				e.People[j].ArtifactID = artifactID
			}
		}
	}
}
