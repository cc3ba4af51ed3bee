package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/historian/internal/storage"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store)
}

// executeWithStore runs the prune logic against a provided store (used by tests).
func (c *PruneCommand) executeWithStore(store *storage.SQLiteStore) error {
	res, err := store.PruneOrphans(context.Background(), c.DryRun)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]interface{}{
			"dry_run":   c.DryRun,
			"persons":   res.Persons,
			"locations": res.Locations,
		})
	}

	if res.Persons == 0 && res.Locations == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}
	if c.DryRun {
		fmt.Printf("Would remove %s persons and %s locations no event refers to.\n",
			formatNumber(res.Persons), formatNumber(res.Locations))
		return nil
	}
	fmt.Printf("Removed %s persons and %s locations.\n", formatNumber(res.Persons), formatNumber(res.Locations))
	return nil
}
