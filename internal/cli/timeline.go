package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/storage"
)

// Execute implements the go-flags Commander interface for TimelineCommand.
func (c *TimelineCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store, cfg)
}

// executeWithStore prints the timeline from a provided store (used by tests).
func (c *TimelineCommand) executeWithStore(store *storage.SQLiteStore, cfg *config.Config) error {
	events, err := store.ListEnriched(context.Background(), storage.YearQuery{})
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}

	logger := newLogger(c.globals, cfg)
	defer logger.Sync() //nolint:errcheck

	exp, err := newExplorer(cfg, logger, events, c.WindowFlags)
	if err != nil {
		return err
	}
	defer exp.Close()

	if c.Select != "" {
		exp.Select(c.Select)
	}
	tl := exp.Timeline()

	if c.globals != nil && c.globals.JSON {
		return printJSON(tl)
	}

	printTitle(fmt.Sprintf("Timeline %s", formatWindow(exp.Summary().Window)))
	if len(tl.Entries) == 0 {
		fmt.Println("No events in this window.")
		return nil
	}
	for _, e := range tl.Entries {
		marker := "  "
		if e.Selected {
			marker = heading.Sprint("▶ ")
		}
		fmt.Printf("%s%s  %s\n", marker, formatYear(e.Year), e.Description)

		var where string
		if e.Location != "" {
			where = e.Location
			if e.Neighborhood != "" {
				where += " (" + e.Neighborhood + ")"
			}
		}
		if e.People != "" || where != "" {
			detail := e.People
			if where != "" {
				if detail != "" {
					detail += " @ "
				}
				detail += where
			}
			fmt.Printf("        %s\n", subtle.Sprint(detail))
		}
	}
	return nil
}
