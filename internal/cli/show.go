package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
	"github.com/runnerr0/historian/internal/view"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for show command")
	}

	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store)
}

// executeWithStore prints one event from a provided store (used by tests).
func (c *ShowCommand) executeWithStore(store *storage.SQLiteStore) error {
	e, err := store.GetEnriched(context.Background(), c.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("event not found: %s", c.ID)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(e)
	}
	c.printHuman(*e)
	return nil
}

func (c *ShowCommand) printHuman(e model.EnrichedEvent) {
	d := view.NewDetail(e)

	fmt.Println(heading.Sprint(d.ID))
	fmt.Printf("Year:       %s\n", formatYear(d.Year))
	if d.Date != "" {
		fmt.Printf("Date:       %s (%s)\n", d.Date, d.Precision)
	}
	if e.ArtifactID != "" {
		fmt.Printf("Book:       %s\n", e.ArtifactID)
	}

	if e.Location != nil {
		loc := e.Location.Name
		if e.Location.Neighborhood != "" {
			loc += ", " + e.Location.Neighborhood
		}
		fmt.Printf("Location:   %s\n", loc)
		if e.Location.HasCoordinates() {
			fmt.Printf("            %s\n", subtle.Sprintf("%.4f, %.4f", *e.Location.Latitude, *e.Location.Longitude))
		}
	}

	if d.Heading != "" {
		fmt.Printf("People:     %s\n", d.Heading)
	}

	fmt.Println()
	fmt.Println(d.Description)
}
