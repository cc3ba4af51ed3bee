package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
	"github.com/runnerr0/historian/internal/view"
)

// eventJSON is the JSON output structure for one listed event.
type eventJSON struct {
	ID          string   `json:"id"`
	Year        int      `json:"year"`
	Date        string   `json:"event_date,omitempty"`
	Description string   `json:"description"`
	Location    string   `json:"location,omitempty"`
	People      []string `json:"people"`
}

// Execute implements the go-flags Commander interface for EventsCommand.
func (c *EventsCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store)
}

// executeWithStore lists events from a provided store (used by tests).
func (c *EventsCommand) executeWithStore(store *storage.SQLiteStore) error {
	if c.StartYear != 0 && c.EndYear != 0 && c.StartYear > c.EndYear {
		return fmt.Errorf("--start-year %d is after --end-year %d", c.StartYear, c.EndYear)
	}

	events, err := store.ListEnriched(context.Background(), c.yearQuery())
	if err != nil {
		return fmt.Errorf("list events: %w", err)
	}
	if c.Limit > 0 && len(events) > c.Limit {
		events = events[:c.Limit]
	}

	if c.globals != nil && c.globals.JSON {
		out := make([]eventJSON, len(events))
		for i, e := range events {
			out[i] = toEventJSON(e)
		}
		return printJSON(out)
	}

	if len(events) == 0 {
		fmt.Println("No events found.")
		return nil
	}
	for _, e := range events {
		line := fmt.Sprintf("%s  %-14s %s", formatYear(e.Year), e.ID, e.Description)
		if e.Location != nil {
			line += subtle.Sprintf(" @ %s", e.Location.Name)
		}
		fmt.Println(line)
		if len(e.People) > 0 {
			fmt.Printf("      %s\n", subtle.Sprint(view.PeopleNames(e.People, ", ")))
		}
	}
	fmt.Printf("\n%d events\n", len(events))
	return nil
}

func toEventJSON(e model.EnrichedEvent) eventJSON {
	out := eventJSON{
		ID:          e.ID,
		Year:        e.Year,
		Date:        e.EventDate,
		Description: e.Description,
		People:      make([]string, len(e.People)),
	}
	for i, p := range e.People {
		out.People[i] = p.Name
	}
	if e.Location != nil {
		out.Location = e.Location.Name
	}
	return out
}
