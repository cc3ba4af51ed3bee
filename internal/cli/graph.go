package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/graph"
	"github.com/runnerr0/historian/internal/layout"
	"github.com/runnerr0/historian/internal/storage"
	"github.com/runnerr0/historian/internal/timefilter"
)

// graphJSON is the JSON output structure for the graph command.
type graphJSON struct {
	Window timefilter.Window `json:"window"`
	Counts graph.Counts      `json:"counts"`
	Nodes  []graph.Node      `json:"nodes"`
	Links  []graph.Link      `json:"links"`
	Layout layout.Snapshot   `json:"layout"`
}

// Execute implements the go-flags Commander interface for GraphCommand.
func (c *GraphCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	store, db, _, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	return c.executeWithStore(store, cfg)
}

// executeWithStore builds the graph from a provided store (used by tests).
func (c *GraphCommand) executeWithStore(store *storage.SQLiteStore, cfg *config.Config) error {
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
	exp.Settle(c.Steps)

	format := c.Format
	if c.globals != nil && c.globals.JSON {
		format = "json"
	}

	var out string
	switch format {
	case "svg":
		out = exp.GraphSVG()
	case "dot":
		out = exp.DOT()
	default:
		g, snap := exp.GraphLayout()
		return c.writeJSON(graphJSON{
			Window: exp.Summary().Window,
			Counts: g.Counts(),
			Nodes:  g.Nodes,
			Links:  g.Links,
			Layout: snap,
		})
	}

	if c.Output == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(c.Output, []byte(out), 0644); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	fmt.Printf("Wrote %s\n", c.Output)
	return nil
}

func (c *GraphCommand) writeJSON(v graphJSON) error {
	if c.Output == "" {
		return printJSON(v)
	}
	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("create %s: %w", c.Output, err)
	}
	defer f.Close()

	if err := encodeJSON(f, v); err != nil {
		return fmt.Errorf("write %s: %w", c.Output, err)
	}
	fmt.Printf("Wrote %s\n", c.Output)
	return nil
}
