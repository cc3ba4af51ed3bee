package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status   *StatusCommand
	Import   *ImportCommand
	Events   *EventsCommand
	Show     *ShowCommand
	Graph    *GraphCommand
	Timeline *TimelineCommand
	Serve    *ServeCommand
	Prune    *PruneCommand
	Purge    *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "historian"
	parser.LongDescription = "Explore people, places and events extracted from historical texts."

	cmds := &commands{
		Status:   &StatusCommand{globals: &globals, version: version},
		Import:   &ImportCommand{globals: &globals, version: version},
		Events:   &EventsCommand{globals: &globals, version: version},
		Show:     &ShowCommand{globals: &globals, version: version},
		Graph:    &GraphCommand{globals: &globals, version: version},
		Timeline: &TimelineCommand{globals: &globals, version: version},
		Serve:    &ServeCommand{globals: &globals, version: version},
		Prune:    &PruneCommand{globals: &globals, version: version},
		Purge:    &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show database statistics", "Show database statistics and configuration summary.", cmds.Status)
	parser.AddCommand("import", "Import enriched events from JSON", "Import a JSON array of enriched events into the database.", cmds.Import)
	parser.AddCommand("events", "List stored events", "List stored events, optionally restricted to a year range.", cmds.Events)
	parser.AddCommand("show", "Print one event", "Print an event with its location and participants.", cmds.Show)
	parser.AddCommand("graph", "Export the relationship graph", "Build, lay out and export the people/location graph for a year window.", cmds.Graph)
	parser.AddCommand("timeline", "Print the timeline", "Print the events of a year window in timeline order.", cmds.Timeline)
	parser.AddCommand("serve", "Run the explorer service", "Run the HTTP explorer service until interrupted.", cmds.Serve)
	parser.AddCommand("prune", "Remove unreferenced people and places", "Remove persons and locations no event refers to.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL historian data", "Delete ALL historian data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the historian CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("historian %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
