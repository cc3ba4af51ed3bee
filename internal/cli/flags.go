package cli

import "database/sql"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	DBPath  string `long:"db-path" description:"Override the SQLite database path"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// WindowFlags select a year window. Zero means the dataset bound.
type WindowFlags struct {
	StartYear int `long:"start-year" description:"First year of the window"`
	EndYear   int `long:"end-year" description:"Last year of the window"`
}

// StatusCommand reports database statistics and the configured source.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ImportCommand loads a JSON export of enriched events into the database.
type ImportCommand struct {
	File     string `long:"file" description:"JSON file with an array of enriched events (required)"`
	Artifact string `long:"artifact" description:"Artifact (book) id for records that carry none"`

	globals *GlobalFlags
	version string
}

// EventsCommand lists stored events, optionally within a year range.
type EventsCommand struct {
	WindowFlags
	Limit int `long:"limit" description:"Maximum results (0 for all)" default:"0"`

	globals *GlobalFlags
	version string
}

// ShowCommand prints one event with its location and participants.
type ShowCommand struct {
	ID string `long:"id" description:"Event ID (required)"`

	globals *GlobalFlags
	version string
}

// GraphCommand builds and lays out the relationship graph for a window.
type GraphCommand struct {
	WindowFlags
	Format string `long:"format" description:"Output format" choice:"json" choice:"svg" choice:"dot" default:"json"`
	Steps  int    `long:"steps" description:"Maximum layout steps before rendering" default:"300"`
	Output string `long:"output" short:"o" description:"Write to file instead of stdout"`

	globals *GlobalFlags
	version string
}

// TimelineCommand prints the ordered timeline for a window.
type TimelineCommand struct {
	WindowFlags
	Select string `long:"select" description:"Event ID to mark as selected"`

	globals *GlobalFlags
	version string
}

// ServeCommand runs the HTTP explorer service.
type ServeCommand struct {
	Host   string `long:"host" description:"Override listen host"`
	Port   int    `long:"port" description:"Override listen port"`
	Source string `long:"source" description:"Override event source" choice:"store" choice:"file" choice:"http"`
	File   string `long:"file" description:"Events file for the file source"`
	URL    string `long:"url" description:"Base URL for the http source"`
	Watch  bool   `long:"watch" description:"Reload the file source when it changes"`

	globals *GlobalFlags
	version string
}

// PruneCommand removes persons and locations no event refers to.
type PruneCommand struct {
	DryRun bool `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes ALL historian data after confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB // injectable for testing; nil means open default DB
}
