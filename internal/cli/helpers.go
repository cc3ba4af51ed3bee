package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/explorer"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/observability"
	"github.com/runnerr0/historian/internal/storage"
	"github.com/runnerr0/historian/internal/timefilter"
)

var (
	heading = color.New(color.FgHiYellow, color.Bold)
	subtle  = color.New(color.FgHiBlack)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
)

// loadConfig resolves the configuration.
// Priority: --config file > default config file (created if missing) > built-in defaults.
func loadConfig(globals *GlobalFlags) *config.Config {
	var cfg *config.Config
	var err error

	if globals != nil && globals.Config != "" {
		cfg, err = config.Load(globals.Config)
	} else {
		cfg, err = config.LoadOrCreate()
	}
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return cfg
}

// resolveDBPath determines the SQLite database file path.
// Priority: --db-path flag > config file > default config.
func resolveDBPath(globals *GlobalFlags, cfg *config.Config) (string, error) {
	if globals != nil && globals.DBPath != "" {
		return config.ExpandPath(globals.DBPath)
	}
	return cfg.DBPath()
}

// openStore opens the configured database, running migrations, and returns
// the store, the underlying *sql.DB and the resolved path.
func openStore(globals *GlobalFlags, cfg *config.Config) (*storage.SQLiteStore, *sql.DB, string, error) {
	dbPath, err := resolveDBPath(globals, cfg)
	if err != nil {
		return nil, nil, "", err
	}
	store, db, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, "", err
	}
	return store, db, dbPath, nil
}

// newLogger builds the process logger; --verbose forces debug level.
func newLogger(globals *GlobalFlags, cfg *config.Config) *zap.Logger {
	lc := cfg.Logging
	if globals != nil && globals.Verbose {
		lc.Level = "debug"
	}
	return observability.NewLogger(lc)
}

// newExplorer loads events into an explorer and applies the window flags.
func newExplorer(cfg *config.Config, logger *zap.Logger, events []model.EnrichedEvent, w WindowFlags) (*explorer.Explorer, error) {
	exp := explorer.New(explorer.OptionsFromConfig(cfg), logger)
	exp.Load(events)

	if w.StartYear == 0 && w.EndYear == 0 {
		return exp, nil
	}
	win := exp.Summary().Window
	if w.StartYear != 0 {
		win.Start = w.StartYear
	}
	if w.EndYear != 0 {
		win.End = w.EndYear
	}
	if err := exp.SetWindow(win); err != nil {
		exp.Close()
		return nil, err
	}
	return exp, nil
}

// yearQuery converts window flags to a store query.
func (w WindowFlags) yearQuery() storage.YearQuery {
	var q storage.YearQuery
	if w.StartYear != 0 {
		start := w.StartYear
		q.Start = &start
	}
	if w.EndYear != 0 {
		end := w.EndYear
		q.End = &end
	}
	return q
}

func printJSON(v any) error {
	return encodeJSON(os.Stdout, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printTitle(title string) {
	fmt.Println(heading.Sprint(title))
	fmt.Println(strings.Repeat("=", len(title)))
}

func formatWindow(w timefilter.Window) string {
	return fmt.Sprintf("%d-%d", w.Start, w.End)
}

func formatYear(year int) string {
	if year <= 0 {
		return "----"
	}
	return fmt.Sprintf("%d", year)
}

// formatNumber formats an int64 with comma separators.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
		if len(s) > remainder {
			result.WriteString(",")
		}
	}
	for i := remainder; i < len(s); i += 3 {
		if i > remainder {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
