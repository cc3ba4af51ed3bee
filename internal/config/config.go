package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/historian/config.yaml"

// Config holds all Historian configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
	Source  SourceConfig  `yaml:"source"`
	Filter  FilterConfig  `yaml:"filter"`
	Layout  LayoutConfig  `yaml:"layout"`
	Map     MapConfig     `yaml:"map"`
	Logging LoggingConfig `yaml:"logging"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxRequestSize int64    `yaml:"max_request_size"`
}

// SourceConfig selects where events come from: "store", "file" or "http".
type SourceConfig struct {
	Kind      string `yaml:"kind"`
	File      string `yaml:"file"`
	URL       string `yaml:"url"`
	TimeoutMS int    `yaml:"timeout_ms"`
	Watch     bool   `yaml:"watch"`
}

type FilterConfig struct {
	FallbackStartYear int `yaml:"fallback_start_year"`
	FallbackSpan      int `yaml:"fallback_span"`
}

type LayoutConfig struct {
	Width          float64 `yaml:"width"`
	Height         float64 `yaml:"height"`
	LinkDistance   float64 `yaml:"link_distance"`
	ChargeStrength float64 `yaml:"charge_strength"`
	CenterStrength float64 `yaml:"center_strength"`
	CollidePadding float64 `yaml:"collide_padding"`
	AlphaMin       float64 `yaml:"alpha_min"`
	AlphaDecay     float64 `yaml:"alpha_decay"`
	VelocityDecay  float64 `yaml:"velocity_decay"`
	ReheatTarget   float64 `yaml:"reheat_target"`
	TickIntervalMS int     `yaml:"tick_interval_ms"`
	WarmStart      bool    `yaml:"warm_start"`
	Seed           int64   `yaml:"seed"`
}

type MapConfig struct {
	DefaultLatitude  float64 `yaml:"default_latitude"`
	DefaultLongitude float64 `yaml:"default_longitude"`
	DefaultZoom      int     `yaml:"default_zoom"`
	SelectedZoom     int     `yaml:"selected_zoom"`
	DimmedOpacity    float64 `yaml:"dimmed_opacity"`
	IconURL          string  `yaml:"icon_url"`
	ShadowURL        string  `yaml:"shadow_url"`
	IconWidth        int     `yaml:"icon_width"`
	IconHeight       int     `yaml:"icon_height"`
}

// LoggingConfig controls the zap logger. MaxSize is in megabytes.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case "store", "file", "http":
	default:
		return fmt.Errorf("invalid source.kind %q", c.Source.Kind)
	}
	if c.Layout.Width <= 0 || c.Layout.Height <= 0 {
		return fmt.Errorf("layout viewport must be positive, got %vx%v", c.Layout.Width, c.Layout.Height)
	}
	if c.Filter.FallbackSpan < 1 {
		return fmt.Errorf("filter.fallback_span must be at least 1")
	}
	return nil
}

// DBPath returns the expanded path to the SQLite database file.
func (c *Config) DBPath() (string, error) {
	dir, err := expandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// TickInterval is the layout step period.
func (l LayoutConfig) TickInterval() time.Duration {
	return time.Duration(l.TickIntervalMS) * time.Millisecond
}

// Timeout is the remote source request timeout.
func (s SourceConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// ExpandPath is expandPath for callers outside the package.
func ExpandPath(path string) (string, error) {
	return expandPath(path)
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
