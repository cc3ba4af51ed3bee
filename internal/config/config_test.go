package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "~/.config/historian", cfg.Storage.Path)
	assert.Equal(t, "historian.db", cfg.Storage.SQLiteFile)
	assert.Equal(t, "wal", cfg.Storage.SQLiteJournalMode)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "store", cfg.Source.Kind)
	assert.Equal(t, 1850, cfg.Filter.FallbackStartYear)
	assert.Equal(t, 50, cfg.Filter.FallbackSpan)
	assert.Equal(t, 80.0, cfg.Layout.LinkDistance)
	assert.Equal(t, -200.0, cfg.Layout.ChargeStrength)
	assert.Equal(t, 10.0, cfg.Layout.CollidePadding)
	assert.Equal(t, 0.001, cfg.Layout.AlphaMin)
	assert.InDelta(t, 0.0228, cfg.Layout.AlphaDecay, 0.0001)
	assert.Equal(t, 0.4, cfg.Layout.VelocityDecay)
	assert.Equal(t, 0.3, cfg.Layout.ReheatTarget)
	assert.False(t, cfg.Layout.WarmStart)
	assert.Equal(t, 40.7580, cfg.Map.DefaultLatitude)
	assert.Equal(t, -73.9855, cfg.Map.DefaultLongitude)
	assert.Equal(t, 0.6, cfg.Map.DimmedOpacity)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
	assert.Empty(t, cfg.Logging.File)
	assert.NoError(t, cfg.Validate())
}

func TestLoadValidYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	yamlContent := `
server:
  port: 9999
source:
  kind: "file"
  file: "/tmp/events.json"
  watch: true
layout:
  width: 1200
  warm_start: true
logging:
  level: "debug"
`
	err := os.WriteFile(cfgPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	// Overridden values
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "file", cfg.Source.Kind)
	assert.Equal(t, "/tmp/events.json", cfg.Source.File)
	assert.True(t, cfg.Source.Watch)
	assert.Equal(t, 1200.0, cfg.Layout.Width)
	assert.True(t, cfg.Layout.WarmStart)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Non-overridden values remain defaults
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 600.0, cfg.Layout.Height)
	assert.Equal(t, 80.0, cfg.Layout.LinkDistance)
	assert.Equal(t, "~/.config/historian", cfg.Storage.Path)
}

func TestLoadInvalidYAMLReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte(":::not valid yaml{{{"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestLoadRejectsUnknownSourceKind(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte("source:\n  kind: carrier-pigeon\n"), 0644)
	require.NoError(t, err)

	_, err = Load(cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestLoadNonExistentFileReturnsError(t *testing.T) {
	_, err := Load("/tmp/nonexistent_path_12345/config.yaml")
	assert.Error(t, err)
}

func TestLoadOrCreateCreatesDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sub", "dir", "config.yaml")

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)

	_, statErr := os.Stat(cfgPath)
	assert.NoError(t, statErr)

	// File should be valid YAML loadable again
	cfg2, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.Layout.ChargeStrength, cfg2.Layout.ChargeStrength)
}

func TestLoadOrCreateLoadsExistingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	err := os.WriteFile(cfgPath, []byte("filter:\n  fallback_start_year: 1700\n"), 0644)
	require.NoError(t, err)

	cfg, err := LoadOrCreateAt(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 1700, cfg.Filter.FallbackStartYear)
	// Other fields remain defaults
	assert.Equal(t, 50, cfg.Filter.FallbackSpan)
}

func TestDBPathJoinsStorageFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = "/var/lib/historian"

	p, err := cfg.DBPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/historian/historian.db", p)
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 16*time.Millisecond, cfg.Layout.TickInterval())
	assert.Equal(t, 5*time.Second, cfg.Source.Timeout())
}
