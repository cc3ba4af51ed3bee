// Package source loads the enriched event dataset from wherever it lives:
// the local SQLite store, a JSON export on disk, or a remote historian API.
package source

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/model"
	"github.com/runnerr0/historian/internal/storage"
)

// Source yields the full enriched event list.
type Source interface {
	Events(ctx context.Context) ([]model.EnrichedEvent, error)
}

// Lister is the part of storage.Store a StoreSource needs.
type Lister interface {
	ListEnriched(ctx context.Context, q storage.YearQuery) ([]model.EnrichedEvent, error)
}

// StoreSource reads every event from the local database.
type StoreSource struct {
	store Lister
}

// NewStoreSource wraps a store.
func NewStoreSource(store Lister) *StoreSource {
	return &StoreSource{store: store}
}

// Events implements Source.
func (s *StoreSource) Events(ctx context.Context) ([]model.EnrichedEvent, error) {
	events, err := s.store.ListEnriched(ctx, storage.YearQuery{})
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// FileSource reads a JSON array of enriched events from disk.
type FileSource struct {
	path   string
	logger *zap.Logger
}

// NewFileSource returns a source for the file at path. Skipped records are
// reported on logger, which may be nil.
func NewFileSource(path string, logger *zap.Logger) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{path: path, logger: logger.Named("file_source")}
}

// Path is the file being read.
func (s *FileSource) Path() string {
	return s.path
}

// Events implements Source.
func (s *FileSource) Events(ctx context.Context) ([]model.EnrichedEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close()

	events, err := Decode(f, s.logger)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return events, nil
}

// New builds the source selected by cfg. store may be nil unless the kind
// is "store".
func New(cfg config.SourceConfig, store Lister, logger *zap.Logger) (Source, error) {
	switch cfg.Kind {
	case "", "store":
		if store == nil {
			return nil, fmt.Errorf("store source requires an open database")
		}
		return NewStoreSource(store), nil
	case "file":
		if cfg.File == "" {
			return nil, fmt.Errorf("file source requires source.file")
		}
		path, err := config.ExpandPath(cfg.File)
		if err != nil {
			return nil, err
		}
		return NewFileSource(path, logger), nil
	case "http":
		return NewHTTPSource(cfg.URL, cfg.Timeout(), logger), nil
	}
	return nil, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

// LoadOrEmpty fetches the dataset and degrades to an empty list on any
// failure. The error is logged, never returned.
func LoadOrEmpty(ctx context.Context, src Source, logger *zap.Logger) []model.EnrichedEvent {
	events, err := src.Events(ctx)
	if err != nil {
		logger.Warn("failed to load events, continuing with an empty dataset", zap.Error(err))
		return []model.EnrichedEvent{}
	}
	if events == nil {
		events = []model.EnrichedEvent{}
	}
	logger.Debug("events loaded", zap.Int("count", len(events)))
	return events
}

// Reload fetches the dataset and hands it to apply. Unlike LoadOrEmpty a
// failure leaves the caller's current data alone: apply is not called and
// the error is logged. It reports whether apply ran.
func Reload(ctx context.Context, src Source, logger *zap.Logger, apply func([]model.EnrichedEvent)) bool {
	events, err := src.Events(ctx)
	if err != nil {
		logger.Warn("reload failed, keeping the current dataset", zap.Error(err))
		return false
	}
	if events == nil {
		events = []model.EnrichedEvent{}
	}
	logger.Info("dataset reloaded", zap.Int("count", len(events)))
	apply(events)
	return true
}
