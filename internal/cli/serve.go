package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/historian/internal/config"
	"github.com/runnerr0/historian/internal/explorer"
	"github.com/runnerr0/historian/internal/server"
	"github.com/runnerr0/historian/internal/source"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg := loadConfig(c.globals)
	c.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return c.run(ctx, cfg)
}

// applyOverrides folds command-line flags into cfg.
func (c *ServeCommand) applyOverrides(cfg *config.Config) {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}
	if c.Source != "" {
		cfg.Source.Kind = c.Source
	}
	if c.File != "" {
		cfg.Source.File = c.File
		if c.Source == "" {
			cfg.Source.Kind = "file"
		}
	}
	if c.URL != "" {
		cfg.Source.URL = c.URL
	}
	if c.Watch {
		cfg.Source.Watch = true
	}
}

// run serves until ctx is cancelled. The database is always opened so
// /events/enriched can answer from it; the explorer reads from the
// configured source.
func (c *ServeCommand) run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(c.globals, cfg)
	defer logger.Sync() //nolint:errcheck

	store, db, dbPath, err := openStore(c.globals, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	src, err := source.New(cfg.Source, store, logger)
	if err != nil {
		return err
	}

	exp := explorer.New(explorer.OptionsFromConfig(cfg), logger)
	defer exp.Close()
	exp.Load(source.LoadOrEmpty(ctx, src, logger))
	exp.Start()

	srv := server.New(cfg.Server, exp, store, logger)
	logger.Info("historian serving",
		zap.String("version", c.version),
		zap.String("address", srv.Addr()),
		zap.String("source", cfg.Source.Kind),
		zap.String("database", dbPath))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if fs, ok := src.(*source.FileSource); ok && cfg.Source.Watch {
		g.Go(func() error {
			return source.Watch(gctx, fs.Path(), source.DefaultDebounce, logger, func() {
				source.Reload(gctx, src, logger, exp.Load)
			})
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
