package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ccsquare/ChatFold-MVP-sub000/src/config"
	"github.com/ccsquare/ChatFold-MVP-sub000/src/state"
	"github.com/ccsquare/ChatFold-MVP-sub000/src/storage"
)

// appFS is swapped for a memory filesystem in tests.
var appFS afero.Fs = afero.NewOsFs()

// buildConfig merges CLI flags over the defaults and validates the result.
func buildConfig(cli *CLI) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if cli.DB != "" {
		cfg.DatabasePath = cli.DB
	}
	if cli.LogLevel != "" {
		cfg.LogLevel = cli.LogLevel
	}
	if err := config.NewValidator().Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openCore stands up the store, guard and persistence adapter the way a
// browser tab boots: subscribe the adapter first, then restore.
func openCore(cfg *config.Config, logger *slog.Logger) (*state.Store, *storage.Adapter, *storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		return nil, nil, nil, fmt.Errorf("create state dir: %w", err)
	}
	db, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}

	store := state.NewStore(logger)
	state.NewRehydrationGuard(store, logger)
	adapter := storage.NewAdapter(db, cfg.Namespace, store, logger)
	adapter.Attach()
	return store, adapter, db, nil
}
