package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/trustfabric/replayseal/pkg/config"
	"github.com/trustfabric/replayseal/pkg/observability"
	"github.com/trustfabric/replayseal/pkg/store"
	"github.com/trustfabric/replayseal/pkg/tether"

	_ "github.com/lib/pq" // Postgres Driver
)

// engine bundles the shared wiring every subcommand needs.
type engine struct {
	cfg     *config.Config
	store   store.Store
	checker *tether.Checker
	profile *config.EngineProfile
	obs     *observability.Provider
	logger  *slog.Logger
}

// newEngine loads config from the environment, opens the configured store
// backend, and builds the tether checker. When REPLAYSEAL_PROFILE is set
// the named YAML profile supplies module expectations.
func newEngine() (*engine, error) {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))

	st, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	obs := observability.Noop()
	if cfg.OTLPEndpoint != "" {
		obsCfg := observability.DefaultConfig()
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
		obs, err = observability.New(context.Background(), obsCfg)
		if err != nil {
			return nil, err
		}
	}

	e := &engine{
		cfg:     cfg,
		store:   st,
		checker: tether.NewChecker(cfg.LockPath, cfg.SchemaDir, logger),
		obs:     obs,
		logger:  logger,
	}

	if code := os.Getenv("REPLAYSEAL_PROFILE"); code != "" {
		dir := os.Getenv("REPLAYSEAL_PROFILE_DIR")
		if dir == "" {
			dir = "./profiles"
		}
		profile, err := config.LoadProfile(dir, code)
		if err != nil {
			return nil, err
		}
		e.profile = profile
	}
	return e, nil
}

// expectation returns the tether expectation for moduleID, from the
// profile when one is loaded, otherwise just the configured contract
// version.
func (e *engine) expectation(moduleID string) tether.Expectation {
	if e.profile != nil {
		return e.profile.Expectation(moduleID)
	}
	return tether.Expectation{
		ModuleID:        moduleID,
		ContractVersion: e.cfg.ContractVersion,
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return store.NewMemoryStore(), nil
	case config.DriverFile:
		return store.NewFileStore(cfg.DataDir)
	case config.DriverSQLite:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, err
		}
		return store.OpenSQLiteStore(filepath.Join(cfg.DataDir, "replayseal.db"))
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pg := store.NewPostgresStore(db)
		if err := pg.Init(context.Background()); err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
