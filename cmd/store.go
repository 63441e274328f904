package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/envtrac/chemrisk-cli/internal/store"
)

// initStore opens the runs ledger for the configured driver. The "none"
// driver returns a store that records nothing.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.SQLitePath
		if path == "" {
			path = "chemrisk.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "none":
		return store.NewNop(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
