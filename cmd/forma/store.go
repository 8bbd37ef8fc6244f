package main

import (
	"context"
	"fmt"

	"github.com/yanizio/forma/internal/config"
	"github.com/yanizio/forma/internal/database"
	"github.com/yanizio/forma/internal/storage"
)

// openStore builds the KV store named by cfg.  The returned func closes any
// underlying database.
func openStore(ctx context.Context, cfg config.Storage) (*storage.KV, func(), error) {
	switch cfg.Driver {
	case "", "memory":
		return storage.New(storage.NewMemory()), func() {}, nil

	case database.DriverSQLite, database.DriverMySQL:
		db, err := database.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		b, err := storage.NewSQL(db, cfg.Table)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		if err := b.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate %s: %w", cfg.Driver, err)
		}
		return storage.New(b), func() { _ = db.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
}
