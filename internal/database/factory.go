package database

import (
	"fmt"
	"path/filepath"

	"sweeper/internal/config"
	"sweeper/internal/database/migrations"
	"sweeper/internal/sweep"
)

// NewStore opens the configured database, applies pending migrations and
// returns the store.
func NewStore(cfg config.DatabaseConfig) (sweep.Store, error) {
	switch cfg.Type {
	case "", "sqlite":
		filename := filepath.Join(cfg.DataDir, "sweeper.db")
		db, err := OpenConnection(filename)
		if err != nil {
			return nil, err
		}
		if err := migrations.MigrateUp(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating database %q: %w", filename, err)
		}
		return NewSQLiteStore(db), nil
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}
