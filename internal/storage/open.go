package storage

import (
	"context"
	"fmt"

	"github.com/kidroute/kidroute/internal/database"
)

// Backend drivers accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OpenConfig selects and configures a backend.
type OpenConfig struct {
	Driver     string
	SQLitePath string
	Database   database.Config
}

// Open connects the configured backend and prepares its schema. The returned
// close function releases the backend's connections.
func Open(ctx context.Context, cfg OpenConfig) (Store, func(), error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemoryStore(), func() {}, nil

	case DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	case DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s := NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
