package storage

import (
	"context"
	"fmt"
)

// Open builds the DedupStore described by cfg
func Open(ctx context.Context, cfg StorageConfig, now Clock) (DedupStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "sqlite"
		if cfg.PostgresDSN != "" {
			driver = "postgres"
		}
	}

	switch driver {
	case "sqlite":
		return OpenSQLite(ctx, cfg.Path, now)
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("storage driver postgres requires a DSN")
		}
		return OpenPostgres(ctx, cfg.PostgresDSN, now)
	case "memory":
		return NewMemoryStore(now), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
