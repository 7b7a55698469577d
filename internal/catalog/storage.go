package catalog

import (
	"context"
	"fmt"

	"mineralcatalog/internal/config"
	"mineralcatalog/internal/infra/persistence/memory"
	"mineralcatalog/internal/infra/persistence/postgres"
	"mineralcatalog/internal/infra/persistence/sqlite"
	"mineralcatalog/pkg/domain"
)

// OpenStore selects a persistence backend from configuration.
//
//	memory:   in-process only
//	sqlite:   in-process with a mirror table at cfg.SQLitePath
//	postgres: in-process with a mirror table reachable via cfg.PostgresDSN
func OpenStore(ctx context.Context, cfg config.StorageConfig) (domain.PersistentStore, error) {
	switch cfg.Driver {
	case config.StorageMemory, "":
		return memory.NewStore(), nil
	case config.StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StoragePostgres:
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}
