package tokenstore

import (
	"context"
	"fmt"

	"clinicdesk/internal/config"
)

// Open builds the store selected by cfg.Store.Driver, sealed when a seal key is configured.
func Open(ctx context.Context, cfg *config.AppConfig) (Store, error) {
	var (
		store Store
		err   error
	)

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store = NewMemoryStore()
	case config.StoreDriverSQLite:
		store, err = OpenSQLiteStore(ctx, cfg.Store.Path)
	case config.StoreDriverRedis:
		client, dialErr := DialRedis(ctx, cfg.Redis)
		if dialErr != nil {
			return nil, dialErr
		}
		store = NewRedisStore(client, cfg.Store.Prefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Store.SealKey != "" {
		store = NewSealed(store, cfg.Store.SealKey)
	}
	return store, nil
}
