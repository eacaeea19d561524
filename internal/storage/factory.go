package storage

import (
	"context"
	"fmt"

	"github.com/lerianstudio/memory-retrieval/internal/config"
	memerrors "github.com/lerianstudio/memory-retrieval/internal/errors"
)

// New constructs and initialises the Backend selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	var b Backend
	var err error

	switch cfg.Backend {
	case config.StorageBackendPostgres:
		b, err = NewPostgresBackend(cfg.DSN)
	case config.StorageBackendSQLite:
		b, err = NewSQLiteBackend(cfg.DSN)
	default:
		return nil, memerrors.New(memerrors.KindInputValidation, "storage.New", fmt.Errorf("unknown storage backend %q", cfg.Backend))
	}
	if err != nil {
		return nil, err
	}

	// SQLite permits only one writer; its constructor already pins the pool
	// to a single connection; skip the general pool-sizing overrides below.
	if cfg.Backend == config.StorageBackendPostgres {
		if cfg.MaxOpenConns > 0 {
			b.DB().SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			b.DB().SetMaxIdleConns(cfg.MaxIdleConns)
		}
		if cfg.ConnMaxLifetime > 0 {
			b.DB().SetConnMaxLifetime(cfg.ConnMaxLifetime)
		}
	}

	if err := b.Initialize(ctx); err != nil {
		return nil, err
	}
	return b, nil
}
