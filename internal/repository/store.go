// Package repository selects and opens the configured storage gateway.
package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/domain"
	"github.com/Rrens/voice-companion/internal/repository/mongo"
	"github.com/Rrens/voice-companion/internal/repository/postgres"
	"github.com/Rrens/voice-companion/internal/repository/sqlstore"
	"github.com/rs/zerolog/log"
)

// Open connects to the backend named by cfg.Driver. Postgres schemas are
// managed by cmd/migrate; the other backends create their schema on open.
func Open(ctx context.Context, cfg config.StorageConfig) (domain.Store, error) {
	log.Info().Str("driver", cfg.Driver).Msg("Opening storage gateway")

	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(db), nil

	case "sqlite", "mysql":
		dialect, dsn := sqlstore.SQLite, cfg.SQLite.Path
		if cfg.Driver == "mysql" {
			dialect, dsn = sqlstore.MySQL, cfg.MySQL.DSN()
		} else if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
			}
		}
		store, err := sqlstore.Open(ctx, dialect, dsn)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	case "mongo":
		return mongo.Open(ctx, cfg.Mongo)

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}
