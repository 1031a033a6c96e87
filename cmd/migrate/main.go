package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Rrens/voice-companion/internal/config"
	"github.com/Rrens/voice-companion/internal/logger"
	"github.com/Rrens/voice-companion/internal/repository"
	"github.com/Rrens/voice-companion/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if _, err := logger.Setup(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Migration failed")
	}
}

// run applies versioned migrations for Postgres. The other backends create
// their tables and indexes when opened.
func run(ctx context.Context, cfg *config.Config) error {
	if cfg.Storage.Driver == "postgres" {
		log.Info().
			Str("host", cfg.Storage.Postgres.Host).
			Str("source", cfg.Storage.Postgres.Migrations).
			Msg("Applying Postgres migrations")
		return postgres.RunMigrations(cfg.Storage.Postgres.DSN(), cfg.Storage.Postgres.Migrations)
	}

	store, err := repository.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer store.Close()

	log.Info().Msg("Schema is up to date")
	return nil
}
