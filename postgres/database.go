package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type DB struct {
	*pgxpool.Pool
	logger *slog.Logger
}

// Initialise a new database connection. connString should be a valid postgres connection string (such as a postgres-url).
func NewDB(ctx context.Context, connString string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to postgres database: %w", err)
	}
	logger.Info("Connected to postgres database", "host", pool.Config().ConnConfig.Host)
	return &DB{Pool: pool, logger: logger}, nil
}

func (db *DB) createGooseProvider() (*goose.Provider, error) {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("cannot get embedded migrations folder: %w", err)
	}
	return goose.NewProvider(
		goose.DialectPostgres,
		stdlib.OpenDBFromPool(db.Pool),
		migrations,
	)
}

// Migrate the database to the latest version.
func (db *DB) Migrate(ctx context.Context) error {
	provider, err := db.createGooseProvider()
	if err != nil {
		return fmt.Errorf("cannot create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("cannot run database migrations: %w", err)
	}
	for _, result := range results {
		db.logger.Debug("Applied migration", "source", result.Source.Path, "duration", result.Duration)
	}

	if err := provider.Close(); err != nil {
		return fmt.Errorf("cannot close goose provider connection: %w", err)
	}

	return nil
}

// Migrate the database down a single step.
func (db *DB) MigrateDown(ctx context.Context) error {
	provider, err := db.createGooseProvider()
	if err != nil {
		return fmt.Errorf("cannot create goose provider: %w", err)
	}

	if _, err = provider.Down(ctx); err != nil {
		return fmt.Errorf("cannot run database down migrations: %w", err)
	}

	if err := provider.Close(); err != nil {
		return fmt.Errorf("cannot close goose provider connection: %w", err)
	}

	return nil
}
