package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"

	// import db drivers
	_ "github.com/lib/pq"

	"github.com/sevigo/rate-my-mr/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the sqlx connection pool holding the run history.
type DB struct {
	*sqlx.DB
	logger *slog.Logger
}

// DSN builds the lib/pq connection string for cfg.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database)
}

// NewDatabase connects to Postgres and applies pending migrations.
// The returned cleanup closes the pool.
func NewDatabase(cfg config.DBConfig, logger *slog.Logger) (*DB, func(), error) {
	conn, err := sqlx.Connect("postgres", DSN(cfg))
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{DB: conn, logger: logger}

	logger.Info("running database migrations", "database", cfg.Database)
	if err := db.RunMigrations(); err != nil {
		_ = conn.Close()
		return nil, func() {}, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	return db, func() {
		if err := conn.Close(); err != nil {
			logger.Error("failed to close database connection", "error", err)
		}
	}, nil
}

// RunMigrations applies the embedded migrations. A dirty schema is reported
// instead of being forced.
func (db *DB) RunMigrations() error {
	migrator, err := db.newMigrator()
	if err != nil {
		return err
	}

	_, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return errors.New("database is in dirty state, run 'migrate force <version>' after fixing the failed migration")
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}

func (db *DB) newMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db.DB.DB, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return migrator, nil
}
