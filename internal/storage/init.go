package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// maintenanceDatabase is the database connected to when creating the
// history database
const maintenanceDatabase = "postgres"

// EnsureDatabase ensures the history database exists, creating it if
// necessary, and applies the embedded migrations in file name order
func EnsureDatabase(ctx context.Context, connectionString string) error {
	connConfig, err := pgx.ParseConfig(connectionString)
	if err != nil {
		return fmt.Errorf("failed to parse connection string: %w", err)
	}

	conn, err := pgx.ConnectConfig(ctx, connConfig)
	if err != nil {
		if !isMissingDatabase(err) {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := createDatabase(ctx, connConfig); err != nil {
			return fmt.Errorf("failed to create database: %w", err)
		}

		conn, err = pgx.ConnectConfig(ctx, connConfig)
		if err != nil {
			return fmt.Errorf("failed to connect to newly created database: %w", err)
		}
	}
	defer conn.Close(ctx)

	if err := runMigrations(ctx, conn); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// isMissingDatabase reports whether err is PostgreSQL's invalid_catalog_name
func isMissingDatabase(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "3D000"
	}
	return strings.Contains(err.Error(), "does not exist")
}

// maintenanceConfig returns a copy of cfg pointed at the maintenance database
func maintenanceConfig(cfg *pgx.ConnConfig) (*pgx.ConnConfig, string, error) {
	dbName := cfg.Database
	if dbName == "" {
		return nil, "", fmt.Errorf("no database name in connection string")
	}
	if dbName == maintenanceDatabase {
		return nil, "", fmt.Errorf("refusing to create the %q maintenance database", maintenanceDatabase)
	}

	maint := cfg.Copy()
	maint.Database = maintenanceDatabase
	return maint, dbName, nil
}

// createDatabase creates the configured database from the maintenance one
func createDatabase(ctx context.Context, cfg *pgx.ConnConfig) error {
	maint, dbName, err := maintenanceConfig(cfg)
	if err != nil {
		return err
	}

	conn, err := pgx.ConnectConfig(ctx, maint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", maintenanceDatabase, err)
	}
	defer conn.Close(ctx)

	// CREATE DATABASE does not accept parameters
	createSQL := "CREATE DATABASE " + pgx.Identifier{dbName}.Sanitize()
	if _, err := conn.Exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to execute CREATE DATABASE: %w", err)
	}

	return nil
}

// migrationFiles lists the embedded migrations in the order they apply
func migrationFiles() ([]string, error) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// runMigrations runs database migrations
func runMigrations(ctx context.Context, conn *pgx.Conn) error {
	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, migrationFile := range files {
		migrationSQL, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		if _, err := conn.Exec(ctx, string(migrationSQL)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", migrationFile, err)
		}
	}

	return nil
}
