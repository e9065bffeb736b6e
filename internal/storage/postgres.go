package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps the PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	ConnectionString string
	MaxConnections   int32
	MinConnections   int32
	ConnectTimeout   time.Duration
}

// New creates a new Store with the given configuration
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MinConns = cfg.MinConnections
	poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Health checks if the database connection is healthy
func (s *Store) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Stats returns connection pool statistics
func (s *Store) Stats() *pgxpool.Stat {
	return s.pool.Stat()
}
