// Package database opens the Postgres pool backing search history.
package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultApplicationName = "vsearchd"
	defaultPingAttempts    = 5
	defaultPingBackoff     = 500 * time.Millisecond
)

// Config holds database connection configuration. Zero values fall back
// to the pgx defaults, or to the package defaults above.
type Config struct {
	URL             string
	ApplicationName string
	MaxConns        int32
	MinConns        int32

	// PingAttempts bounds how long startup waits for a database that is
	// still booting next to the server.
	PingAttempts int
	PingBackoff  time.Duration
}

// NewPool creates a pgx pool and waits until the database answers a ping.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	name := cfg.ApplicationName
	if name == "" {
		name = defaultApplicationName
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = name

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := ping(ctx, pool, cfg); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, cfg Config) error {
	attempts := cfg.PingAttempts
	if attempts <= 0 {
		attempts = defaultPingAttempts
	}
	backoff := cfg.PingBackoff
	if backoff <= 0 {
		backoff = defaultPingBackoff
	}

	var err error
	for i := 1; i <= attempts; i++ {
		if err = pool.Ping(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		log.Printf("database: ping %d/%d failed, retrying in %v: %v", i, attempts, backoff, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
