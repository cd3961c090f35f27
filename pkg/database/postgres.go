package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig holds PostgreSQL connection configuration.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	// ApplicationName shows up in pg_stat_activity.
	ApplicationName string
	// ReadOnly opens every session with default_transaction_read_only.
	ReadOnly bool
	// StatementTimeout bounds every statement server-side. Zero keeps the
	// server default.
	StatementTimeout time.Duration

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPostgresConfig returns sensible defaults for the search read pool.
func DefaultPostgresConfig() PostgresConfig {
	return PostgresConfig{
		Host:             "localhost",
		Port:             5432,
		User:             "ecommerce",
		Password:         "ecommerce_secret",
		DBName:           "ecommerce",
		SSLMode:          "disable",
		ApplicationName:  "search-service",
		ReadOnly:         true,
		StatementTimeout: 5 * time.Second,
		MaxConns:         25,
		MinConns:         2,
		MaxConnLifetime:  time.Hour,
		MaxConnIdleTime:  30 * time.Minute,
	}
}

// DSN returns the PostgreSQL connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

func (c *PostgresConfig) poolConfig() (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(c.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	poolConfig.MaxConns = c.MaxConns
	poolConfig.MinConns = c.MinConns
	poolConfig.MaxConnLifetime = c.MaxConnLifetime
	poolConfig.MaxConnIdleTime = c.MaxConnIdleTime

	params := poolConfig.ConnConfig.RuntimeParams
	if c.ApplicationName != "" {
		params["application_name"] = c.ApplicationName
	}
	if c.ReadOnly {
		params["default_transaction_read_only"] = "on"
	}
	if c.StatementTimeout > 0 {
		params["statement_timeout"] = fmt.Sprintf("%d", c.StatementTimeout.Milliseconds())
	}
	return poolConfig, nil
}

// NewPostgresPool creates a connection pool and verifies it with a ping.
// Transient connection failures are retried (3 attempts, 1s/2s/4s backoff
// with ±25% jitter). logger may be nil.
func NewPostgresPool(ctx context.Context, cfg *PostgresConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	if err := connectWithRetry(ctx, "postgres", logger, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
