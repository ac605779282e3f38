// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"marketplace-matching/internal/common/config"
	"marketplace-matching/internal/common/errors"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL database connection
type PostgresClient struct {
	DB *sql.DB
}

// NewPostgres creates a new PostgreSQL client
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, errors.NewDatabaseConnectionFailedError(err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

// Ping tests the database connection
func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return errors.NewDatabaseConnectionFailedError(err)
	}
	return nil
}

// Close closes the database connection
func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema holds the tables owned by this service, applied in order.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS match_preferences (
		user_id             TEXT        NOT NULL,
		category            TEXT        NOT NULL DEFAULT '',
		prioritize_location BOOLEAN     NOT NULL DEFAULT FALSE,
		prioritize_rate     BOOLEAN     NOT NULL DEFAULT FALSE,
		prioritize_urgent   BOOLEAN     NOT NULL DEFAULT FALSE,
		max_distance_km     DOUBLE PRECISION,
		weights             JSONB,
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, category)
	)`,
}

// Migrate creates the service tables if they do not exist yet.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return errors.NewQueryExecutionFailedError(fmt.Sprintf("migration %d", i+1), err)
		}
	}
	return nil
}
