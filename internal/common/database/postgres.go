// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"content-testing-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the SQL connection pool.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS problems (
		location   TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS content_tests (
		id               TEXT PRIMARY KEY,
		problem_location TEXT NOT NULL,
		should_be        TEXT NOT NULL,
		verdict          TEXT NOT NULL,
		response_dict    JSONB NOT NULL DEFAULT '{}',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS content_tests_problem_idx ON content_tests (problem_location)`,
	`CREATE TABLE IF NOT EXISTS content_test_responses (
		id         TEXT PRIMARY KEY,
		test_id    TEXT NOT NULL REFERENCES content_tests (id) ON DELETE CASCADE,
		string_id  TEXT NOT NULL,
		xml_hash   TEXT NOT NULL,
		shape_hash TEXT NOT NULL DEFAULT '',
		position   INTEGER NOT NULL
	)`,
	`ALTER TABLE content_test_responses ADD COLUMN IF NOT EXISTS shape_hash TEXT NOT NULL DEFAULT ''`,
	`CREATE TABLE IF NOT EXISTS content_test_inputs (
		id             TEXT PRIMARY KEY,
		response_id    TEXT NOT NULL REFERENCES content_test_responses (id) ON DELETE CASCADE,
		string_id      TEXT NOT NULL,
		response_index INTEGER NOT NULL,
		input_index    INTEGER NOT NULL,
		answer         TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates the tables used by the problem source and the test repository.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
