package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS import_runs (
	id            uuid PRIMARY KEY,
	source        text        NOT NULL,
	started_at    timestamptz NOT NULL DEFAULT now(),
	finished_at   timestamptz,
	total         integer     NOT NULL DEFAULT 0,
	created       integer     NOT NULL DEFAULT 0,
	updated       integer     NOT NULL DEFAULT 0,
	warned        integer     NOT NULL DEFAULT 0,
	failed        integer     NOT NULL DEFAULT 0,
	not_attempted integer     NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS import_outcomes (
	run_id     uuid        NOT NULL REFERENCES import_runs(id) ON DELETE CASCADE,
	line       integer     NOT NULL,
	name       text        NOT NULL,
	sku        text        NOT NULL,
	status     text        NOT NULL,
	stage      text        NOT NULL,
	product_id text        NOT NULL DEFAULT '',
	error      text        NOT NULL DEFAULT '',
	warnings   text[]      NOT NULL DEFAULT '{}',
	updated_at timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, line)
);
`

// New opens a database/sql handle on the lib/pq driver.
func New(url string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return conn, nil
}

func NewPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres pool: %w", err)
	}
	return pool, nil
}

// Migrate creates the journal tables when missing.
func Migrate(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, schema)
	return err
}
