// internal/adapter/storage/schema.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
)

// Store is the Postgres adapter behind the pipeline and the refresh timer.
type Store struct {
	db *pgxpool.Pool
}

// New creates a store on an existing connection pool.
func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const schema = `
CREATE TABLE IF NOT EXISTS trending_data (
	hashtag    TEXT PRIMARY KEY,
	caption    TEXT NOT NULL,
	post_url   TEXT,
	likes      BIGINT NOT NULL DEFAULT 0,
	comments   BIGINT NOT NULL DEFAULT 0,
	fetched_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS analysis_runs (
	run_id      UUID PRIMARY KEY,
	username    TEXT NOT NULL,
	interests   JSONB NOT NULL,
	suggestions JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS analysis_runs_username_created_idx
	ON analysis_runs (username, created_at DESC);

CREATE TABLE IF NOT EXISTS matched_trends (
	id          BIGSERIAL PRIMARY KEY,
	run_id      UUID NOT NULL REFERENCES analysis_runs (run_id),
	username    TEXT NOT NULL,
	hashtag     TEXT NOT NULL REFERENCES trending_data (hashtag),
	match_score INT NOT NULL CHECK (match_score BETWEEN 0 AND 100),
	reasoning   TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS matched_trends_run_idx ON matched_trends (run_id);
`

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Ping checks database connectivity, for health reporting.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
