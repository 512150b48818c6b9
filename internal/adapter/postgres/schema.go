package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS mirror_jobs (
	id            TEXT PRIMARY KEY,
	seed_url      TEXT NOT NULL,
	depth         INTEGER NOT NULL,
	convert_links BOOLEAN NOT NULL,
	status        TEXT NOT NULL,
	stats         JSONB NOT NULL DEFAULT '{}',
	fail_reason   TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	started_at    TIMESTAMPTZ,
	finished_at   TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS mirror_manifest (
	id           BIGSERIAL PRIMARY KEY,
	job_id       TEXT NOT NULL,
	url          TEXT NOT NULL,
	local_path   TEXT NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	state        TEXT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL,
	UNIQUE (job_id, url)
);
`

// EnsureSchema creates the tables used by this package if they are missing.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, schema)
	return err
}
