package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/site-mirror/internal/entity"
)

// ManifestRepoImpl provides a concrete implementation for the ManifestRepository interface using PostgreSQL.
type ManifestRepoImpl struct {
	db *pgxpool.Pool
}

// NewManifestRepo creates a new instance of ManifestRepoImpl.
func NewManifestRepo(db *pgxpool.Pool) *ManifestRepoImpl {
	return &ManifestRepoImpl{db: db}
}

// Save upserts all entries within a single transaction.
func (r *ManifestRepoImpl) Save(ctx context.Context, entries []entity.ManifestEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO mirror_manifest (job_id, url, local_path, content_type, state, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (job_id, url) DO UPDATE SET
			local_path = EXCLUDED.local_path,
			content_type = EXCLUDED.content_type,
			state = EXCLUDED.state,
			recorded_at = EXCLUDED.recorded_at;
	`
	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, e.JobID, e.URL, e.LocalPath, e.ContentType, string(e.State), e.RecordedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save manifest: %w", err)
	}

	return tx.Commit(ctx)
}

// FindByJob retrieves the manifest of a job in insertion order.
func (r *ManifestRepoImpl) FindByJob(ctx context.Context, jobID string) ([]entity.ManifestEntry, error) {
	query := `
		SELECT id, job_id, url, local_path, content_type, state, recorded_at
		FROM mirror_manifest
		WHERE job_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []entity.ManifestEntry
	for rows.Next() {
		var (
			e     entity.ManifestEntry
			state string
		)
		if err := rows.Scan(&e.ID, &e.JobID, &e.URL, &e.LocalPath, &e.ContentType, &state, &e.RecordedAt); err != nil {
			return nil, err
		}
		e.State = entity.ManifestState(state)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
