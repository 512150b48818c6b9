package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
)

// JobRepoImpl provides a concrete implementation for the JobRepository interface using PostgreSQL.
type JobRepoImpl struct {
	db *pgxpool.Pool
}

// NewJobRepo creates a new instance of JobRepoImpl.
func NewJobRepo(db *pgxpool.Pool) *JobRepoImpl {
	return &JobRepoImpl{db: db}
}

// Save creates or updates a job record.
func (r *JobRepoImpl) Save(ctx context.Context, job *entity.MirrorJob) error {
	statsJSON, err := json.Marshal(job.Stats)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mirror_jobs (id, seed_url, depth, convert_links, status, stats, fail_reason, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			stats = EXCLUDED.stats,
			fail_reason = EXCLUDED.fail_reason,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at;
	`
	_, err = r.db.Exec(ctx, query,
		job.ID,
		job.SeedURL,
		job.Depth,
		job.ConvertLinks,
		string(job.Status),
		statsJSON,
		job.FailReason,
		job.CreatedAt,
		job.StartedAt,
		job.FinishedAt,
	)
	return err
}

// FindByID retrieves a job, returning repository.ErrJobNotFound when it does not exist.
func (r *JobRepoImpl) FindByID(ctx context.Context, id string) (*entity.MirrorJob, error) {
	query := `
		SELECT id, seed_url, depth, convert_links, status, stats, fail_reason, created_at, started_at, finished_at
		FROM mirror_jobs
		WHERE id = $1;
	`
	var (
		job       entity.MirrorJob
		status    string
		statsJSON []byte
	)
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.SeedURL,
		&job.Depth,
		&job.ConvertLinks,
		&status,
		&statsJSON,
		&job.FailReason,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	job.Status = entity.JobStatus(status)

	if err := json.Unmarshal(statsJSON, &job.Stats); err != nil {
		return nil, err
	}
	return &job, nil
}
