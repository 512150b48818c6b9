package repository

import (
	"context"
	"errors"

	"github.com/user/site-mirror/internal/entity"
)

var ErrJobNotFound = errors.New("job not found")

// JobRepository stores background mirror jobs.
type JobRepository interface {
	// Save creates or updates a job.
	Save(ctx context.Context, job *entity.MirrorJob) error
	// FindByID returns ErrJobNotFound when no job has the given id.
	FindByID(ctx context.Context, id string) (*entity.MirrorJob, error)
}
