package repository

import (
	"context"

	"github.com/user/site-mirror/internal/entity"
)

// ManifestRepository stores the per-run record of mirrored references.
type ManifestRepository interface {
	// Save stores entries for a job. Entries for an existing (job, url) pair are replaced.
	Save(ctx context.Context, entries []entity.ManifestEntry) error
	// FindByJob returns the entries recorded for jobID in insertion order.
	FindByJob(ctx context.Context, jobID string) ([]entity.ManifestEntry, error)
}
