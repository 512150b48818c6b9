package response

import (
	"time"

	"github.com/user/site-mirror/internal/entity"
)

type SubmitMirrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	JobID   string `json:"job_id"`
}

// JobResponse is the API view of entity.MirrorJob.
type JobResponse struct {
	ID           string             `json:"id"`
	SeedURL      string             `json:"url"`
	Depth        int                `json:"depth"`
	ConvertLinks bool               `json:"convert_links"`
	Status       string             `json:"status"` // "pending", "running", "completed", "failed"
	Stats        entity.MirrorStats `json:"stats"`
	FailReason   string             `json:"fail_reason,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
}

func NewJobResponse(job *entity.MirrorJob) JobResponse {
	return JobResponse{
		ID:           job.ID,
		SeedURL:      job.SeedURL,
		Depth:        job.Depth,
		ConvertLinks: job.ConvertLinks,
		Status:       string(job.Status),
		Stats:        job.Stats,
		FailReason:   job.FailReason,
		CreatedAt:    job.CreatedAt,
		StartedAt:    job.StartedAt,
		FinishedAt:   job.FinishedAt,
	}
}

type ManifestResponse struct {
	JobID   string                 `json:"job_id"`
	Entries []entity.ManifestEntry `json:"entries"`
}
