package entity

import "time"

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// MirrorRequest describes one mirror run.
type MirrorRequest struct {
	SeedURL      string
	OutputDir    string
	Depth        int
	ConvertLinks bool
}

// MirrorStats holds the counters collected during a single run.
type MirrorStats struct {
	PagesFetched       int `json:"pages_fetched"`
	MediaFetched       int `json:"media_fetched"`
	DuplicatesSkipped  int `json:"duplicates_skipped"`
	WriteFailures      int `json:"write_failures"`
	ResolutionFailures int `json:"resolution_failures"`
	LedgerEntries      int `json:"ledger_entries"`
	FilesRewritten     int `json:"files_rewritten"`
}

// MirrorJob mirrors the `mirror_jobs` PostgreSQL table schema.
type MirrorJob struct {
	ID           string
	SeedURL      string
	Depth        int
	ConvertLinks bool
	Status       JobStatus
	Stats        MirrorStats
	FailReason   string
	CreatedAt    time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}
