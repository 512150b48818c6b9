package entity

import "time"

type ManifestState string

const (
	ManifestFetched     ManifestState = "fetched"
	ManifestWriteFailed ManifestState = "write_failed"
	ManifestFetchFailed ManifestState = "fetch_failed"
)

// ManifestEntry mirrors the `mirror_manifest` PostgreSQL table schema.
type ManifestEntry struct {
	ID          int64         `json:"-"`
	JobID       string        `json:"job_id"`
	URL         string        `json:"url"`
	LocalPath   string        `json:"local_path"`
	ContentType string        `json:"content_type,omitempty"`
	State       ManifestState `json:"state"`
	RecordedAt  time.Time     `json:"recorded_at"`
}
