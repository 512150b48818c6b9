package memory

import (
	"context"
	"sync"

	"github.com/user/site-mirror/internal/entity"
)

type ManifestImpl struct {
	mu    sync.Mutex
	byJob map[string][]entity.ManifestEntry
}

func NewManifest() *ManifestImpl {
	return &ManifestImpl{byJob: make(map[string][]entity.ManifestEntry)}
}

func (m *ManifestImpl) Save(_ context.Context, entries []entity.ManifestEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		rows := m.byJob[e.JobID]
		replaced := false
		for i := range rows {
			if rows[i].URL == e.URL {
				rows[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			rows = append(rows, e)
		}
		m.byJob[e.JobID] = rows
	}
	return nil
}

func (m *ManifestImpl) FindByJob(_ context.Context, jobID string) ([]entity.ManifestEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.byJob[jobID]
	out := make([]entity.ManifestEntry, len(rows))
	copy(out, rows)
	return out, nil
}
