package memory

import (
	"context"
	"sync"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
)

type JobImpl struct {
	mu   sync.RWMutex
	jobs map[string]entity.MirrorJob
}

func NewJobs() *JobImpl {
	return &JobImpl{jobs: make(map[string]entity.MirrorJob)}
}

func (j *JobImpl) Save(_ context.Context, job *entity.MirrorJob) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jobs[job.ID] = *job
	return nil
}

func (j *JobImpl) FindByID(_ context.Context, id string) (*entity.MirrorJob, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	job, ok := j.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return &job, nil
}
