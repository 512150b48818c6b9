package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/pkg/metrics"
	"github.com/user/site-mirror/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrQueueFull = errors.New("too many mirror jobs are running")

// JobManager defines the interface for submitting and checking mirror jobs.
type JobManager interface {
	Submit(ctx context.Context, req entity.MirrorRequest) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.MirrorJob, error)
	Manifest(ctx context.Context, id string) ([]entity.ManifestEntry, error)
	Wait()
}

type jobManager struct {
	mirror     Mirror
	jobs       repository.JobRepository
	manifests  repository.ManifestRepository
	outputRoot string
	slots      *semaphore.Weighted
	wg         sync.WaitGroup
	baseCtx    context.Context
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewJobManager creates a JobManager running at most maxJobs mirrors at
// once. Every job writes below outputRoot/<job id>. Jobs are cancelled when
// ctx is.
func NewJobManager(
	ctx context.Context,
	mirror Mirror,
	jobs repository.JobRepository,
	manifests repository.ManifestRepository,
	outputRoot string,
	maxJobs int,
	m *metrics.Metrics,
	logger *zap.Logger,
) JobManager {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	return &jobManager{
		mirror:     mirror,
		jobs:       jobs,
		manifests:  manifests,
		outputRoot: outputRoot,
		slots:      semaphore.NewWeighted(int64(maxJobs)),
		baseCtx:    ctx,
		metrics:    m,
		logger:     logger,
	}
}

// Submit records a pending job and starts it in the background. It returns
// ErrQueueFull without recording anything when all slots are taken.
func (uc *jobManager) Submit(ctx context.Context, req entity.MirrorRequest) (string, error) {
	if req.SeedURL == "" {
		return "", ErrMissingSeed
	}
	if req.Depth < 0 {
		return "", fmt.Errorf("depth must not be negative, got %d", req.Depth)
	}
	if !uc.slots.TryAcquire(1) {
		uc.metrics.IncJob("rejected")
		return "", ErrQueueFull
	}

	now := time.Now().UTC()
	id := utils.HashURL(req.SeedURL + "|" + strconv.FormatInt(now.UnixNano(), 10))[:16]
	job := &entity.MirrorJob{
		ID:           id,
		SeedURL:      req.SeedURL,
		Depth:        req.Depth,
		ConvertLinks: req.ConvertLinks,
		Status:       entity.JobPending,
		CreatedAt:    now,
	}
	if err := uc.jobs.Save(ctx, job); err != nil {
		uc.slots.Release(1)
		return "", fmt.Errorf("failed to save job %s: %w", id, err)
	}
	uc.metrics.IncJob(string(entity.JobPending))

	req.OutputDir = filepath.Join(uc.outputRoot, id)
	uc.wg.Add(1)
	go func() {
		defer uc.wg.Done()
		defer uc.slots.Release(1)
		uc.run(job, req)
	}()
	return id, nil
}

func (uc *jobManager) run(job *entity.MirrorJob, req entity.MirrorRequest) {
	ctx := uc.baseCtx
	// Status updates must land even after shutdown cancelled the run.
	saveCtx := context.WithoutCancel(ctx)

	started := time.Now().UTC()
	job.Status = entity.JobRunning
	job.StartedAt = &started
	if err := uc.jobs.Save(saveCtx, job); err != nil {
		uc.logger.Error("failed to mark job running", zap.String("job_id", job.ID), zap.Error(err))
	}
	uc.metrics.IncJob(string(entity.JobRunning))

	result, err := uc.mirror.Run(ctx, job.ID, req)
	finished := time.Now().UTC()
	job.FinishedAt = &finished
	if result != nil {
		job.Stats = result.Stats
	}
	if err != nil {
		job.Status = entity.JobFailed
		job.FailReason = err.Error()
		uc.logger.Warn("mirror job failed", zap.String("job_id", job.ID), zap.Error(err))
	} else {
		job.Status = entity.JobCompleted
		uc.logger.Info("mirror job completed", zap.String("job_id", job.ID), zap.String("seed", job.SeedURL))
	}
	uc.metrics.IncJob(string(job.Status))

	if err := uc.jobs.Save(saveCtx, job); err != nil {
		uc.logger.Error("failed to save finished job", zap.String("job_id", job.ID), zap.Error(err))
	}
}

func (uc *jobManager) GetStatus(ctx context.Context, id string) (*entity.MirrorJob, error) {
	return uc.jobs.FindByID(ctx, id)
}

// Manifest returns the recorded manifest of a known job.
func (uc *jobManager) Manifest(ctx context.Context, id string) ([]entity.ManifestEntry, error) {
	if _, err := uc.jobs.FindByID(ctx, id); err != nil {
		return nil, err
	}
	if uc.manifests == nil {
		return nil, nil
	}
	return uc.manifests.FindByJob(ctx, id)
}

// Wait blocks until every submitted job has finished.
func (uc *jobManager) Wait() {
	uc.wg.Wait()
}
