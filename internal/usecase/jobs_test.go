package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/site-mirror/internal/adapter/memory"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

type stubMirror struct {
	release chan struct{}
	err     error

	mu   sync.Mutex
	reqs []entity.MirrorRequest
}

func (s *stubMirror) Run(_ context.Context, runID string, req entity.MirrorRequest) (*MirrorResult, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.release != nil {
		<-s.release
	}
	return &MirrorResult{Stats: entity.MirrorStats{PagesFetched: 2}}, s.err
}

func newTestJobManager(mirror Mirror, maxJobs int) (JobManager, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewJobManager(context.Background(), mirror, memory.NewJobs(), memory.NewManifest(), "/srv/mirrors", maxJobs, m, zap.NewNop()), m
}

func TestJobManager_Completes(t *testing.T) {
	mirror := &stubMirror{}
	jm, m := newTestJobManager(mirror, 2)

	id, err := jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.com/", Depth: 1})
	require.NoError(t, err)
	require.Len(t, id, 16)
	jm.Wait()

	job, err := jm.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobCompleted, job.Status)
	assert.Equal(t, 2, job.Stats.PagesFetched)
	assert.NotNil(t, job.StartedAt)
	assert.NotNil(t, job.FinishedAt)
	assert.Empty(t, job.FailReason)

	require.Len(t, mirror.reqs, 1)
	assert.Equal(t, filepath.Join("/srv/mirrors", id), mirror.reqs[0].OutputDir)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues(string(entity.JobCompleted))))
}

func TestJobManager_Failed(t *testing.T) {
	jm, _ := newTestJobManager(&stubMirror{err: errors.New("fetch http://example.com/: refused")}, 1)

	id, err := jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.com/"})
	require.NoError(t, err)
	jm.Wait()

	job, err := jm.GetStatus(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.JobFailed, job.Status)
	assert.Contains(t, job.FailReason, "refused")
}

func TestJobManager_QueueFull(t *testing.T) {
	mirror := &stubMirror{release: make(chan struct{})}
	jm, m := newTestJobManager(mirror, 1)

	_, err := jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.com/"})
	require.NoError(t, err)

	_, err = jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.org/"})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsTotal.WithLabelValues("rejected")))

	close(mirror.release)
	jm.Wait()

	_, err = jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.org/"})
	assert.NoError(t, err)
	jm.Wait()
}

func TestJobManager_InvalidRequest(t *testing.T) {
	jm, _ := newTestJobManager(&stubMirror{}, 1)

	_, err := jm.Submit(context.Background(), entity.MirrorRequest{})
	assert.ErrorIs(t, err, ErrMissingSeed)

	_, err = jm.Submit(context.Background(), entity.MirrorRequest{SeedURL: "http://example.com/", Depth: -1})
	assert.Error(t, err)
}

func TestJobManager_UnknownJob(t *testing.T) {
	jm, _ := newTestJobManager(&stubMirror{}, 1)

	_, err := jm.GetStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)

	_, err = jm.Manifest(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrJobNotFound)
}
