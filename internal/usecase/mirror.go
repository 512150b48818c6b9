package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/extractor"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/resolver"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

var ErrMissingSeed = errors.New("no seed URL given")

// StateFactory creates the registry and ledger for one run.
type StateFactory func(runID string) (repository.VisitedRegistry, repository.ReplacementLedger)

// MirrorResult is what a run leaves behind besides the files on disk.
type MirrorResult struct {
	Seed     *entity.ResolvedReference
	Stats    entity.MirrorStats
	Manifest []entity.ManifestEntry
}

// Mirror defines the interface for a complete mirror run.
type Mirror interface {
	Run(ctx context.Context, runID string, req entity.MirrorRequest) (*MirrorResult, error)
}

type mirrorUseCase struct {
	transport repository.Transport
	newState  StateFactory
	manifests repository.ManifestRepository
	scanner   extractor.Scanner
	policy    SiblingPolicy
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewMirrorUseCase creates a new instance of the mirror use case. manifests
// may be nil, in which case the manifest is only returned.
func NewMirrorUseCase(
	transport repository.Transport,
	newState StateFactory,
	manifests repository.ManifestRepository,
	scanner extractor.Scanner,
	policy SiblingPolicy,
	m *metrics.Metrics,
	logger *zap.Logger,
) Mirror {
	return &mirrorUseCase{
		transport: transport,
		newState:  newState,
		manifests: manifests,
		scanner:   scanner,
		policy:    policy,
		metrics:   m,
		logger:    logger,
	}
}

// Run crawls req.SeedURL into req.OutputDir and optionally converts links.
// On a transport failure the partial result is returned with the error and
// no rewriting takes place.
func (uc *mirrorUseCase) Run(ctx context.Context, runID string, req entity.MirrorRequest) (*MirrorResult, error) {
	if req.SeedURL == "" {
		return nil, ErrMissingSeed
	}
	if req.Depth < 0 {
		return nil, fmt.Errorf("depth must not be negative, got %d", req.Depth)
	}

	res := resolver.New(req.OutputDir, uc.logger)
	seed, err := res.Resolve(req.SeedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid seed %q: %w", req.SeedURL, err)
	}

	registry, ledger := uc.newState(runID)
	result := &MirrorResult{Seed: seed}
	stats := &result.Stats

	fetcher := NewFetcher(uc.transport, registry, stats, uc.metrics, uc.logger)
	ext := extractor.New(uc.scanner, res, ledger, uc.metrics, uc.logger)
	crawler := NewCrawler(fetcher, ext, uc.policy, stats, uc.logger)

	uc.logger.Info("mirror started",
		zap.String("run_id", runID),
		zap.String("seed", seed.ResolvedURL),
		zap.Int("depth", req.Depth),
		zap.String("output", res.OutputRoot()),
	)

	crawlErr := crawler.Crawl(ctx, seed, req.Depth)
	stats.ResolutionFailures = ext.ResolutionFailures()
	if n, err := ledger.Len(ctx); err == nil {
		stats.LedgerEntries = n
	}

	if crawlErr == nil && req.ConvertLinks {
		n, err := NewRewriter(uc.metrics, uc.logger).Rewrite(ctx, registry, ledger)
		stats.FilesRewritten = n
		if err != nil {
			crawlErr = fmt.Errorf("convert links: %w", err)
		}
	}

	// The manifest is recorded even for aborted runs.
	manifest, err := uc.buildManifest(context.WithoutCancel(ctx), runID, registry, fetcher)
	if err != nil {
		uc.logger.Error("could not build manifest", zap.String("run_id", runID), zap.Error(err))
	}
	result.Manifest = manifest
	if uc.manifests != nil && len(manifest) > 0 {
		if err := uc.manifests.Save(context.WithoutCancel(ctx), manifest); err != nil {
			uc.logger.Error("could not save manifest", zap.String("run_id", runID), zap.Error(err))
		}
	}

	if crawlErr != nil {
		return result, crawlErr
	}
	uc.logger.Info("mirror finished",
		zap.String("run_id", runID),
		zap.Int("pages", stats.PagesFetched),
		zap.Int("media", stats.MediaFetched),
		zap.Int("duplicates", stats.DuplicatesSkipped),
		zap.Int("write_failures", stats.WriteFailures),
		zap.Int("rewritten", stats.FilesRewritten),
	)
	return result, nil
}

func (uc *mirrorUseCase) buildManifest(ctx context.Context, runID string, registry repository.VisitedRegistry, f *Fetcher) ([]entity.ManifestEntry, error) {
	refs, err := registry.All(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	entries := make([]entity.ManifestEntry, 0, len(refs))
	for _, ref := range refs {
		state, ok := f.Outcome(ref.ResolvedURL)
		if !ok {
			continue
		}
		entries = append(entries, entity.ManifestEntry{
			JobID:       runID,
			URL:         ref.ResolvedURL,
			LocalPath:   ref.LocalPath,
			ContentType: ref.ContentType,
			State:       state,
			RecordedAt:  now,
		})
	}
	return entries, nil
}
