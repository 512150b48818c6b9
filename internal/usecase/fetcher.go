package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// TransportError reports that no response was received for URL. It aborts the run.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Fetcher downloads references into the mirror, at most once per URL.
type Fetcher struct {
	transport repository.Transport
	registry  repository.VisitedRegistry
	stats     *entity.MirrorStats
	metrics   *metrics.Metrics
	logger    *zap.Logger
	outcomes  map[string]entity.ManifestState
}

func NewFetcher(
	transport repository.Transport,
	registry repository.VisitedRegistry,
	stats *entity.MirrorStats,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Fetcher {
	return &Fetcher{
		transport: transport,
		registry:  registry,
		stats:     stats,
		metrics:   m,
		logger:    logger,
		outcomes:  make(map[string]entity.ManifestState),
	}
}

// Fetch downloads ref and writes it to ref.LocalPath. It returns ok=false
// without an error when the URL was already registered, no request could be
// built for it, or the file could not be written; the registration stands either way and is never retried. For
// HTML responses the decoded text is returned, for anything else "".
func (f *Fetcher) Fetch(ctx context.Context, ref *entity.ResolvedReference) (string, bool, error) {
	isNew, err := f.registry.Register(ctx, ref)
	if err != nil {
		return "", false, err
	}
	if !isNew {
		f.stats.DuplicatesSkipped++
		f.metrics.IncFetch(metrics.ResultDuplicate)
		f.logger.Debug("already mirrored", zap.String("url", ref.ResolvedURL))
		return "", false, nil
	}

	f.logger.Info("fetching", zap.String("url", ref.ResolvedURL))
	resp, err := f.transport.Get(ctx, ref.ResolvedURL)
	if errors.Is(err, repository.ErrInvalidURL) {
		f.outcomes[ref.ResolvedURL] = entity.ManifestFetchFailed
		f.metrics.IncFetch(metrics.ResultInvalidURL)
		f.logger.Warn("skipping unfetchable URL", zap.String("url", ref.ResolvedURL), zap.Error(err))
		return "", false, nil
	}
	if err != nil {
		f.outcomes[ref.ResolvedURL] = entity.ManifestFetchFailed
		f.metrics.IncFetch(metrics.ResultTransport)
		return "", false, &TransportError{URL: ref.ResolvedURL, Err: err}
	}
	if resp.StatusCode >= 400 {
		f.logger.Warn("server returned an error page",
			zap.String("url", ref.ResolvedURL),
			zap.Int("status", resp.StatusCode),
		)
	}

	ref.ContentType = resp.ContentType
	if ref.IsHTML() && !strings.HasSuffix(ref.LocalPath, ".html") {
		ref.LocalPath += ".html"
		ref.LocalFilename += ".html"
	}
	if err := f.registry.Update(ctx, ref); err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(ref.LocalDir, 0o755); err != nil {
		f.writeFailed(ref, err)
		return "", false, nil
	}
	if err := os.WriteFile(ref.LocalPath, resp.Body, 0o644); err != nil {
		f.writeFailed(ref, err)
		return "", false, nil
	}

	f.outcomes[ref.ResolvedURL] = entity.ManifestFetched
	f.metrics.IncFetch(metrics.ResultFetched)
	f.metrics.AddBytes(len(resp.Body))
	f.logger.Debug("saved",
		zap.String("url", ref.ResolvedURL),
		zap.String("path", ref.LocalPath),
		zap.String("content_type", ref.ContentType),
		zap.Int("bytes", len(resp.Body)),
	)

	if !ref.IsHTML() {
		return "", true, nil
	}
	return decodeHTML(resp.Body, resp.ContentType, f.logger), true, nil
}

// Outcome returns the manifest state recorded for url, if a fetch was attempted.
func (f *Fetcher) Outcome(url string) (entity.ManifestState, bool) {
	s, ok := f.outcomes[url]
	return s, ok
}

func (f *Fetcher) writeFailed(ref *entity.ResolvedReference, err error) {
	f.outcomes[ref.ResolvedURL] = entity.ManifestWriteFailed
	f.stats.WriteFailures++
	f.metrics.IncFetch(metrics.ResultWriteFailed)
	f.logger.Warn("could not write mirror file",
		zap.String("url", ref.ResolvedURL),
		zap.String("path", ref.LocalPath),
		zap.Error(err),
	)
}

// decodeHTML converts body to UTF-8 using the charset from the content type
// or the document's meta tags.
func decodeHTML(body []byte, contentType string, logger *zap.Logger) string {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		logger.Debug("unknown charset, using raw bytes", zap.String("content_type", contentType), zap.Error(err))
		return string(body)
	}
	text, err := io.ReadAll(r)
	if err != nil {
		return string(body)
	}
	return string(text)
}
