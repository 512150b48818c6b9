package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/site-mirror/internal/adapter/memory"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/resolver"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

var errConnRefused = errors.New("connection refused")

// stubTransport serves a fixed site and counts requests per URL.
type stubTransport struct {
	mu    sync.Mutex
	pages map[string]entity.FetchResponse
	fail  map[string]bool
	bad   map[string]bool
	gets  map[string]int
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		pages: make(map[string]entity.FetchResponse),
		fail:  make(map[string]bool),
		bad:   make(map[string]bool),
		gets:  make(map[string]int),
	}
}

func (s *stubTransport) add(url, contentType, body string) {
	s.pages[url] = entity.FetchResponse{URL: url, StatusCode: 200, ContentType: contentType, Body: []byte(body)}
}

func (s *stubTransport) Get(_ context.Context, url string) (*entity.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets[url]++
	if s.fail[url] {
		return nil, errConnRefused
	}
	if s.bad[url] {
		return nil, fmt.Errorf("%w: parse %q", repository.ErrInvalidURL, url)
	}
	resp, ok := s.pages[url]
	if !ok {
		return &entity.FetchResponse{URL: url, StatusCode: 404, ContentType: "text/plain", Body: []byte("not found")}, nil
	}
	return &resp, nil
}

func (s *stubTransport) fetched() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var urls []string
	for u := range s.gets {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// exampleSite is a small same-domain site with one image and one
// extensionless HTML page.
func exampleSite() *stubTransport {
	s := newStubTransport()
	s.add("http://example.com/", "text/html; charset=utf-8", `<html><body>
<a href="/a.html">A</a>
<a href="/b">B</a>
<img src="/logo.png">
<a href="mailto:me@example.com">Mail</a>
<a href="https://other.com/x">Other</a>
</body></html>`)
	s.add("http://example.com/a.html", "text/html", `<a href="/">Home</a><a href="/b">B</a><img src="/logo.png">`)
	s.add("http://example.com/b", "text/html", `<a href="/c.html">C</a>`)
	s.add("http://example.com/c.html", "text/html", `<p>leaf</p>`)
	s.add("http://example.com/logo.png", "image/png", "\x89PNG")
	return s
}

func newTestFetcher(t *testing.T, transport *stubTransport) (*Fetcher, *memory.RegistryImpl, *entity.MirrorStats, *metrics.Metrics) {
	t.Helper()
	registry := memory.NewRegistry()
	stats := &entity.MirrorStats{}
	m := metrics.New(prometheus.NewRegistry())
	return NewFetcher(transport, registry, stats, m, zap.NewNop()), registry, stats, m
}

func resolveSeed(t *testing.T, root, raw string) *entity.ResolvedReference {
	t.Helper()
	ref, err := resolver.Resolve(raw, nil, root)
	require.NoError(t, err)
	return ref
}

func TestFetch_WritesHTMLWithSuffix(t *testing.T) {
	root := t.TempDir()
	f, registry, _, m := newTestFetcher(t, exampleSite())
	ref := resolveSeed(t, root, "http://example.com/b")

	content, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Contains(t, content, `href="/c.html"`)
	assert.Equal(t, filepath.Join(root, "example.com", "b.html"), ref.LocalPath)
	assert.Equal(t, "b.html", ref.LocalFilename)
	assert.FileExists(t, ref.LocalPath)

	stored, err := registry.Lookup(context.Background(), "http://example.com/b")
	require.NoError(t, err)
	assert.Equal(t, ref.LocalPath, stored.LocalPath)

	state, ok := f.Outcome("http://example.com/b")
	require.True(t, ok)
	assert.Equal(t, entity.ManifestFetched, state)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.ResultFetched)))
}

func TestFetch_MediaReturnsEmptyContent(t *testing.T) {
	root := t.TempDir()
	f, _, _, _ := newTestFetcher(t, exampleSite())
	ref := resolveSeed(t, root, "http://example.com/logo.png")

	content, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, content)
	assert.Equal(t, filepath.Join(root, "example.com", "logo.png"), ref.LocalPath)

	data, err := os.ReadFile(ref.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data))
}

func TestFetch_AtMostOnce(t *testing.T) {
	root := t.TempDir()
	transport := exampleSite()
	f, _, stats, m := newTestFetcher(t, transport)

	first := resolveSeed(t, root, "http://example.com/a.html")
	second := resolveSeed(t, root, "http://example.com/a.html")

	_, ok, err := f.Fetch(context.Background(), first)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = f.Fetch(context.Background(), second)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, 1, transport.gets["http://example.com/a.html"])
	assert.Equal(t, 1, stats.DuplicatesSkipped)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.ResultDuplicate)))
}

func TestFetch_WriteFailureIsNotRetried(t *testing.T) {
	root := t.TempDir()
	// A plain file where the domain directory should go.
	require.NoError(t, os.WriteFile(filepath.Join(root, "example.com"), []byte("x"), 0o644))

	transport := exampleSite()
	f, registry, stats, _ := newTestFetcher(t, transport)
	ref := resolveSeed(t, root, "http://example.com/logo.png")

	_, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, stats.WriteFailures)

	state, _ := f.Outcome(ref.ResolvedURL)
	assert.Equal(t, entity.ManifestWriteFailed, state)

	stored, err := registry.Lookup(context.Background(), ref.ResolvedURL)
	require.NoError(t, err)
	assert.NotNil(t, stored)

	_, ok, err = f.Fetch(context.Background(), resolveSeed(t, root, "http://example.com/logo.png"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, transport.gets[ref.ResolvedURL])
}

func TestFetch_TransportError(t *testing.T) {
	transport := exampleSite()
	transport.fail["http://example.com/a.html"] = true
	f, _, _, _ := newTestFetcher(t, transport)
	ref := resolveSeed(t, t.TempDir(), "http://example.com/a.html")

	_, ok, err := f.Fetch(context.Background(), ref)
	require.Error(t, err)
	assert.False(t, ok)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "http://example.com/a.html", te.URL)
	assert.ErrorIs(t, err, errConnRefused)

	state, _ := f.Outcome(ref.ResolvedURL)
	assert.Equal(t, entity.ManifestFetchFailed, state)
}

func TestFetch_InvalidURLIsSkipped(t *testing.T) {
	transport := exampleSite()
	transport.bad["http://example.com/exa mple"] = true
	f, _, stats, m := newTestFetcher(t, transport)
	ref := resolveSeed(t, t.TempDir(), "http://example.com/exa mple")

	_, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, ref.LocalPath)
	assert.Equal(t, 0, stats.WriteFailures)

	state, _ := f.Outcome(ref.ResolvedURL)
	assert.Equal(t, entity.ManifestFetchFailed, state)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchesTotal.WithLabelValues(metrics.ResultInvalidURL)))
}

func TestFetch_ErrorStatusIsStillMirrored(t *testing.T) {
	f, _, _, _ := newTestFetcher(t, exampleSite())
	ref := resolveSeed(t, t.TempDir(), "http://example.com/missing.txt")

	_, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.FileExists(t, ref.LocalPath)
}

func TestFetch_DecodesCharset(t *testing.T) {
	transport := newStubTransport()
	transport.add("http://example.com/latin.html", "text/html; charset=iso-8859-1", "<p>caf\xe9</p>")
	f, _, _, _ := newTestFetcher(t, transport)
	ref := resolveSeed(t, t.TempDir(), "http://example.com/latin.html")

	content, ok, err := f.Fetch(context.Background(), ref)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<p>café</p>", content)
}
