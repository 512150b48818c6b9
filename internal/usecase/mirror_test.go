package usecase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/site-mirror/internal/adapter/httptransport"
	"github.com/user/site-mirror/internal/adapter/memory"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/extractor"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

func newTestMirror(transport *stubTransport, manifests repository.ManifestRepository) Mirror {
	return NewMirrorUseCase(
		transport,
		memory.NewRunState,
		manifests,
		extractor.RegexScanner{},
		SiblingsRevisit,
		metrics.New(prometheus.NewRegistry()),
		zap.NewNop(),
	)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestMirrorRun_ConvertLinks(t *testing.T) {
	root := t.TempDir()
	manifests := memory.NewManifest()
	uc := newTestMirror(exampleSite(), manifests)

	result, err := uc.Run(context.Background(), "run-1", entity.MirrorRequest{
		SeedURL:      "http://example.com/",
		OutputDir:    root,
		Depth:        1,
		ConvertLinks: true,
	})
	require.NoError(t, err)

	site := filepath.Join(root, "example.com")
	index := readFile(t, filepath.Join(site, "index.html"))
	assert.Contains(t, index, `<a href="a.html">A</a>`)
	assert.Contains(t, index, `<a href="b.html">B</a>`)
	assert.Contains(t, index, `<img src="logo.png">`)
	assert.Contains(t, index, `<a href="mailto:me@example.com">Mail</a>`)
	assert.Contains(t, index, `<a href="https://other.com/x">Other</a>`)

	a := readFile(t, filepath.Join(site, "a.html"))
	assert.Equal(t, `<a href="index.html">Home</a><a href="b.html">B</a><img src="logo.png">`, a)

	// c.html was never fetched, so its link stays absolute.
	b := readFile(t, filepath.Join(site, "b.html"))
	assert.Equal(t, `<a href="/c.html">C</a>`, b)

	assert.Equal(t, 3, result.Stats.PagesFetched)
	assert.Equal(t, 1, result.Stats.MediaFetched)
	assert.Equal(t, 3, result.Stats.FilesRewritten)
	assert.Equal(t, 7, result.Stats.LedgerEntries)
	assert.Equal(t, 1, result.Stats.ResolutionFailures)

	require.Len(t, result.Manifest, 4)
	for _, e := range result.Manifest {
		assert.Equal(t, entity.ManifestFetched, e.State)
		assert.Equal(t, "run-1", e.JobID)
	}
	saved, err := manifests.FindByJob(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, result.Manifest, saved)
}

func TestMirrorRun_SeedWithoutScheme(t *testing.T) {
	root := t.TempDir()
	transport := newStubTransport()
	transport.add("http://example.com", "text/html", "<p>home</p>")

	result, err := newTestMirror(transport, nil).Run(context.Background(), "run-2", entity.MirrorRequest{
		SeedURL:   "example.com",
		OutputDir: root,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", result.Seed.ResolvedURL)
	assert.FileExists(t, filepath.Join(root, "example.com", "index.html"))
}

func TestMirrorRun_MissingSeed(t *testing.T) {
	_, err := newTestMirror(exampleSite(), nil).Run(context.Background(), "run-3", entity.MirrorRequest{})
	assert.ErrorIs(t, err, ErrMissingSeed)
}

func TestMirrorRun_TransportFailureKeepsPartialResult(t *testing.T) {
	root := t.TempDir()
	transport := exampleSite()
	transport.fail["http://example.com/b"] = true

	result, err := newTestMirror(transport, nil).Run(context.Background(), "run-4", entity.MirrorRequest{
		SeedURL:      "http://example.com/",
		OutputDir:    root,
		Depth:        1,
		ConvertLinks: true,
	})

	var te *TransportError
	require.ErrorAs(t, err, &te)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.Stats.FilesRewritten)

	states := make(map[string]entity.ManifestState)
	for _, e := range result.Manifest {
		states[e.URL] = e.State
	}
	assert.Equal(t, entity.ManifestFetched, states["http://example.com/"])
	assert.Equal(t, entity.ManifestFetchFailed, states["http://example.com/b"])

	// Links are left untouched when the run aborts.
	assert.Contains(t, readFile(t, filepath.Join(root, "example.com", "index.html")), `<a href="/a.html">A</a>`)
}

func TestMirrorRun_MalformedReferencesDoNotAbort(t *testing.T) {
	pages := map[string][2]string{
		"/":           {"text/html", `<img src="/50%off.png"><a href="/100%.html">Sale</a><a href="/b.html">B</a>`},
		"/50%off.png": {"image/png", "png"},
		"/100%.html":  {"text/html", "<p>sale</p>"},
		"/b.html":     {"text/html", "<p>b</p>"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", page[0])
		_, _ = w.Write([]byte(page[1]))
	}))
	defer srv.Close()

	root := t.TempDir()
	uc := NewMirrorUseCase(
		httptransport.New(5*time.Second, ""),
		memory.NewRunState,
		nil,
		extractor.RegexScanner{},
		SiblingsOnce,
		nil,
		zap.NewNop(),
	)
	result, err := uc.Run(context.Background(), "run-5", entity.MirrorRequest{
		SeedURL:   srv.URL + "/",
		OutputDir: root,
		Depth:     1,
	})
	require.NoError(t, err)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	site := filepath.Join(root, u.Host)
	assert.Equal(t, "png", readFile(t, filepath.Join(site, "50off.png")))
	assert.Equal(t, "<p>sale</p>", readFile(t, filepath.Join(site, "100.html")))
	assert.Equal(t, "<p>b</p>", readFile(t, filepath.Join(site, "b.html")))

	assert.Equal(t, 3, result.Stats.PagesFetched)
	for _, e := range result.Manifest {
		assert.Equal(t, entity.ManifestFetched, e.State, e.URL)
	}
}
