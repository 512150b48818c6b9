package usecase

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

// Rewriter converts the recorded references in mirrored HTML into paths
// relative to each page, for offline browsing.
type Rewriter struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewRewriter(m *metrics.Metrics, logger *zap.Logger) *Rewriter {
	return &Rewriter{metrics: m, logger: logger}
}

// Rewrite applies every ledger entry, in ledger order, to every registered
// HTML page. Each entry replaces only the first occurrence of its matched
// text, so repeated identical tags need one entry per occurrence. Entries
// whose target or page is missing on disk are skipped. It returns the number
// of files written back.
func (w *Rewriter) Rewrite(ctx context.Context, registry repository.VisitedRegistry, ledger repository.ReplacementLedger) (int, error) {
	refs, err := registry.All(ctx)
	if err != nil {
		return 0, err
	}
	entries, err := ledger.Entries(ctx)
	if err != nil {
		return 0, err
	}

	// The registered instance carries the final local path (.html suffix).
	targets := make(map[string]*entity.ResolvedReference)
	registered := func(ref *entity.ResolvedReference) (*entity.ResolvedReference, error) {
		if r, ok := targets[ref.ResolvedURL]; ok {
			return r, nil
		}
		r, err := registry.Lookup(ctx, ref.ResolvedURL)
		if err != nil {
			return nil, err
		}
		if r == nil {
			r = ref
		}
		targets[ref.ResolvedURL] = r
		return r, nil
	}

	rewritten := 0
	for _, page := range refs {
		if err := ctx.Err(); err != nil {
			return rewritten, err
		}
		if !page.IsHTML() {
			continue
		}
		content, err := os.ReadFile(page.LocalPath)
		if err != nil {
			w.logger.Warn("skipping rewrite, page not readable", zap.String("path", page.LocalPath), zap.Error(err))
			continue
		}

		text := string(content)
		for _, e := range entries {
			target, err := registered(e.Target)
			if err != nil {
				return rewritten, err
			}
			if !exists(target.LocalPath) || !exists(page.LocalPath) {
				continue
			}
			rel, err := Relativize(target.LocalPath, page.LocalPath)
			if err != nil {
				continue
			}
			replacement := strings.Replace(e.MatchedText, e.Target.Raw, rel, 1)
			text = strings.Replace(text, e.MatchedText, replacement, 1)
		}

		if err := os.WriteFile(page.LocalPath, []byte(text), 0o644); err != nil {
			w.logger.Warn("could not write rewritten page", zap.String("path", page.LocalPath), zap.Error(err))
			continue
		}
		rewritten++
		w.metrics.IncRewritten()
		w.logger.Debug("rewrote links", zap.String("path", page.LocalPath))
	}
	return rewritten, nil
}

// Relativize returns path expressed relative to related. When related is not
// a directory its containing directory is used, so two files in the same
// directory relativize to the bare file name.
func Relativize(path, related string) (string, error) {
	p, err := canonical(path)
	if err != nil {
		return "", err
	}
	r, err := canonical(related)
	if err != nil {
		return "", err
	}
	if fi, err := os.Stat(r); err != nil || !fi.IsDir() {
		r = filepath.Dir(r)
	}

	ps, rs := segments(p), segments(r)
	common := 0
	for common < len(ps) && common < len(rs) && ps[common] == rs[common] {
		common++
	}

	parts := make([]string, 0, len(rs)-common+len(ps)-common)
	for i := common; i < len(rs); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, ps[common:]...)
	return strings.Join(parts, "/"), nil
}

// canonical resolves symlinks for existing paths and makes the rest absolute.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	return abs, nil
}

func segments(path string) []string {
	var out []string
	for _, s := range strings.Split(filepath.ToSlash(path), "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
