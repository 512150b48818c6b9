// Package resolver turns raw href/src strings into absolute URLs and the
// deterministic local paths their mirror copies are stored under.
package resolver

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/pkg/utils"
	"go.uber.org/zap"
)

// ErrUnsupportedReference is returned for references that can never be
// fetched: mailto:, javascript:, fragment-only and other non-http schemes.
var ErrUnsupportedReference = errors.New("unsupported reference")

var (
	absoluteURL = regexp.MustCompile(`^(?is)(https?)://([^/?#]*)(.*)$`)
	otherScheme = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

	// Characters removed from local paths. Query strings are flattened, not decoded.
	unsafePathChars = strings.NewReplacer("?", "", "&", "", "%", "")
)

// Resolver resolves references for a single output root.
type Resolver struct {
	outputRoot string
	logger     *zap.Logger
}

// New creates a Resolver writing under outputRoot. An empty root means the
// current directory.
func New(outputRoot string, logger *zap.Logger) *Resolver {
	if outputRoot == "" {
		outputRoot = "."
	} else {
		outputRoot = strings.TrimRight(outputRoot, "/")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{outputRoot: outputRoot, logger: logger}
}

// Resolve is a convenience wrapper around New(outputRoot, nil).Resolve.
func Resolve(raw string, parent *entity.ResolvedReference, outputRoot string) (*entity.ResolvedReference, error) {
	return New(outputRoot, nil).Resolve(raw, parent)
}

// OutputRoot returns the normalized root all local paths start with.
func (r *Resolver) OutputRoot() string {
	return r.outputRoot
}

// Resolve turns raw into a ResolvedReference. A nil parent marks raw as the
// crawl seed, which gets http:// when it has no scheme.
func (r *Resolver) Resolve(raw string, parent *entity.ResolvedReference) (*entity.ResolvedReference, error) {
	if isRejected(raw) {
		r.logger.Debug("reference rejected", zap.String("raw", raw))
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedReference, raw)
	}

	href := raw
	if parent == nil && !hasHTTPScheme(raw) {
		href = "http://" + raw
	}

	resolved, err := absolutize(href, parent)
	if err != nil {
		r.logger.Debug("reference rejected", zap.String("raw", raw), zap.Error(err))
		return nil, err
	}

	m := absoluteURL.FindStringSubmatch(resolved)
	if m == nil {
		return nil, fmt.Errorf("%w: %q does not resolve to an http(s) URL", ErrUnsupportedReference, raw)
	}
	scheme := strings.ToLower(m[1])
	domain := strings.ToLower(m[2])
	pathAndQuery := m[3]
	if !strings.HasPrefix(pathAndQuery, "/") {
		pathAndQuery = "/" + pathAndQuery
	}

	localPath := r.outputRoot + "/" + domain + pathAndQuery
	if strings.HasSuffix(localPath, "/") {
		localPath += "index.html"
	}
	localPath = unsafePathChars.Replace(localPath)
	i := strings.LastIndex(localPath, "/")

	ref := &entity.ResolvedReference{
		Raw:           raw,
		Href:          href,
		ResolvedURL:   resolved,
		Scheme:        scheme,
		Base:          scheme + "://" + domain,
		Domain:        domain,
		LocalPath:     localPath,
		LocalDir:      localPath[:i],
		LocalFilename: localPath[i+1:],
	}
	r.logger.Debug("reference resolved",
		zap.String("raw", raw),
		zap.String("url", ref.ResolvedURL),
		zap.String("local_path", ref.LocalPath),
	)
	return ref, nil
}

func isRejected(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(s, "#") ||
		strings.HasPrefix(s, "mailto:") ||
		strings.HasPrefix(s, "javascript:")
}

func hasHTTPScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// absolutize applies the parent context to href.
func absolutize(href string, parent *entity.ResolvedReference) (string, error) {
	if hasHTTPScheme(href) || parent == nil {
		return href, nil
	}
	switch {
	case strings.HasPrefix(href, "//"):
		return parent.Scheme + ":" + href, nil
	case strings.HasPrefix(href, "/"):
		return parent.Base + href, nil
	case otherScheme.MatchString(href):
		return "", fmt.Errorf("%w: %q", ErrUnsupportedReference, href)
	case !strings.Contains(href, "/"):
		return ParentDir(parent) + href, nil
	}
	// Directory-relative paths with segments, e.g. img/a.png or ../x.css.
	abs, err := utils.ToAbsoluteURL(ParentDir(parent), href)
	if err != nil {
		return ParentDir(parent) + href, nil
	}
	return abs, nil
}

// ParentDir returns the parent's base plus the directory part of its path,
// always ending in "/". The query string never contributes.
func ParentDir(parent *entity.ResolvedReference) string {
	path := "/"
	if m := absoluteURL.FindStringSubmatch(parent.ResolvedURL); m != nil {
		path = m[3]
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
	}
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return parent.Base + "/"
	}
	return parent.Base + path[:i+1]
}
