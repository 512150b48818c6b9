package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// HashURL creates a SHA256 hash of a URL string.
// Used for Redis keys and job identifiers.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}

// ToAbsoluteURL resolves relative against base following RFC 3986 dot-segment
// removal. The text of relative is kept as written: nothing is escaped or
// unescaped, so malformed escapes survive resolution.
func ToAbsoluteURL(base, relative string) (string, error) {
	i := strings.Index(base, "://")
	if i < 0 {
		return "", fmt.Errorf("base %q is not absolute", base)
	}
	rest := base[i+3:]
	hostEnd := strings.IndexAny(rest, "/?#")
	if hostEnd < 0 {
		hostEnd = len(rest)
	}
	origin := base[:i+3] + rest[:hostEnd]
	basePath := rest[hostEnd:]
	if j := strings.IndexAny(basePath, "?#"); j >= 0 {
		basePath = basePath[:j]
	}

	path, suffix := relative, ""
	if j := strings.IndexAny(path, "?#"); j >= 0 {
		path, suffix = path[:j], path[j:]
	}
	if !strings.HasPrefix(path, "/") {
		dir := "/"
		if k := strings.LastIndex(basePath, "/"); k >= 0 {
			dir = basePath[:k+1]
		}
		path = dir + path
	}
	return origin + removeDotSegments(path) + suffix, nil
}

// removeDotSegments drops "." and resolves ".." in an absolute path. A
// trailing dot segment leaves a trailing slash.
func removeDotSegments(path string) string {
	segs := strings.Split(path, "/")[1:]
	out := make([]string, 0, len(segs))
	for i, s := range segs {
		last := i == len(segs)-1
		switch s {
		case ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, s)
			continue
		}
		if last {
			out = append(out, "")
		}
	}
	return "/" + strings.Join(out, "/")
}
