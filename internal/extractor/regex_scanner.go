package extractor

import (
	"regexp"
	"strings"

	"github.com/user/site-mirror/internal/entity"
)

var (
	mediaTag  = regexp.MustCompile(`(?is)<(?:link|img|script)\b[^>]*?\b(?:href|src)\s*=\s*(?:"([^"]+)"|'([^']+)')[^>]*>`)
	anchorTag = regexp.MustCompile(`(?is)<a\b[^>]*?\bhref\s*=\s*(?:"([^"]+)"|'([^']+)')[^>]*>(.*?)</a>`)
	innerTag  = regexp.MustCompile(`(?s)<[^>]*>`)
)

// RegexScanner matches tags with regular expressions. It does not parse HTML:
// tags split oddly, nested or commented out are found only as far as the
// patterns allow.
type RegexScanner struct{}

func (RegexScanner) Scan(markup string) []Match {
	var out []Match
	for _, m := range mediaTag.FindAllStringSubmatch(markup, -1) {
		out = append(out, Match{
			Kind: entity.KindMedia,
			Text: m[0],
			URL:  firstNonEmpty(m[1], m[2]),
		})
	}
	for _, m := range anchorTag.FindAllStringSubmatch(markup, -1) {
		out = append(out, Match{
			Kind:        entity.KindLink,
			Text:        m[0],
			URL:         firstNonEmpty(m[1], m[2]),
			DisplayName: strings.TrimSpace(innerTag.ReplaceAllString(m[3], "")),
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
