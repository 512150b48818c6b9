package extractor

import (
	"fmt"

	"github.com/user/site-mirror/internal/entity"
)

// Match is a candidate reference found in markup, before resolution.
type Match struct {
	Kind        entity.ReferenceKind
	Text        string // substring the rewrite pass will look for
	URL         string // raw attribute value
	DisplayName string
}

// Scanner finds candidate references in page markup. Implementations return
// media matches before link matches, each group in document order.
type Scanner interface {
	Scan(markup string) []Match
}

// NewScanner returns the scanner registered under name ("regex" or "dom").
func NewScanner(name string) (Scanner, error) {
	switch name {
	case "", "regex":
		return RegexScanner{}, nil
	case "dom":
		return DOMScanner{}, nil
	default:
		return nil, fmt.Errorf("unknown scanner %q", name)
	}
}
