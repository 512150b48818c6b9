package entity

import (
	"mime"
	"strings"
)

// ReferenceKind tells the crawler whether a discovered reference is followed
// as a page or fetched once as a page resource.
type ReferenceKind string

const (
	KindLink  ReferenceKind = "link"
	KindMedia ReferenceKind = "media"
)

// ResolvedReference is an absolute URL together with the location its mirror
// copy is written to. It is created by the resolver and only changed by the
// fetcher, once, after a download.
type ResolvedReference struct {
	Raw           string `json:"raw"`
	Href          string `json:"href"`
	ResolvedURL   string `json:"resolved_url"`
	Scheme        string `json:"scheme"`
	Base          string `json:"base"`
	Domain        string `json:"domain"`
	LocalPath     string `json:"local_path"`
	LocalDir      string `json:"local_dir"`
	LocalFilename string `json:"local_filename"`
	ContentType   string `json:"content_type,omitempty"`
}

// IsHTML reports whether the recorded content type is text/html.
func (r *ResolvedReference) IsHTML() bool {
	return IsHTMLContentType(r.ContentType)
}

// IsHTMLContentType reports whether a Content-Type header value names text/html,
// ignoring parameters such as charset.
func IsHTMLContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	return strings.EqualFold(mediaType, "text/html")
}

// DiscoveredReference is a reference found in the markup of a fetched page.
type DiscoveredReference struct {
	Kind        ReferenceKind
	Target      *ResolvedReference
	MatchedText string // verbatim substring of the page markup
	DisplayName string // anchor text, links only
}

// LedgerEntry is one substitution candidate for the offline rewrite pass.
type LedgerEntry struct {
	MatchedText string             `json:"matched_text"`
	Target      *ResolvedReference `json:"target"`
}
