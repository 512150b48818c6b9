package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/site-mirror/internal/entity"
)

// DOMScanner finds references by parsing the markup into a DOM with goquery.
// The parser decodes entities, so Match.Text is the attribute value rather
// than the whole tag.
type DOMScanner struct{}

func (DOMScanner) Scan(markup string) []Match {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var out []Match
	doc.Find("link, img, script").Each(func(_ int, s *goquery.Selection) {
		v, ok := s.Attr("href")
		if !ok || v == "" {
			v, ok = s.Attr("src")
		}
		if !ok || v == "" {
			return
		}
		out = append(out, Match{Kind: entity.KindMedia, Text: v, URL: v})
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("href")
		if v == "" {
			return
		}
		out = append(out, Match{
			Kind:        entity.KindLink,
			Text:        v,
			URL:         v,
			DisplayName: strings.TrimSpace(s.Text()),
		})
	})
	return out
}
