package usecase

import (
	"context"
	"fmt"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/extractor"
	"go.uber.org/zap"
)

// SiblingPolicy decides how the links found on one page are recursed into.
type SiblingPolicy int

const (
	// SiblingsRevisit walks the whole sibling list again for every link found
	// on the page. The registry turns the repeats into duplicate skips, so the
	// set of fetched URLs is the same as with SiblingsOnce.
	SiblingsRevisit SiblingPolicy = iota
	// SiblingsOnce recurses exactly once per discovered link.
	SiblingsOnce
)

// ParseSiblingPolicy maps "revisit" and "once" onto a SiblingPolicy.
func ParseSiblingPolicy(s string) (SiblingPolicy, error) {
	switch s {
	case "", "revisit":
		return SiblingsRevisit, nil
	case "once":
		return SiblingsOnce, nil
	default:
		return 0, fmt.Errorf("unknown sibling policy %q", s)
	}
}

func (p SiblingPolicy) String() string {
	if p == SiblingsOnce {
		return "once"
	}
	return "revisit"
}

// Crawler walks a site depth-first from a seed reference.
type Crawler struct {
	fetcher   *Fetcher
	extractor *extractor.Extractor
	policy    SiblingPolicy
	stats     *entity.MirrorStats
	logger    *zap.Logger
}

func NewCrawler(f *Fetcher, e *extractor.Extractor, policy SiblingPolicy, stats *entity.MirrorStats, logger *zap.Logger) *Crawler {
	return &Crawler{
		fetcher:   f,
		extractor: e,
		policy:    policy,
		stats:     stats,
		logger:    logger,
	}
}

// Crawl mirrors ref and its media, then follows same-domain links while the
// remaining depth allows. Depth 0 fetches ref and its media only. Every link
// on a page is crawled with the same remaining depth.
//
// Only transport failures and storage errors are returned; duplicates and
// write failures end the branch silently.
func (c *Crawler) Crawl(ctx context.Context, ref *entity.ResolvedReference, depth int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	depth--

	content, ok, err := c.fetcher.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	c.stats.PagesFetched++

	found, err := c.extractor.Extract(ctx, ref, content)
	if err != nil {
		return err
	}

	var links []*entity.ResolvedReference
	for _, d := range found {
		if d.Kind != entity.KindMedia {
			links = append(links, d.Target)
			continue
		}
		_, ok, err := c.fetcher.Fetch(ctx, d.Target)
		if err != nil {
			return err
		}
		if ok {
			c.stats.MediaFetched++
		}
	}

	if depth < 0 || len(links) == 0 {
		return nil
	}
	c.logger.Debug("following links",
		zap.String("page", ref.ResolvedURL),
		zap.Int("links", len(links)),
		zap.Int("depth", depth),
	)

	passes := 1
	if c.policy == SiblingsRevisit {
		passes = len(links)
	}
	for i := 0; i < passes; i++ {
		for _, link := range links {
			if err := c.Crawl(ctx, link, depth); err != nil {
				return err
			}
		}
	}
	return nil
}
