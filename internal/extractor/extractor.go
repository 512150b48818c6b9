// Package extractor discovers the references a page makes and records each
// one in the run's replacement ledger.
package extractor

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
	"github.com/user/site-mirror/internal/resolver"
	"github.com/user/site-mirror/pkg/metrics"
	"go.uber.org/zap"
)

// Extractor turns scanner matches into resolved references. One Extractor
// serves one run, since it appends to that run's ledger.
type Extractor struct {
	scanner  Scanner
	resolver *resolver.Resolver
	ledger   repository.ReplacementLedger
	metrics  *metrics.Metrics
	logger   *zap.Logger

	resolutionFailures int
}

func New(scanner Scanner, res *resolver.Resolver, ledger repository.ReplacementLedger, m *metrics.Metrics, logger *zap.Logger) *Extractor {
	return &Extractor{
		scanner:  scanner,
		resolver: res,
		ledger:   ledger,
		metrics:  m,
		logger:   logger,
	}
}

// Extract scans markup found at parent. Unresolvable references are dropped,
// as are links leaving parent's domain; media may come from any domain.
// Every returned reference has been appended to the ledger.
func (e *Extractor) Extract(ctx context.Context, parent *entity.ResolvedReference, markup string) ([]entity.DiscoveredReference, error) {
	var found []entity.DiscoveredReference
	for _, m := range e.scanner.Scan(markup) {
		target, err := e.resolver.Resolve(m.URL, parent)
		if err != nil {
			if errors.Is(err, resolver.ErrUnsupportedReference) {
				e.resolutionFailures++
				e.metrics.IncResolutionFailure()
				continue
			}
			return nil, err
		}
		if m.Kind == entity.KindLink && target.Domain != parent.Domain {
			e.logger.Debug("link leaves domain",
				zap.String("page", parent.ResolvedURL),
				zap.String("url", target.ResolvedURL),
			)
			continue
		}

		if err := e.ledger.Append(ctx, entity.LedgerEntry{MatchedText: m.Text, Target: target}); err != nil {
			return nil, fmt.Errorf("record %s: %w", target.ResolvedURL, err)
		}
		found = append(found, entity.DiscoveredReference{
			Kind:        m.Kind,
			Target:      target,
			MatchedText: m.Text,
			DisplayName: m.DisplayName,
		})
	}
	return found, nil
}

// ResolutionFailures returns how many references were dropped for an unsupported scheme.
func (e *Extractor) ResolutionFailures() int {
	return e.resolutionFailures
}
