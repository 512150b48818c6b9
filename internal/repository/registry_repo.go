package repository

import (
	"context"

	"github.com/user/site-mirror/internal/entity"
)

// VisitedRegistry records every URL a fetch was attempted for during one run.
type VisitedRegistry interface {
	// Register adds ref under its resolved URL and reports whether it was new.
	// The check and the insertion are a single atomic step.
	Register(ctx context.Context, ref *entity.ResolvedReference) (bool, error)
	// Update stores the post-download state (content type, local path) of a registered ref.
	Update(ctx context.Context, ref *entity.ResolvedReference) error
	// Lookup returns the registered reference for url, or nil if there is none.
	Lookup(ctx context.Context, url string) (*entity.ResolvedReference, error)
	// All returns the registered references in registration order.
	All(ctx context.Context) ([]*entity.ResolvedReference, error)
}
