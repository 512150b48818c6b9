package repository

import (
	"context"

	"github.com/user/site-mirror/internal/entity"
)

// ReplacementLedger is the append-only list of rewrite candidates for one run.
type ReplacementLedger interface {
	Append(ctx context.Context, entry entity.LedgerEntry) error
	// Entries returns every entry in append order. Duplicates are kept.
	Entries(ctx context.Context) ([]entity.LedgerEntry, error)
	Len(ctx context.Context) (int, error)
}
