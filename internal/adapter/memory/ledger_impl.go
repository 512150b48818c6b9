package memory

import (
	"context"
	"sync"

	"github.com/user/site-mirror/internal/entity"
)

type LedgerImpl struct {
	mu      sync.Mutex
	entries []entity.LedgerEntry
}

func NewLedger() *LedgerImpl {
	return &LedgerImpl{}
}

func (l *LedgerImpl) Append(_ context.Context, entry entity.LedgerEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *LedgerImpl) Entries(_ context.Context) ([]entity.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]entity.LedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

func (l *LedgerImpl) Len(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries), nil
}
