package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/site-mirror/internal/entity"
)

// LedgerImpl provides a ReplacementLedger using a Redis list per run.
type LedgerImpl struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewLedger(client *redis.Client, runID string, ttl time.Duration) *LedgerImpl {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &LedgerImpl{client: client, key: fmt.Sprintf("mirror:%s:ledger", runID), ttl: ttl}
}

// Append pushes the entry to the right end of the list, keeping append order.
func (l *LedgerImpl) Append(ctx context.Context, entry entity.LedgerEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	pipe := l.client.TxPipeline()
	pipe.RPush(ctx, l.key, payload)
	pipe.Expire(ctx, l.key, l.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	return nil
}

func (l *LedgerImpl) Entries(ctx context.Context) ([]entity.LedgerEntry, error) {
	raw, err := l.client.LRange(ctx, l.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	entries := make([]entity.LedgerEntry, len(raw))
	for i, s := range raw {
		if err := json.Unmarshal([]byte(s), &entries[i]); err != nil {
			return nil, fmt.Errorf("decode ledger entry %d: %w", i, err)
		}
	}
	return entries, nil
}

// Len returns the current number of entries in the ledger.
func (l *LedgerImpl) Len(ctx context.Context) (int, error) {
	n, err := l.client.LLen(ctx, l.key).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
