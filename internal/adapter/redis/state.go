package redis

import (
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/site-mirror/internal/repository"
)

// RunStateFactory returns a constructor for per-run registry and ledger pairs
// sharing client. Keys of different runs never collide.
func RunStateFactory(client *redis.Client, ttl time.Duration) func(runID string) (repository.VisitedRegistry, repository.ReplacementLedger) {
	return func(runID string) (repository.VisitedRegistry, repository.ReplacementLedger) {
		return NewRegistry(client, runID, ttl), NewLedger(client, runID, ttl)
	}
}
