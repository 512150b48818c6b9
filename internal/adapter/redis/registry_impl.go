package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/pkg/utils"
)

const defaultStateTTL = 24 * time.Hour

// RegistryImpl provides a VisitedRegistry using Redis. Each run gets its own
// key namespace so that runs never share dedup state.
type RegistryImpl struct {
	client *redis.Client
	runID  string
	ttl    time.Duration
}

// NewRegistry creates a registry for one run. Keys expire after ttl; zero uses a day.
func NewRegistry(client *redis.Client, runID string, ttl time.Duration) *RegistryImpl {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &RegistryImpl{client: client, runID: runID, ttl: ttl}
}

// generateKey creates a consistent Redis key for a given URL by hashing it.
func (r *RegistryImpl) generateKey(url string) string {
	return fmt.Sprintf("mirror:%s:visited:%s", r.runID, utils.HashURL(url))
}

func (r *RegistryImpl) orderKey() string {
	return fmt.Sprintf("mirror:%s:order", r.runID)
}

// Register stores ref with SET NX, so the check and the insert are one command.
func (r *RegistryImpl) Register(ctx context.Context, ref *entity.ResolvedReference) (bool, error) {
	payload, err := json.Marshal(ref)
	if err != nil {
		return false, err
	}
	ok, err := r.client.SetNX(ctx, r.generateKey(ref.ResolvedURL), payload, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("register %s: %w", ref.ResolvedURL, err)
	}
	if !ok {
		return false, nil
	}

	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, r.orderKey(), ref.ResolvedURL)
	pipe.Expire(ctx, r.orderKey(), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("record order of %s: %w", ref.ResolvedURL, err)
	}
	return true, nil
}

func (r *RegistryImpl) Update(ctx context.Context, ref *entity.ResolvedReference) error {
	payload, err := json.Marshal(ref)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.generateKey(ref.ResolvedURL), payload, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("update %s: %w", ref.ResolvedURL, err)
	}
	return nil
}

func (r *RegistryImpl) Lookup(ctx context.Context, url string) (*entity.ResolvedReference, error) {
	raw, err := r.client.Get(ctx, r.generateKey(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", url, err)
	}
	var ref entity.ResolvedReference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, fmt.Errorf("decode %s: %w", url, err)
	}
	return &ref, nil
}

func (r *RegistryImpl) All(ctx context.Context) ([]*entity.ResolvedReference, error) {
	urls, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list registry: %w", err)
	}
	if len(urls) == 0 {
		return nil, nil
	}

	keys := make([]string, len(urls))
	for i, u := range urls {
		keys[i] = r.generateKey(u)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}

	refs := make([]*entity.ResolvedReference, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Expired between LRANGE and MGET.
			continue
		}
		var ref entity.ResolvedReference
		if err := json.Unmarshal([]byte(s), &ref); err != nil {
			return nil, fmt.Errorf("decode %s: %w", urls[i], err)
		}
		refs = append(refs, &ref)
	}
	return refs, nil
}
