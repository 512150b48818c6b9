// Package memory provides in-process implementations of the repositories.
// All of them are safe for concurrent use.
package memory

import (
	"context"
	"sync"

	"github.com/user/site-mirror/internal/entity"
)

// RegistryImpl is a VisitedRegistry backed by a map plus an order slice.
// It keeps the caller's pointers, so later mutations are visible without Update.
type RegistryImpl struct {
	mu    sync.Mutex
	byURL map[string]*entity.ResolvedReference
	order []*entity.ResolvedReference
}

func NewRegistry() *RegistryImpl {
	return &RegistryImpl{byURL: make(map[string]*entity.ResolvedReference)}
}

func (r *RegistryImpl) Register(_ context.Context, ref *entity.ResolvedReference) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byURL[ref.ResolvedURL]; ok {
		return false, nil
	}
	r.byURL[ref.ResolvedURL] = ref
	r.order = append(r.order, ref)
	return true, nil
}

func (r *RegistryImpl) Update(_ context.Context, ref *entity.ResolvedReference) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev, ok := r.byURL[ref.ResolvedURL]
	if !ok {
		return nil
	}
	if prev != ref {
		*prev = *ref
	}
	return nil
}

func (r *RegistryImpl) Lookup(_ context.Context, url string) (*entity.ResolvedReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byURL[url], nil
}

func (r *RegistryImpl) All(_ context.Context) ([]*entity.ResolvedReference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ResolvedReference, len(r.order))
	copy(out, r.order)
	return out, nil
}
