package software

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores assets in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Asset
}

// NewMemoryRepo constructs a MemoryRepo seeded with assets.
func NewMemoryRepo(assets ...Asset) *MemoryRepo {
	r := &MemoryRepo{byID: make(map[string]Asset, len(assets))}
	for _, a := range assets {
		r.byID[a.ID] = a
	}
	return r
}

// Put inserts or replaces an asset.
func (r *MemoryRepo) Put(asset Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[asset.ID] = asset
}

// ListActive returns a company's active assets ordered by name then id.
func (r *MemoryRepo) ListActive(ctx context.Context, companyID string) ([]Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Asset, 0)
	for _, a := range r.byID {
		if a.CompanyID == companyID && a.Active {
			out = append(out, a)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// GetByID returns an asset by id.
func (r *MemoryRepo) GetByID(ctx context.Context, softwareID string) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return Asset{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[softwareID]
	if !ok {
		return Asset{}, ErrNotFound
	}
	return a, nil
}

var _ Reader = (*MemoryRepo)(nil)
