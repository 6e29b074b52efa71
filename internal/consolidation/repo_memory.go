package consolidation

import (
	"context"
	"sync"
)

// MemoryRepo stores recommendations in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byCompany map[string][]Recommendation
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byCompany: make(map[string][]Recommendation)}
}

func (r *MemoryRepo) Replace(ctx context.Context, companyID string, recs []Recommendation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([]Recommendation, len(recs))
	copy(cp, recs)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCompany[companyID] = cp
	return nil
}

func (r *MemoryRepo) ListByCompany(ctx context.Context, companyID string) ([]Recommendation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	src := r.byCompany[companyID]
	out := make([]Recommendation, len(src))
	copy(out, src)
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
