package companies

import (
	"context"
	"strings"
	"sync"

	"portfolio-backend/internal/shared/apperr"
)

// MemoryRepo resolves companies from an in-memory set.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Company
	bySlug map[string]string
}

// NewMemoryRepo constructs a MemoryRepo seeded with companies.
func NewMemoryRepo(companies ...Company) *MemoryRepo {
	r := &MemoryRepo{
		byID:   make(map[string]Company),
		bySlug: make(map[string]string),
	}
	for _, c := range companies {
		r.Put(c)
	}
	return r
}

// Put inserts or replaces a company.
func (r *MemoryRepo) Put(c Company) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[c.ID] = c
	if c.Slug != "" {
		r.bySlug[strings.ToLower(c.Slug)] = c.ID
	}
}

// Resolve accepts either the company id or its slug.
func (r *MemoryRepo) Resolve(ctx context.Context, slugOrID string) (string, error) {
	ref := strings.TrimSpace(slugOrID)
	if ref == "" {
		return "", apperr.Validation("companies.resolve", "company id is required")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[ref]; ok {
		return ref, nil
	}
	if id, ok := r.bySlug[strings.ToLower(ref)]; ok {
		return id, nil
	}
	return "", ErrNotFound
}

var _ Resolver = (*MemoryRepo)(nil)
