package features

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio-backend/internal/shared/apperr"
)

// MemoryTagRepo stores tags in memory and is safe for concurrent use.
type MemoryTagRepo struct {
	mu         sync.RWMutex
	bySoftware map[string]map[string]Tag
	now        func() time.Time
}

// NewMemoryTagRepo constructs a MemoryTagRepo.
func NewMemoryTagRepo() *MemoryTagRepo {
	return &MemoryTagRepo{
		bySoftware: make(map[string]map[string]Tag),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryTagRepo) Upsert(ctx context.Context, tags []Tag, overwrite bool) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	for _, t := range tags {
		if t.SoftwareID == "" || t.Key() == "" {
			return 0, apperr.Validation("features.upsert", "software id and feature name are required")
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	written := 0
	now := r.now()
	for _, t := range tags {
		key := t.Key()
		set, ok := r.bySoftware[t.SoftwareID]
		if !ok {
			set = make(map[string]Tag)
			r.bySoftware[t.SoftwareID] = set
		}
		existing, exists := set[key]
		if exists && !replaces(existing, t, overwrite) {
			continue
		}
		t.UpdatedAt = now
		t.CreatedAt = now
		if exists {
			t.CreatedAt = existing.CreatedAt
		}
		set[key] = t
		written++
	}
	return written, nil
}

func (r *MemoryTagRepo) ListBySoftware(ctx context.Context, softwareID string) ([]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedTags(r.bySoftware[softwareID]), nil
}

func (r *MemoryTagRepo) ListForSoftware(ctx context.Context, softwareIDs []string) (map[string][]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Tag, len(softwareIDs))
	for _, id := range softwareIDs {
		if set, ok := r.bySoftware[id]; ok && len(set) > 0 {
			out[id] = sortedTags(set)
		}
	}
	return out, nil
}

func (r *MemoryTagRepo) Delete(ctx context.Context, softwareID, featureName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := Tag{Name: featureName}.Key()
	set := r.bySoftware[softwareID]
	if _, ok := set[key]; !ok {
		return ErrTagNotFound
	}
	delete(set, key)
	return nil
}

func sortedTags(set map[string]Tag) []Tag {
	out := make([]Tag, 0, len(set))
	for _, t := range set {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// MemoryCategoryStore is an in-memory CategoryStore.
type MemoryCategoryStore struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]Category
}

// NewMemoryCategoryStore constructs a MemoryCategoryStore.
func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{byName: make(map[string]Category)}
}

func (s *MemoryCategoryStore) GetOrCreate(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.Validation("features.category", "category name is required")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.byName[name]; ok {
		return c.ID, nil
	}
	s.nextID++
	s.byName[name] = Category{ID: s.nextID, Name: name}
	return s.nextID, nil
}

func (s *MemoryCategoryStore) List(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Category, 0, len(s.byName))
	for _, c := range s.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var (
	_ TagRepo       = (*MemoryTagRepo)(nil)
	_ CategoryStore = (*MemoryCategoryStore)(nil)
)
