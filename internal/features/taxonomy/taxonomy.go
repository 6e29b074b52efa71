package taxonomy

import (
	"context"
	"fmt"
	"sort"

	"portfolio-backend/internal/features/extract"
)

// Other is the category assigned to features with no mapping.
const Other = "Other"

// Normalizer maps a feature name onto its canonical category.
type Normalizer interface {
	Normalize(feature string) string
}

// Taxonomy is an immutable feature -> category table keyed by normalized feature name.
type Taxonomy struct {
	byFeature  map[string]string
	categories []string
	features   map[string][]string
}

// New builds a taxonomy from a category -> features table.
// It fails when one feature is mapped to two different categories.
func New(table map[string][]string) (*Taxonomy, error) {
	t := &Taxonomy{
		byFeature: map[string]string{},
		features:  map[string][]string{},
	}
	for category, features := range table {
		t.categories = append(t.categories, category)
		for _, f := range features {
			key := extract.Key(f)
			if key == "" {
				continue
			}
			if existing, ok := t.byFeature[key]; ok && existing != category {
				return nil, fmt.Errorf("feature %q mapped to both %q and %q", f, existing, category)
			}
			t.byFeature[key] = category
			t.features[category] = append(t.features[category], f)
		}
	}
	sort.Strings(t.categories)
	for _, fs := range t.features {
		sort.Strings(fs)
	}
	return t, nil
}

// MustNew is New for static tables.
func MustNew(table map[string][]string) *Taxonomy {
	t, err := New(table)
	if err != nil {
		panic(err)
	}
	return t
}

// Normalize returns the canonical category of a feature, or Other.
func (t *Taxonomy) Normalize(feature string) string {
	if t == nil {
		return Other
	}
	if category, ok := t.byFeature[extract.Key(feature)]; ok {
		return category
	}
	return Other
}

// Categories lists the canonical category names, sorted.
func (t *Taxonomy) Categories() []string {
	return append([]string(nil), t.categories...)
}

// Features lists the mapped features of a category, sorted.
func (t *Taxonomy) Features(category string) []string {
	return append([]string(nil), t.features[category]...)
}

// CategoryCreator is the subset of a category store needed for seeding.
type CategoryCreator interface {
	GetOrCreate(ctx context.Context, name string) (int64, error)
}

// Seed makes sure every canonical category, plus Other, exists in the store.
func Seed(ctx context.Context, t *Taxonomy, store CategoryCreator) error {
	names := append(t.Categories(), Other)
	for _, name := range names {
		if _, err := store.GetOrCreate(ctx, name); err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
	}
	return nil
}
