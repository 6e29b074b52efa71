package features

import (
	"context"
	"fmt"

	"portfolio-backend/internal/shared/apperr"
)

// ErrTagNotFound is returned when removing a tag that does not exist.
var ErrTagNotFound = fmt.Errorf("feature tag %w", apperr.ErrNotFound)

// TagRepo persists feature tags keyed by (software id, normalized name).
type TagRepo interface {
	// Upsert writes tags and returns how many rows changed. Incoming manual tags always win;
	// extracted tags never replace a manual tag and replace extracted ones only when overwrite is set.
	Upsert(ctx context.Context, tags []Tag, overwrite bool) (int, error)
	ListBySoftware(ctx context.Context, softwareID string) ([]Tag, error)
	ListForSoftware(ctx context.Context, softwareIDs []string) (map[string][]Tag, error)
	Delete(ctx context.Context, softwareID, featureName string) error
}

// CategoryStore holds canonical categories. GetOrCreate is idempotent under concurrency.
type CategoryStore interface {
	GetOrCreate(ctx context.Context, name string) (int64, error)
	List(ctx context.Context) ([]Category, error)
}

// replaces reports whether incoming may overwrite existing under upsert rules.
func replaces(existing, incoming Tag, overwrite bool) bool {
	if incoming.IsManual() {
		return true
	}
	return overwrite && !existing.IsManual()
}
