package companies

import (
	"context"
	"fmt"

	"portfolio-backend/internal/shared/apperr"
)

// Company is the tenant that owns a software portfolio.
type Company struct {
	ID   string `json:"id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ErrNotFound is returned when a slug or id resolves to no company.
var ErrNotFound = fmt.Errorf("company %w", apperr.ErrNotFound)

// Resolver maps a slug or id to a company id.
type Resolver interface {
	Resolve(ctx context.Context, slugOrID string) (string, error)
}
