package software

import (
	"context"
	"fmt"

	"portfolio-backend/internal/shared/apperr"
)

// ErrNotFound is returned when a software asset does not exist.
var ErrNotFound = fmt.Errorf("software %w", apperr.ErrNotFound)

// Reader is the read-only view of the portfolio store.
type Reader interface {
	ListActive(ctx context.Context, companyID string) ([]Asset, error)
	GetByID(ctx context.Context, softwareID string) (Asset, error)
}
