package companies

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"portfolio-backend/internal/shared/apperr"
)

// PGRepo resolves companies from Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Resolve accepts either the company id or its slug (case-insensitive).
func (r *PGRepo) Resolve(ctx context.Context, slugOrID string) (string, error) {
	ref := strings.TrimSpace(slugOrID)
	if ref == "" {
		return "", apperr.Validation("companies.resolve", "company id is required")
	}
	const query = `
SELECT id
FROM companies
WHERE id = $1 OR lower(slug) = lower($1)
ORDER BY (id = $1) DESC
LIMIT 1`
	var id string
	if err := r.DB.QueryRowContext(ctx, query, ref).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve company: %w", err)
	}
	return id, nil
}

var _ Resolver = (*PGRepo)(nil)
