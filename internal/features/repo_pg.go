package features

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"portfolio-backend/internal/shared/apperr"
)

// PGTagRepo implements TagRepo using Postgres.
type PGTagRepo struct {
	DB *sql.DB
}

const upsertTagSQL = `INSERT INTO feature_tags (software_id, feature_key, feature_name, category, confidence, source, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now())
ON CONFLICT (software_id, feature_key) DO UPDATE
SET feature_name = EXCLUDED.feature_name,
    category = EXCLUDED.category,
    confidence = EXCLUDED.confidence,
    source = EXCLUDED.source,
    updated_at = now()
WHERE EXCLUDED.source = 'manual' OR ($7 AND feature_tags.source <> 'manual')`

// Upsert writes all tags in one transaction.
func (r *PGTagRepo) Upsert(ctx context.Context, tags []Tag, overwrite bool) (int, error) {
	if len(tags) == 0 {
		return 0, nil
	}
	for _, t := range tags {
		if t.SoftwareID == "" || t.Key() == "" {
			return 0, apperr.Validation("features.upsert", "software id and feature name are required")
		}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tag upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, t := range tags {
		res, err := tx.ExecContext(ctx, upsertTagSQL,
			t.SoftwareID,
			t.Key(),
			t.Name,
			t.Category,
			t.Confidence,
			t.Source,
			overwrite,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert tag %q: %w", t.Name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit tag upsert: %w", err)
	}
	return written, nil
}

const tagColumns = `software_id, feature_name, category, confidence, source, created_at, updated_at`

func (r *PGTagRepo) ListBySoftware(ctx context.Context, softwareID string) ([]Tag, error) {
	query := `SELECT ` + tagColumns + `
FROM feature_tags
WHERE software_id = $1
ORDER BY confidence DESC, feature_key ASC`
	rows, err := r.DB.QueryContext(ctx, query, softwareID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	out := make([]Tag, 0)
	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return out, nil
}

func (r *PGTagRepo) ListForSoftware(ctx context.Context, softwareIDs []string) (map[string][]Tag, error) {
	out := make(map[string][]Tag, len(softwareIDs))
	if len(softwareIDs) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(softwareIDs))
	args := make([]any, len(softwareIDs))
	for i, id := range softwareIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + tagColumns + `
FROM feature_tags
WHERE software_id IN (` + strings.Join(placeholders, ", ") + `)
ORDER BY software_id ASC, confidence DESC, feature_key ASC`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags for software: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		t, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		out[t.SoftwareID] = append(out[t.SoftwareID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tags for software: %w", err)
	}
	return out, nil
}

func (r *PGTagRepo) Delete(ctx context.Context, softwareID, featureName string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM feature_tags WHERE software_id = $1 AND feature_key = $2`,
		softwareID, Tag{Name: featureName}.Key())
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	if n == 0 {
		return ErrTagNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (Tag, error) {
	var t Tag
	var createdAt, updatedAt sql.NullTime
	if err := row.Scan(&t.SoftwareID, &t.Name, &t.Category, &t.Confidence, &t.Source, &createdAt, &updatedAt); err != nil {
		return Tag{}, fmt.Errorf("scan tag: %w", err)
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time.UTC()
	}
	if updatedAt.Valid {
		t.UpdatedAt = updatedAt.Time.UTC()
	}
	return t, nil
}

// PGCategoryStore implements CategoryStore using Postgres.
type PGCategoryStore struct {
	DB *sql.DB
}

// GetOrCreate inserts the category if missing and returns its id. A concurrent insert of
// the same name is absorbed by ON CONFLICT DO NOTHING.
func (s *PGCategoryStore) GetOrCreate(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.Validation("features.category", "category name is required")
	}
	if _, err := s.DB.ExecContext(ctx, `INSERT INTO feature_categories (name, created_at) VALUES ($1, $2)
ON CONFLICT (name) DO NOTHING`, name, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("insert category: %w", err)
	}
	var id int64
	if err := s.DB.QueryRowContext(ctx, `SELECT id FROM feature_categories WHERE name = $1`, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("select category: %w", err)
	}
	return id, nil
}

func (s *PGCategoryStore) List(ctx context.Context) ([]Category, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name FROM feature_categories ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()
	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

var (
	_ TagRepo       = (*PGTagRepo)(nil)
	_ CategoryStore = (*PGCategoryStore)(nil)
)
