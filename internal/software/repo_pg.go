package software

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PGRepo implements Reader using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, company_id, name, vendor, category, description, annual_cost, license_count, active`

// ListActive returns a company's active assets ordered by name then id.
func (r *PGRepo) ListActive(ctx context.Context, companyID string) ([]Asset, error) {
	query := `SELECT ` + selectColumns + `
FROM software
WHERE company_id = $1 AND active
ORDER BY name ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list active software: %w", err)
	}
	defer rows.Close()

	out := make([]Asset, 0)
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active software: %w", err)
	}
	return out, nil
}

// GetByID returns an asset by id.
func (r *PGRepo) GetByID(ctx context.Context, softwareID string) (Asset, error) {
	query := `SELECT ` + selectColumns + `
FROM software
WHERE id = $1
LIMIT 1`
	a, err := scanAsset(r.DB.QueryRowContext(ctx, query, softwareID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, ErrNotFound
		}
		return Asset{}, err
	}
	return a, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanAsset is the only place software rows are decoded; nullable columns become zero values.
func scanAsset(row rowScanner) (Asset, error) {
	var a Asset
	var vendor, category, description sql.NullString
	var annualCost sql.NullFloat64
	var licenseCount sql.NullInt64
	if err := row.Scan(
		&a.ID,
		&a.CompanyID,
		&a.Name,
		&vendor,
		&category,
		&description,
		&annualCost,
		&licenseCount,
		&a.Active,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Asset{}, err
		}
		return Asset{}, fmt.Errorf("scan software: %w", err)
	}
	a.Vendor = vendor.String
	a.Category = category.String
	a.Description = description.String
	if annualCost.Valid && annualCost.Float64 > 0 {
		a.AnnualCost = annualCost.Float64
	}
	if licenseCount.Valid && licenseCount.Int64 > 0 {
		a.LicenseCount = int(licenseCount.Int64)
	}
	return a, nil
}

var _ Reader = (*PGRepo)(nil)
