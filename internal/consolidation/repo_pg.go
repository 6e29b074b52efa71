package consolidation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const insertRecommendationSQL = `INSERT INTO consolidation_recommendations (
    id, company_id, job_id, cluster_category, keep_software, remove_software,
    features_covered, features_at_risk, annual_savings, migration_effort, business_risk,
    confidence_score, rationale, rank, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

// Replace deletes the company's rows and inserts recs in one transaction.
func (r *PGRepo) Replace(ctx context.Context, companyID string, recs []Recommendation) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace recommendations: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM consolidation_recommendations WHERE company_id = $1`, companyID); err != nil {
		return fmt.Errorf("delete recommendations: %w", err)
	}
	for _, rec := range recs {
		args, err := insertArgs(companyID, rec)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, insertRecommendationSQL, args...); err != nil {
			return fmt.Errorf("insert recommendation: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recommendations: %w", err)
	}
	return nil
}

func insertArgs(companyID string, rec Recommendation) ([]any, error) {
	keep, err := json.Marshal(rec.Keep)
	if err != nil {
		return nil, fmt.Errorf("marshal keep: %w", err)
	}
	remove, err := json.Marshal(nonNilRefs(rec.Remove))
	if err != nil {
		return nil, fmt.Errorf("marshal remove: %w", err)
	}
	covered, err := json.Marshal(nonNil(rec.FeaturesCovered))
	if err != nil {
		return nil, fmt.Errorf("marshal features covered: %w", err)
	}
	atRisk, err := json.Marshal(nonNil(rec.FeaturesAtRisk))
	if err != nil {
		return nil, fmt.Errorf("marshal features at risk: %w", err)
	}
	var jobID sql.NullString
	if rec.JobID != "" {
		jobID = sql.NullString{String: rec.JobID, Valid: true}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return []any{
		rec.ID,
		companyID,
		jobID,
		rec.ClusterCategory,
		string(keep),
		string(remove),
		string(covered),
		string(atRisk),
		rec.AnnualSavings,
		string(rec.MigrationEffort),
		string(rec.BusinessRisk),
		rec.ConfidenceScore,
		rec.Rationale,
		rec.Rank,
		createdAt,
	}, nil
}

// ListByCompany returns a company's recommendations by rank.
func (r *PGRepo) ListByCompany(ctx context.Context, companyID string) ([]Recommendation, error) {
	query := `SELECT id, company_id, job_id, cluster_category, keep_software, remove_software,
    features_covered, features_at_risk, annual_savings, migration_effort, business_risk,
    confidence_score, rationale, rank, created_at
FROM consolidation_recommendations
WHERE company_id = $1
ORDER BY rank ASC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	defer rows.Close()

	out := make([]Recommendation, 0)
	for rows.Next() {
		rec, err := scanRecommendation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecommendation decodes one row, including its JSON columns, into a typed Recommendation.
func scanRecommendation(row rowScanner) (Recommendation, error) {
	var rec Recommendation
	var jobID sql.NullString
	var keep, remove, covered, atRisk []byte
	var effort, risk string
	if err := row.Scan(
		&rec.ID,
		&rec.CompanyID,
		&jobID,
		&rec.ClusterCategory,
		&keep,
		&remove,
		&covered,
		&atRisk,
		&rec.AnnualSavings,
		&effort,
		&risk,
		&rec.ConfidenceScore,
		&rec.Rationale,
		&rec.Rank,
		&rec.CreatedAt,
	); err != nil {
		return Recommendation{}, fmt.Errorf("scan recommendation: %w", err)
	}
	rec.JobID = jobID.String
	rec.MigrationEffort = Level(effort)
	rec.BusinessRisk = Level(risk)
	rec.CreatedAt = rec.CreatedAt.UTC()
	if err := json.Unmarshal(keep, &rec.Keep); err != nil {
		return Recommendation{}, fmt.Errorf("decode keep_software: %w", err)
	}
	if err := decodeList(remove, &rec.Remove); err != nil {
		return Recommendation{}, fmt.Errorf("decode remove_software: %w", err)
	}
	if err := decodeList(covered, &rec.FeaturesCovered); err != nil {
		return Recommendation{}, fmt.Errorf("decode features_covered: %w", err)
	}
	if err := decodeList(atRisk, &rec.FeaturesAtRisk); err != nil {
		return Recommendation{}, fmt.Errorf("decode features_at_risk: %w", err)
	}
	return rec, nil
}

func decodeList[T any](raw []byte, dst *[]T) error {
	if len(raw) == 0 {
		*dst = []T{}
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func nonNilRefs(in []SoftwareRef) []SoftwareRef {
	if in == nil {
		return []SoftwareRef{}
	}
	return in
}

var _ Repo = (*PGRepo)(nil)
