package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/shared/storage/db"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const liveJobIndex = "analysis_jobs_one_live_per_company"

const jobColumns = `id, company_id, status, progress, total_software, processed_software, overlaps_found,
    recommendations_generated, eta_seconds, message, activity_log, cancellation_requested,
    start_time, completed_at, created_at, updated_at`

// Create inserts a job. The partial unique index on live jobs turns a concurrent second
// start for the same company into ErrLiveJobExists.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	logJSON, err := marshalLog(job.ActivityLog)
	if err != nil {
		return err
	}
	const query = `INSERT INTO analysis_jobs (` + jobColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.DB.ExecContext(ctx, query,
		job.ID,
		job.CompanyID,
		string(job.Status),
		job.Progress,
		job.TotalSoftware,
		job.ProcessedSoftware,
		job.OverlapsFound,
		job.RecommendationsGenerated,
		job.EstimatedTimeRemaining,
		job.Message,
		logJSON,
		job.CancellationRequested,
		nullTime(job.StartTime),
		nullTime(job.CompletedAt),
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		if db.IsUniqueViolation(err, liveJobIndex) {
			return ErrLiveJobExists
		}
		return fmt.Errorf("insert analysis job: %w", err)
	}
	return nil
}

// GetByID returns a job by id.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	query := `SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE id = $1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// Update writes the worker-owned columns; cancellation_requested is left alone and terminal
// rows are never touched.
func (r *PGRepo) Update(ctx context.Context, job Job) error {
	logJSON, err := marshalLog(job.ActivityLog)
	if err != nil {
		return err
	}
	const query = `UPDATE analysis_jobs
SET status = $2,
    progress = $3,
    total_software = $4,
    processed_software = $5,
    overlaps_found = $6,
    recommendations_generated = $7,
    eta_seconds = $8,
    message = $9,
    activity_log = $10,
    start_time = $11,
    completed_at = $12,
    updated_at = $13
WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')`
	res, err := r.DB.ExecContext(ctx, query,
		job.ID,
		string(job.Status),
		job.Progress,
		job.TotalSoftware,
		job.ProcessedSoftware,
		job.OverlapsFound,
		job.RecommendationsGenerated,
		job.EstimatedTimeRemaining,
		job.Message,
		logJSON,
		nullTime(job.StartTime),
		nullTime(job.CompletedAt),
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update analysis job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetByID(ctx, job.ID); err != nil {
			return err
		}
		return ErrJobFinished
	}
	return nil
}

// LatestForCompany returns the newest job of a company.
func (r *PGRepo) LatestForCompany(ctx context.Context, companyID string) (Job, error) {
	query := `SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE company_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// LiveForCompany returns the company's queued or running job, if any.
func (r *PGRepo) LiveForCompany(ctx context.Context, companyID string) (Job, bool, error) {
	query := `SELECT ` + jobColumns + `
FROM analysis_jobs
WHERE company_id = $1 AND status IN ('queued', 'running')
LIMIT 1`
	job, err := scanJob(r.DB.QueryRowContext(ctx, query, companyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, false, nil
		}
		return Job{}, false, err
	}
	return job, true, nil
}

// RequestCancel sets the cancellation flag on a live job and returns the stored job.
func (r *PGRepo) RequestCancel(ctx context.Context, jobID string) (Job, error) {
	if _, err := r.DB.ExecContext(ctx, `UPDATE analysis_jobs
SET cancellation_requested = TRUE, updated_at = now()
WHERE id = $1 AND status IN ('queued', 'running') AND NOT cancellation_requested`, jobID); err != nil {
		return Job{}, fmt.Errorf("request cancel: %w", err)
	}
	return r.GetByID(ctx, jobID)
}

// FailStale fails live jobs idle for at least idleFor and appends an error entry to their
// activity log.
func (r *PGRepo) FailStale(ctx context.Context, message string, idleFor time.Duration) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE analysis_jobs
SET status = 'failed',
    message = $1,
    eta_seconds = 0,
    completed_at = now(),
    updated_at = now(),
    activity_log = activity_log || jsonb_build_array(jsonb_build_object('timestamp', now(), 'message', $1::text, 'type', 'error'))
WHERE status IN ('queued', 'running')
  AND updated_at <= now() - $2 * interval '1 second'`, message, idleFor.Seconds())
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("fail stale jobs: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob is the single decoding point for job rows.
func scanJob(row rowScanner) (Job, error) {
	var job Job
	var status string
	var logJSON []byte
	var startTime, completedAt sql.NullTime
	if err := row.Scan(
		&job.ID,
		&job.CompanyID,
		&status,
		&job.Progress,
		&job.TotalSoftware,
		&job.ProcessedSoftware,
		&job.OverlapsFound,
		&job.RecommendationsGenerated,
		&job.EstimatedTimeRemaining,
		&job.Message,
		&logJSON,
		&job.CancellationRequested,
		&startTime,
		&completedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("scan analysis job: %w", err)
	}
	job.Status = Status(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	if startTime.Valid {
		t := startTime.Time.UTC()
		job.StartTime = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}
	job.ActivityLog = []LogEntry{}
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &job.ActivityLog); err != nil {
			return Job{}, fmt.Errorf("decode activity log: %w", err)
		}
		if job.ActivityLog == nil {
			job.ActivityLog = []LogEntry{}
		}
	}
	return job, nil
}

func marshalLog(entries []LogEntry) (string, error) {
	if entries == nil {
		entries = []LogEntry{}
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("marshal activity log: %w", err)
	}
	return string(b), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
