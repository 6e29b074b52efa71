package analyses

import (
	"context"
	"fmt"
	"time"

	"portfolio-backend/internal/shared/apperr"
)

var (
	// ErrNotFound is returned when a job does not exist.
	ErrNotFound = fmt.Errorf("analysis job %w", apperr.ErrNotFound)
	// ErrLiveJobExists is returned when a company already has a queued or running job.
	ErrLiveJobExists = fmt.Errorf("analysis already in progress for company: %w", apperr.ErrConflict)
	// ErrJobFinished is returned by Update when the stored job is already terminal.
	ErrJobFinished = fmt.Errorf("analysis job already finished: %w", apperr.ErrConflict)
)

// Repo persists analysis jobs.
type Repo interface {
	// Create stores a new job; it fails with ErrLiveJobExists when the company has a live job.
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	// Update writes the worker-owned fields of a job. It never changes CancellationRequested
	// and fails with ErrJobFinished once the stored job is terminal.
	Update(ctx context.Context, job Job) error
	LatestForCompany(ctx context.Context, companyID string) (Job, error)
	LiveForCompany(ctx context.Context, companyID string) (Job, bool, error)
	// RequestCancel flags a live job for cancellation and returns the current snapshot.
	// Terminal jobs are returned unchanged.
	RequestCancel(ctx context.Context, jobID string) (Job, error)
	// FailStale marks live jobs failed that have not been updated for idleFor. A running job
	// saves after every item, so idle jobs are the ones no process is driving any more.
	FailStale(ctx context.Context, message string, idleFor time.Duration) (int, error)
}
