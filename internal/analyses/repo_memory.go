package analyses

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu        sync.RWMutex
	byID      map[string]Job
	byCompany map[string][]string
	now       func() time.Time
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:      make(map[string]Job),
		byCompany: make(map[string][]string),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the job unless the company already has a live one.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.liveLocked(job.CompanyID); ok {
		return ErrLiveJobExists
	}
	r.byID[job.ID] = job.Clone()
	r.byCompany[job.CompanyID] = append(r.byCompany[job.CompanyID], job.ID)
	return nil
}

// GetByID returns a snapshot of a job.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job.Clone(), nil
}

// Update replaces the stored job, keeping the stored cancellation flag. Terminal jobs are
// never overwritten.
func (r *MemoryRepo) Update(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[job.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Status.Terminal() {
		return ErrJobFinished
	}
	next := job.Clone()
	next.CancellationRequested = existing.CancellationRequested
	r.byID[job.ID] = next
	return nil
}

// LatestForCompany returns the most recently created job of a company.
func (r *MemoryRepo) LatestForCompany(ctx context.Context, companyID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byCompany[companyID]
	if len(ids) == 0 {
		return Job{}, ErrNotFound
	}
	return r.byID[ids[len(ids)-1]].Clone(), nil
}

// LiveForCompany returns the company's queued or running job, if any.
func (r *MemoryRepo) LiveForCompany(ctx context.Context, companyID string) (Job, bool, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.liveLocked(companyID)
	return job, ok, nil
}

func (r *MemoryRepo) liveLocked(companyID string) (Job, bool) {
	for _, id := range r.byCompany[companyID] {
		if job := r.byID[id]; job.Status.Live() {
			return job.Clone(), true
		}
	}
	return Job{}, false
}

// RequestCancel sets the cancellation flag of a live job.
func (r *MemoryRepo) RequestCancel(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	if job.Status.Live() && !job.CancellationRequested {
		job.CancellationRequested = true
		job.UpdatedAt = r.now()
		r.byID[jobID] = job
	}
	return job.Clone(), nil
}

// FailStale marks live jobs failed whose last update is at least idleFor old.
func (r *MemoryRepo) FailStale(ctx context.Context, message string, idleFor time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-idleFor)
	n := 0
	for id, job := range r.byID {
		if !job.Status.Live() || job.UpdatedAt.After(cutoff) {
			continue
		}
		job.Status = StatusFailed
		job.Message = message
		job.CompletedAt = &now
		job.UpdatedAt = now
		job.EstimatedTimeRemaining = 0
		job.Log(now, LogError, "%s", message)
		r.byID[id] = job
		n++
	}
	return n, nil
}

var _ Repo = (*MemoryRepo)(nil)
