package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/companies"
	"portfolio-backend/internal/consolidation"
	"portfolio-backend/internal/features"
	"portfolio-backend/internal/features/taxonomy"
	"portfolio-backend/internal/overlaps"
	"portfolio-backend/internal/shared/apperr"
	"portfolio-backend/internal/shared/events"
	"portfolio-backend/internal/shared/lock"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/software"
)

const (
	lockPrefix   = "analysis:"
	eventVersion = 1
)

// Service runs portfolio analyses as background jobs, one live job per company.
type Service struct {
	Repo       Repo
	Companies  companies.Resolver
	Software   software.Reader
	Features   *features.Service
	Recs       consolidation.Repo
	Locker     lock.Locker
	Publisher  events.Publisher
	Taxonomy   taxonomy.Normalizer
	CostPolicy overlaps.CostPolicy
	// ItemDelay pauses between items; used to make progress observable in dev.
	ItemDelay time.Duration
	Now       func() time.Time

	initOnce sync.Once
	notes    *notifier
	wg       sync.WaitGroup
}

func (s *Service) init() {
	s.initOnce.Do(func() {
		s.notes = newNotifier()
		if s.Locker == nil {
			s.Locker = lock.NewLocal()
		}
		if s.Publisher == nil {
			s.Publisher = events.Nop{}
		}
		if s.Taxonomy == nil {
			s.Taxonomy = taxonomy.Default()
		}
		if s.CostPolicy == nil {
			s.CostPolicy = overlaps.ProportionalCost{}
		}
	})
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Start creates a queued job for the company and runs it in the background.
func (s *Service) Start(ctx context.Context, companyRef string) (Job, error) {
	const op = "analyses.start"
	s.init()
	if strings.TrimSpace(companyRef) == "" {
		return Job{}, apperr.Validation(op, "company is required")
	}
	companyID, err := s.Companies.Resolve(ctx, companyRef)
	if err != nil {
		return Job{}, classify(op, err)
	}

	lease, ok, err := s.Locker.TryAcquire(ctx, lockPrefix+companyID)
	if err != nil {
		return Job{}, apperr.Wrap(apperr.ErrPersistence, op, err)
	}
	if !ok {
		return Job{}, apperr.Conflict(op, "an analysis is already running for this company")
	}
	started := false
	defer func() {
		if !started {
			releaseLease(context.WithoutCancel(ctx), lease, companyID)
		}
	}()

	if live, exists, err := s.Repo.LiveForCompany(ctx, companyID); err != nil {
		return Job{}, apperr.Wrap(apperr.ErrPersistence, op, err)
	} else if exists {
		telemetry.Warn("analysis.start_conflict", map[string]any{
			"company_id": companyID,
			"job_id":     live.ID,
		})
		return Job{}, apperr.Conflict(op, "an analysis is already running for this company")
	}

	now := s.now()
	job := Job{
		ID:          uuid.NewString(),
		CompanyID:   companyID,
		Status:      StatusQueued,
		Message:     "Analysis queued",
		ActivityLog: []LogEntry{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	job.Log(now, LogInfo, "Analysis queued")
	if err := s.Repo.Create(ctx, job); err != nil {
		if errors.Is(err, ErrLiveJobExists) {
			return Job{}, apperr.Conflict(op, "an analysis is already running for this company")
		}
		return Job{}, apperr.Wrap(apperr.ErrPersistence, op, err)
	}

	started = true
	metrics.IncJobStarted()
	telemetry.Info("analysis.queued", map[string]any{
		"company_id": companyID,
		"job_id":     job.ID,
		"request_id": telemetry.RequestID(ctx),
	})
	s.emit(ctx, job)

	s.wg.Add(1)
	go s.run(context.WithoutCancel(ctx), job.Clone(), lease)
	return job, nil
}

// Get returns a snapshot of a job.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	const op = "analyses.get"
	if strings.TrimSpace(jobID) == "" {
		return Job{}, apperr.Validation(op, "job id is required")
	}
	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return Job{}, classify(op, err)
	}
	return job, nil
}

// Latest returns the most recent job of a company.
func (s *Service) Latest(ctx context.Context, companyRef string) (Job, error) {
	const op = "analyses.latest"
	if strings.TrimSpace(companyRef) == "" {
		return Job{}, apperr.Validation(op, "company is required")
	}
	companyID, err := s.Companies.Resolve(ctx, companyRef)
	if err != nil {
		return Job{}, classify(op, err)
	}
	job, err := s.Repo.LatestForCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Job{}, apperr.NotFound(op, "no analysis has been run for this company")
		}
		return Job{}, classify(op, err)
	}
	return job, nil
}

// Cancel asks a live job to stop at the next item boundary. Terminal jobs are returned as is.
// Subscribers see the flag in the run's next snapshot; only the run goroutine publishes.
func (s *Service) Cancel(ctx context.Context, jobID string) (Job, error) {
	const op = "analyses.cancel"
	s.init()
	if strings.TrimSpace(jobID) == "" {
		return Job{}, apperr.Validation(op, "job id is required")
	}
	job, err := s.Repo.RequestCancel(ctx, jobID)
	if err != nil {
		return Job{}, classify(op, err)
	}
	if job.Status.Live() {
		telemetry.Info("analysis.cancel_requested", map[string]any{
			"company_id": job.CompanyID,
			"job_id":     job.ID,
		})
	}
	return job, nil
}

// Subscribe streams snapshots of a job, starting with the current one. The channel is
// closed once a terminal snapshot has been delivered or the returned func is called.
func (s *Service) Subscribe(ctx context.Context, jobID string) (<-chan Job, func(), error) {
	s.init()
	id, ch, cancel := s.notes.subscribe(jobID)
	job, err := s.Get(ctx, jobID)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	s.notes.prime(jobID, id, job)
	return ch, cancel, nil
}

// Wait blocks until every background run started by this service has returned.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) run(ctx context.Context, job Job, lease lock.Lease) {
	defer s.wg.Done()
	defer releaseLease(ctx, lease, job.CompanyID)
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("analysis.panic", map[string]any{
				"company_id": job.CompanyID,
				"job_id":     job.ID,
				"panic":      fmt.Sprint(r),
			})
			if job.Status.Live() {
				s.fail(ctx, &job, fmt.Errorf("internal error: %v", r))
			}
		}
	}()

	if s.cancelRequested(ctx, &job) {
		s.cancel(ctx, &job)
		return
	}

	now := s.now()
	if err := job.transition(StatusRunning, now); err != nil {
		s.fail(ctx, &job, err)
		return
	}
	job.StartTime = &now

	assets, err := s.Software.ListActive(ctx, job.CompanyID)
	if err != nil {
		s.fail(ctx, &job, fmt.Errorf("load software inventory: %w", err))
		return
	}
	job.TotalSoftware = len(assets)
	job.Message = fmt.Sprintf("Analyzing %d software items", len(assets))
	job.Log(now, LogInfo, "Analysis started for %d active software items", len(assets))
	if !s.save(ctx, &job) {
		return
	}
	telemetry.Info("analysis.started", map[string]any{
		"company_id":     job.CompanyID,
		"job_id":         job.ID,
		"total_software": len(assets),
	})

	for i, asset := range assets {
		if s.cancelRequested(ctx, &job) {
			s.cancel(ctx, &job)
			return
		}
		if err := lease.Refresh(ctx); err != nil {
			telemetry.Warn("analysis.lock_refresh_failed", map[string]any{
				"company_id": job.CompanyID,
				"job_id":     job.ID,
				"error":      err,
			})
		}
		s.processItem(ctx, &job, asset)

		job.ProcessedSoftware = i + 1
		if p := progressPercent(job.ProcessedSoftware, job.TotalSoftware); p > job.Progress {
			job.Progress = p
		}
		job.EstimatedTimeRemaining = etaSeconds(s.now().Sub(*job.StartTime), job.ProcessedSoftware, job.TotalSoftware)
		job.Message = fmt.Sprintf("Processed %d of %d software items", job.ProcessedSoftware, job.TotalSoftware)
		job.UpdatedAt = s.now()
		if !s.save(ctx, &job) {
			return
		}

		if s.ItemDelay > 0 && i < len(assets)-1 {
			time.Sleep(s.ItemDelay)
		}
	}

	if s.cancelRequested(ctx, &job) {
		s.cancel(ctx, &job)
		return
	}

	recs, err := s.consolidate(ctx, &job, assets)
	if err != nil {
		s.fail(ctx, &job, err)
		return
	}

	now = s.now()
	var savings float64
	for _, r := range recs {
		savings += r.AnnualSavings
	}
	job.RecommendationsGenerated = len(recs)
	job.Progress = 100
	job.Message = fmt.Sprintf("Found %d overlaps and %d consolidation opportunities", job.OverlapsFound, len(recs))
	if err := job.transition(StatusCompleted, now); err != nil {
		s.fail(ctx, &job, err)
		return
	}
	job.Log(now, LogSuccess, "Analysis complete: %d overlaps, %d recommendations, %.2f potential annual savings",
		job.OverlapsFound, len(recs), savings)
	if s.save(ctx, &job) {
		s.finish(&job)
	}
}

// processItem tags one asset. Failures are recorded in the activity log and never abort the run.
func (s *Service) processItem(ctx context.Context, job *Job, asset software.Asset) {
	res, err := s.Features.TagSoftware(ctx, asset, features.Options{})
	now := s.now()
	if err != nil {
		fields := map[string]any{
			"company_id":  job.CompanyID,
			"job_id":      job.ID,
			"software_id": asset.ID,
			"code":        apperr.Code(err),
			"error":       err,
		}
		metrics.IncItemFailure(apperr.Code(err))
		if errors.Is(err, apperr.ErrExtraction) {
			telemetry.Warn("analysis.item_extraction_failed", fields)
			job.Log(now, LogWarning, "Skipped %s: feature extraction failed", asset.Name)
			return
		}
		telemetry.Error("analysis.item_failed", fields)
		job.Log(now, LogError, "Could not save features for %s: %v", asset.Name, err)
		return
	}
	job.Log(now, LogInfo, "Analyzed %s: %d features found, %d saved", asset.Name, res.Extracted-res.Filtered, res.Written)
}

// consolidate runs overlap detection and replaces the company's recommendations.
func (s *Service) consolidate(ctx context.Context, job *Job, assets []software.Asset) ([]consolidation.Recommendation, error) {
	ids := make([]string, 0, len(assets))
	byID := make(map[string]software.Asset, len(assets))
	for _, a := range assets {
		ids = append(ids, a.ID)
		byID[a.ID] = a
	}
	tags, err := s.Features.TagsFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load feature tags: %w", err)
	}

	inventory := make([]overlaps.Entry, 0, len(assets))
	for _, a := range assets {
		inventory = append(inventory, overlaps.Entry{Asset: a, Tags: tags[a.ID]})
	}
	clusters := overlaps.Detect(inventory, s.Taxonomy, s.CostPolicy)
	job.OverlapsFound = len(clusters)
	job.Log(s.now(), LogInfo, "Found %d overlapping capability groups", len(clusters))

	recs := consolidation.RecommendAll(clusters, byID, tags)
	now := s.now()
	for i := range recs {
		recs[i].ID = uuid.NewString()
		recs[i].CompanyID = job.CompanyID
		recs[i].JobID = job.ID
		recs[i].CreatedAt = now
		job.Log(now, LogSuccess, "%s", recs[i].Rationale)
	}
	if err := s.Recs.Replace(ctx, job.CompanyID, recs); err != nil {
		return nil, fmt.Errorf("save recommendations: %w", apperr.Wrap(apperr.ErrPersistence, "analyses.consolidate", err))
	}
	metrics.AddRecommendations(len(recs))
	return recs, nil
}

func (s *Service) cancelRequested(ctx context.Context, job *Job) bool {
	stored, err := s.Repo.GetByID(ctx, job.ID)
	if err != nil {
		telemetry.Warn("analysis.cancel_check_failed", map[string]any{
			"job_id": job.ID,
			"error":  err,
		})
		return false
	}
	if stored.CancellationRequested {
		job.CancellationRequested = true
	}
	return job.CancellationRequested
}

func (s *Service) cancel(ctx context.Context, job *Job) {
	now := s.now()
	if err := job.transition(StatusCancelled, now); err != nil {
		telemetry.Error("analysis.cancel_failed", map[string]any{"job_id": job.ID, "error": err})
		return
	}
	job.Message = fmt.Sprintf("Analysis cancelled after %d of %d software items", job.ProcessedSoftware, job.TotalSoftware)
	job.Log(now, LogWarning, "Analysis cancelled after %d of %d software items", job.ProcessedSoftware, job.TotalSoftware)
	if s.save(ctx, job) {
		s.finish(job)
	}
}

func (s *Service) fail(ctx context.Context, job *Job, cause error) {
	now := s.now()
	if err := job.transition(StatusFailed, now); err != nil {
		telemetry.Error("analysis.fail_transition", map[string]any{"job_id": job.ID, "error": err})
		return
	}
	job.Message = "Analysis failed"
	job.Log(now, LogError, "Analysis failed: %v", cause)
	telemetry.Error("analysis.failed", map[string]any{
		"company_id": job.CompanyID,
		"job_id":     job.ID,
		"error":      cause,
	})
	if s.save(ctx, job) {
		s.finish(job)
	}
}

func (s *Service) finish(job *Job) {
	metrics.IncJobFinished(string(job.Status))
	if job.StartTime != nil && job.CompletedAt != nil {
		metrics.ObserveJobDurationMs(float64(job.CompletedAt.Sub(*job.StartTime).Milliseconds()))
	}
	telemetry.Info("analysis.finished", map[string]any{
		"company_id":      job.CompanyID,
		"job_id":          job.ID,
		"status":          string(job.Status),
		"processed":       job.ProcessedSoftware,
		"total":           job.TotalSoftware,
		"overlaps":        job.OverlapsFound,
		"recommendations": job.RecommendationsGenerated,
	})
}

// save persists the job and notifies subscribers. It reports false when the stored job was
// already finished elsewhere (for example failed by a stale-job sweep); job then holds the
// stored snapshot and the run must stop. Other write failures are logged and the run goes on
// with its in-memory state.
func (s *Service) save(ctx context.Context, job *Job) bool {
	err := s.Repo.Update(ctx, *job)
	if errors.Is(err, ErrJobFinished) {
		telemetry.Warn("analysis.finished_elsewhere", map[string]any{
			"company_id": job.CompanyID,
			"job_id":     job.ID,
			"status":     string(job.Status),
		})
		if stored, err := s.Repo.GetByID(ctx, job.ID); err == nil {
			*job = stored
			s.notes.publish(stored)
		}
		return false
	}
	if err != nil {
		telemetry.Error("analysis.save_failed", map[string]any{
			"job_id": job.ID,
			"status": string(job.Status),
			"error":  err,
		})
	}
	s.emit(ctx, *job)
	return true
}

func (s *Service) emit(ctx context.Context, job Job) {
	s.notes.publish(job)

	evt := events.JobEvent{
		JobID:             job.ID,
		CompanyID:         job.CompanyID,
		Status:            string(job.Status),
		Progress:          job.Progress,
		TotalSoftware:     job.TotalSoftware,
		ProcessedSoftware: job.ProcessedSoftware,
		OverlapsFound:     job.OverlapsFound,
		Message:           job.Message,
		OccurredAt:        job.UpdatedAt,
		Version:           eventVersion,
	}
	if err := s.Publisher.Publish(ctx, evt); err != nil {
		telemetry.Warn("analysis.publish_failed", map[string]any{
			"job_id": job.ID,
			"error":  err,
		})
	}
}

func releaseLease(ctx context.Context, lease lock.Lease, companyID string) {
	if err := lease.Release(ctx); err != nil && !errors.Is(err, lock.ErrNotHeld) {
		telemetry.Warn("analysis.lock_release_failed", map[string]any{
			"company_id": companyID,
			"error":      err,
		})
	}
}

// classify maps repository and resolver errors onto apperr kinds.
func classify(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound(op, "analysis job not found")
	case errors.Is(err, ErrLiveJobExists):
		return apperr.Conflict(op, "an analysis is already running for this company")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) || errors.Is(err, apperr.ErrNotFound) || errors.Is(err, apperr.ErrValidation) {
		return err
	}
	return apperr.Wrap(apperr.ErrPersistence, op, err)
}
