package analyses

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var jobRowColumns = []string{
	"id", "company_id", "status", "progress", "total_software", "processed_software", "overlaps_found",
	"recommendations_generated", "eta_seconds", "message", "activity_log", "cancellation_requested",
	"start_time", "completed_at", "created_at", "updated_at",
}

func newPGMock(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateMapsLiveIndexViolation(t *testing.T) {
	repo, mock := newPGMock(t)
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	job := Job{ID: "job-1", CompanyID: "c1", Status: StatusQueued, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO analysis_jobs").
		WillReturnError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: liveJobIndex}))

	err := repo.Create(context.Background(), job)
	if !errors.Is(err, ErrLiveJobExists) {
		t.Fatalf("expected ErrLiveJobExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateWritesEmptyLogAsArray(t *testing.T) {
	repo, mock := newPGMock(t)
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	job := Job{ID: "job-1", CompanyID: "c1", Status: StatusQueued, Message: "Analysis queued", CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec("INSERT INTO analysis_jobs").
		WithArgs("job-1", "c1", "queued", 0, 0, 0, 0, 0, int64(0), "Analysis queued", "[]", false,
			nil, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesRow(t *testing.T) {
	repo, mock := newPGMock(t)
	created := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)

	rows := sqlmock.NewRows(jobRowColumns).AddRow(
		"job-1", "c1", "running", 40, 5, 2, 0, 0, int64(12), "Processed 2 of 5 software items",
		[]byte(`[{"timestamp":"2026-03-01T10:00:00Z","message":"Analysis queued","type":"info"}]`), true,
		started, nil, created, created,
	)
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").WithArgs("job-1").WillReturnRows(rows)

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != StatusRunning || job.Progress != 40 || job.ProcessedSoftware != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !job.CancellationRequested {
		t.Fatalf("expected cancellation flag")
	}
	if job.StartTime == nil || !job.StartTime.Equal(started) {
		t.Fatalf("expected start time %v, got %v", started, job.StartTime)
	}
	if job.CompletedAt != nil {
		t.Fatalf("expected nil completedAt")
	}
	if len(job.ActivityLog) != 1 || job.ActivityLog[0].Type != LogInfo {
		t.Fatalf("unexpected activity log: %+v", job.ActivityLog)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newPGMock(t)
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoLiveForCompanyNone(t *testing.T) {
	repo, mock := newPGMock(t)
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows(jobRowColumns))

	_, ok, err := repo.LiveForCompany(context.Background(), "c1")
	if err != nil {
		t.Fatalf("LiveForCompany: %v", err)
	}
	if ok {
		t.Fatalf("expected no live job")
	}
}

func TestPGRepoUpdateLeavesCancellationAlone(t *testing.T) {
	repo, mock := newPGMock(t)
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE analysis_jobs\s+SET status = \$2`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").WithArgs("gone").WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), Job{ID: "gone", Status: StatusRunning, UpdatedAt: now})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing row, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoUpdateRefusesTerminalRow(t *testing.T) {
	repo, mock := newPGMock(t)
	now := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE analysis_jobs\s+SET status = \$2(.+)WHERE id = \$1 AND status NOT IN \('completed', 'failed', 'cancelled'\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").WithArgs("job-1").WillReturnRows(
		sqlmock.NewRows(jobRowColumns).AddRow(
			"job-1", "c1", "failed", 40, 5, 2, 0, 0, int64(0), "interrupted", []byte(`[]`), false,
			now, now, now, now,
		),
	)

	err := repo.Update(context.Background(), Job{ID: "job-1", Status: StatusCompleted, UpdatedAt: now})
	if !errors.Is(err, ErrJobFinished) {
		t.Fatalf("expected ErrJobFinished, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoRequestCancelOnlyTouchesLiveJobs(t *testing.T) {
	repo, mock := newPGMock(t)
	created := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE analysis_jobs\s+SET cancellation_requested = TRUE`).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM analysis_jobs").WithArgs("job-1").WillReturnRows(
		sqlmock.NewRows(jobRowColumns).AddRow(
			"job-1", "c1", "completed", 100, 3, 3, 1, 1, int64(0), "done", []byte(`[]`), false,
			created, created, created, created,
		),
	)

	job, err := repo.RequestCancel(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if job.Status != StatusCompleted || job.CancellationRequested {
		t.Fatalf("expected untouched completed job, got %+v", job)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFailStale(t *testing.T) {
	repo, mock := newPGMock(t)
	mock.ExpectExec(`UPDATE analysis_jobs\s+SET status = 'failed'(.+)updated_at <= now\(\) - \$2`).
		WithArgs("interrupted by restart", float64(90)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := repo.FailStale(context.Background(), "interrupted by restart", 90*time.Second)
	if err != nil {
		t.Fatalf("FailStale: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 failed jobs, got %d", n)
	}
}
