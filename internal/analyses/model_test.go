package analyses

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusCancelled, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},
		{StatusRunning, StatusQueued, false},
		{StatusCompleted, StatusRunning, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCancelled, StatusQueued, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.want, got)
		}
	}
}

func TestTransitionStampsTerminalState(t *testing.T) {
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	job := Job{Status: StatusRunning, EstimatedTimeRemaining: 40}
	if err := job.transition(StatusCompleted, at); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if job.CompletedAt == nil || !job.CompletedAt.Equal(at) {
		t.Fatalf("expected completedAt %v, got %v", at, job.CompletedAt)
	}
	if job.EstimatedTimeRemaining != 0 {
		t.Fatalf("expected eta reset, got %d", job.EstimatedTimeRemaining)
	}
	if err := job.transition(StatusRunning, at); err == nil {
		t.Fatalf("expected completed job to refuse running")
	}
}

func TestLogDropsOldestEntries(t *testing.T) {
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	var job Job
	for i := 0; i < MaxActivityLog+5; i++ {
		job.Log(at, LogInfo, "entry %d", i)
	}
	if len(job.ActivityLog) != MaxActivityLog {
		t.Fatalf("expected %d entries, got %d", MaxActivityLog, len(job.ActivityLog))
	}
	if job.ActivityLog[0].Message != "entry 5" {
		t.Fatalf("expected oldest kept entry to be 'entry 5', got %q", job.ActivityLog[0].Message)
	}
}

func TestCloneIsDeep(t *testing.T) {
	at := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)
	job := Job{StartTime: &at}
	job.Log(at, LogInfo, "first")
	cp := job.Clone()
	cp.ActivityLog[0].Message = "changed"
	*cp.StartTime = at.Add(time.Hour)
	if job.ActivityLog[0].Message != "first" || !job.StartTime.Equal(at) {
		t.Fatalf("clone shares state with original")
	}
}

func TestProgressAndETA(t *testing.T) {
	if got := progressPercent(1, 3); got != 33 {
		t.Fatalf("expected 33, got %d", got)
	}
	if got := progressPercent(3, 3); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := progressPercent(0, 0); got != 0 {
		t.Fatalf("expected 0 for empty portfolio, got %d", got)
	}
	if got := etaSeconds(10*time.Second, 4, 10); got != 15 {
		t.Fatalf("expected 15s, got %d", got)
	}
	if got := etaSeconds(time.Second, 3, 4); got != 1 {
		t.Fatalf("expected partial seconds to round up, got %d", got)
	}
	if got := etaSeconds(time.Second, 0, 4); got != 0 {
		t.Fatalf("expected 0 before the first item, got %d", got)
	}
}
