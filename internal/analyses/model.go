package analyses

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an analysis job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Live reports whether the job still occupies its company's single analysis slot.
func (s Status) Live() bool {
	return s == StatusQueued || s == StatusRunning
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal move: queued -> running -> terminal,
// or queued straight to a terminal state.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusQueued:
		return to == StatusRunning || to.Terminal()
	case StatusRunning:
		return to.Terminal()
	default:
		return false
	}
}

// LogType is the closed set of activity log entry kinds.
type LogType string

const (
	LogInfo    LogType = "info"
	LogSuccess LogType = "success"
	LogWarning LogType = "warning"
	LogError   LogType = "error"
)

// MaxActivityLog bounds the stored activity log; the oldest entries are dropped first.
const MaxActivityLog = 500

// LogEntry is one line of a job's activity log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Type      LogType   `json:"type"`
}

// Job is the persisted record of one portfolio analysis run.
type Job struct {
	ID                       string     `json:"id"`
	CompanyID                string     `json:"companyId"`
	Status                   Status     `json:"status"`
	Progress                 int        `json:"progress"`
	TotalSoftware            int        `json:"totalSoftware"`
	ProcessedSoftware        int        `json:"processedSoftware"`
	OverlapsFound            int        `json:"overlapsFound"`
	RecommendationsGenerated int        `json:"recommendationsGenerated"`
	EstimatedTimeRemaining   int64      `json:"estimatedTimeRemaining"` // seconds
	StartTime                *time.Time `json:"startTime,omitempty"`
	CompletedAt              *time.Time `json:"completedAt,omitempty"`
	Message                  string     `json:"message"`
	ActivityLog              []LogEntry `json:"activityLog"`
	CancellationRequested    bool       `json:"cancellationRequested"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy safe to hand to readers.
func (j Job) Clone() Job {
	out := j
	out.ActivityLog = append(make([]LogEntry, 0, len(j.ActivityLog)), j.ActivityLog...)
	if j.StartTime != nil {
		t := *j.StartTime
		out.StartTime = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Log appends an activity entry and trims the log to MaxActivityLog.
func (j *Job) Log(at time.Time, typ LogType, format string, args ...any) {
	j.ActivityLog = append(j.ActivityLog, LogEntry{
		Timestamp: at,
		Message:   fmt.Sprintf(format, args...),
		Type:      typ,
	})
	if over := len(j.ActivityLog) - MaxActivityLog; over > 0 {
		j.ActivityLog = append(j.ActivityLog[:0:0], j.ActivityLog[over:]...)
	}
}

// transition moves the job to a new status or reports an illegal move.
func (j *Job) transition(to Status, at time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("illegal status transition %s -> %s", j.Status, to)
	}
	j.Status = to
	j.UpdatedAt = at
	if to.Terminal() {
		t := at
		j.CompletedAt = &t
		j.EstimatedTimeRemaining = 0
	}
	return nil
}

// progressPercent returns processed/total as a whole percentage.
func progressPercent(processed, total int) int {
	if total <= 0 {
		return 0
	}
	if processed >= total {
		return 100
	}
	return processed * 100 / total
}

// etaSeconds extrapolates the average time per processed item over the remaining items.
func etaSeconds(elapsed time.Duration, processed, total int) int64 {
	if processed <= 0 || processed >= total {
		return 0
	}
	perItem := elapsed / time.Duration(processed)
	remaining := perItem * time.Duration(total-processed)
	return int64((remaining + time.Second - 1) / time.Second)
}
