package model

import "time"

type PendingJobStatus string

const (
	PendingJobQueued    PendingJobStatus = "queued"
	PendingJobRunning   PendingJobStatus = "running"
	PendingJobSucceeded PendingJobStatus = "succeeded"
	PendingJobFailed    PendingJobStatus = "failed"
)

// PendingJob tracks a submitted job of a poll-based provider.
// Only the poll loop that created it mutates it.
type PendingJob struct {
	ID        string
	Status    PendingJobStatus
	Output    []string
	Error     string
	CreatedAt time.Time
}

func (j *PendingJob) Terminal() bool {
	return j.Status == PendingJobSucceeded || j.Status == PendingJobFailed
}
