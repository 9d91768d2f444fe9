package jobs

import (
	"time"

	"github.com/farmhand/groundskeeper/pkg/orchestrator"
)

type (
	// Status represents the lifecycle state of a Job.
	Status string

	// Job is a single migration file executing in the background.
	Job struct {
		ID     string `json:"id"`
		File   string `json:"file"`
		Status Status `json:"status"`

		// Result is set once the file was attempted
		Result *orchestrator.MigrationResult `json:"result,omitempty"`

		// Error is the raw error text of a failed job
		Error string `json:"error,omitempty"`

		// ErrorCode is the driver's error code when one was reported
		ErrorCode string `json:"errorCode,omitempty"`

		SubmittedAt time.Time  `json:"submittedAt"`
		FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	}
)

const (
	// StatusRunning indicates the job has not finished yet
	StatusRunning Status = "running"

	// StatusCompleted indicates the file was applied
	StatusCompleted Status = "completed"

	// StatusFailed indicates the job stopped on an error
	StatusFailed Status = "failed"
)

// Terminal reports whether the job has finished.
func (j Job) Terminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusFailed
}
