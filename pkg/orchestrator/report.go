package orchestrator

import (
	"time"

	"github.com/farmhand/groundskeeper/pkg/dberr"
)

// ReconnectHint is attached to reports whose failure looks connection related.
const ReconnectHint = "the database connection looks stale or unreachable; reconnect and retry"

type (
	// MigrationStatus represents the outcome of one migration file.
	MigrationStatus string

	// MigrationResult is the outcome of applying one catalog file.
	MigrationResult struct {
		// File is the catalog file name
		File string `json:"file"`

		// Status is ok, skipped or error
		Status MigrationStatus `json:"status"`

		// Message is the raw error text for error results, or why a file was skipped
		Message string `json:"message,omitempty"`

		// Statements is the number of statements executed
		Statements int `json:"statements"`

		// Ignored is how many of those hit an existing object
		Ignored int `json:"ignored"`

		// Duration is how long the file took
		Duration time.Duration `json:"duration"`

		// Err is the error behind an error result, exactly as the driver returned it
		Err error `json:"-"`
	}

	// RunReport is the outcome of a full run.
	RunReport struct {
		OK            bool              `json:"ok"`
		Results       []MigrationResult `json:"results"`
		Message       string            `json:"message,omitempty"`
		ReconnectHint string            `json:"reconnectHint,omitempty"`

		// Attempts is how many times the catalog was executed (0 when the
		// run never got past preflight)
		Attempts int `json:"attempts"`

		StartedAt  time.Time `json:"startedAt"`
		FinishedAt time.Time `json:"finishedAt"`
	}

	// ReadinessReport says whether a run could start right now.
	ReadinessReport struct {
		Ready            bool   `json:"ready"`
		DBReachable      bool   `json:"dbReachable"`
		CatalogAvailable bool   `json:"catalogAvailable"`
		Error            string `json:"error,omitempty"`

		// Kind classifies the database probe failure (KindNone when it succeeded)
		Kind dberr.Kind `json:"-"`
	}
)

const (
	// StatusOK indicates every statement of the file was applied or already present
	StatusOK MigrationStatus = "ok"

	// StatusSkipped indicates the file is in the catalog but absent from disk
	StatusSkipped MigrationStatus = "skipped"

	// StatusError indicates a statement failed; a full run halts here
	StatusError MigrationStatus = "error"
)

// Failed returns the first error result, if any.
func (r *RunReport) Failed() *MigrationResult {
	for i := range r.Results {
		if r.Results[i].Status == StatusError {
			return &r.Results[i]
		}
	}
	return nil
}
