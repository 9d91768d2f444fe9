// Package jobs applies single migration files in the background.
//
// A Runner validates the file against the current catalog, records a running
// Job in its Registry and returns the job id immediately. Callers observe the
// job with Poll; a finished job is handed out exactly once and then forgotten:
//
//	runner := jobs.NewRunner(jobs.Config{
//		Resolver: resolver,
//		Files:    controller,
//		DB:       pool,
//	})
//
//	id, err := runner.Submit(ctx, "006_add_crop_yield.sql")
//	...
//	job, err := runner.Poll(id)
//
// Jobs live in memory only and are lost when the process exits.
package jobs
