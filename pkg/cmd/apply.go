package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/farmhand/groundskeeper/pkg/jobs"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

var errJobFailed = errors.New("migration job failed")

// apply creates the apply command which runs one catalog file as a
// background job and polls it until it finishes.
//
// Polling gives up after jobs.max_polls polls of jobs.poll_interval each. The
// job is not cancelled when that happens; the process waits for it before
// exiting.
func apply(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:      "apply",
		Usage:     "Apply a single migration file",
		ArgsUsage: "<file>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			file := cmd.Args().First()
			if file == "" {
				return errors.New("missing migration file argument")
			}

			e, err := openEngine(f)
			if err != nil {
				return err
			}

			id, err := e.Submit(ctx, file)
			if err != nil {
				return err
			}

			w := output(cmd)
			if !wantJSON(cmd) {
				fmt.Fprintf(w, "Submitted job %s for %s\n", id, file)
			}

			job, err := e.AwaitJob(ctx, id)
			if errors.Is(err, engine.ErrPollTimeout) && !wantJSON(cmd) {
				fmt.Fprintf(w, "%s %s is still running; waiting for it to finish before exiting\n", glyphWarning, file)
			}
			if err != nil {
				return err
			}

			if wantJSON(cmd) {
				if err := printJSON(w, job); err != nil {
					return err
				}
			} else {
				printJob(w, job)
			}

			if job.Status == jobs.StatusFailed {
				return errJobFailed
			}
			return nil
		},
	}
}

func printJob(w io.Writer, job jobs.Job) {
	if job.Result != nil {
		printResult(w, *job.Result)
	}

	if job.Status != jobs.StatusFailed {
		fmt.Fprintf(w, "%s Job %s completed\n", glyphOK, job.ID)
		return
	}

	fmt.Fprintf(w, "%s Job %s failed\n", glyphFailed, job.ID)
	if job.Result == nil {
		fmt.Fprintf(w, "   %s\n", job.Error)
	}
	if job.ErrorCode != "" {
		fmt.Fprintf(w, "   error code: %s\n", job.ErrorCode)
	}
}
