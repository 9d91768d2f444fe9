package cmd

import (
	"context"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

var errNotReady = errors.New("not ready")

// ready creates the ready command. It probes the database with a trivial
// query and resolves the migrations directory without changing anything,
// exiting non-zero when either probe fails.
func ready(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:  "ready",
		Usage: "Check that the database and the migrations are reachable",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEngine(f)
			if err != nil {
				return err
			}

			report := e.CheckReady(ctx)

			w := output(cmd)
			if wantJSON(cmd) {
				if err := printJSON(w, report); err != nil {
					return err
				}
			} else {
				printReadiness(w, report)
			}

			if !report.Ready {
				return errNotReady
			}
			return nil
		},
	}
}
