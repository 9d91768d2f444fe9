package cmd

import (
	"context"
	"fmt"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/urfave/cli/v3"
)

// reconnect creates the reconnect command. It builds a fresh connection
// pool and validates it, which is mostly useful to check credentials and
// network access.
func reconnect(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:  "reconnect",
		Usage: "Rebuild and validate the database connection pool",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEngine(f)
			if err != nil {
				return err
			}

			if err := e.Reconnect(ctx); err != nil {
				return err
			}

			w := output(cmd)
			if wantJSON(cmd) {
				return printJSON(w, map[string]bool{"reconnected": true})
			}

			fmt.Fprintf(w, "%s Reconnected\n", glyphOK)
			return nil
		},
	}
}
