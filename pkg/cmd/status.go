package cmd

import (
	"context"
	"fmt"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/urfave/cli/v3"
)

// statusCmd creates the status command showing which migrations are applied.
//
// Applied state is inferred by probing for the schema object each file
// creates. Probes come from status.probes in the configuration or are
// derived from the first CREATE TABLE or ALTER TABLE ... ADD COLUMN in the
// file; files without either are reported as pending unless configured.
//
// Example usage:
//
//	groundskeeper status
//	groundskeeper status --json
func statusCmd(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show which migrations are applied",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEngine(f)
			if err != nil {
				return err
			}

			entries := e.Status(ctx)

			w := output(cmd)
			if wantJSON(cmd) {
				return printJSON(w, entries)
			}

			var applied int
			for _, entry := range entries {
				glyph := glyphPending
				if entry.Applied {
					glyph = glyphOK
					applied++
				}
				fmt.Fprintf(w, "  %s %s\n", glyph, entry.Name)
			}

			fmt.Fprintln(w)
			fmt.Fprintf(w, "Applied: %d, pending: %d\n", applied, len(entries)-applied)
			return nil
		},
	}
}
