package cmd

import (
	"context"
	"fmt"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/urfave/cli/v3"
)

// catalogCmd creates the catalog command listing migrations in the order they
// are applied.
//
// Files are ordered by their numeric prefix; files sharing a prefix follow
// the migrations.tie_breaks list from the configuration. Resolving the
// catalog also rewrites the catalog file, which later serves as a fallback
// when the migrations directory cannot be read.
//
// Example usage:
//
//	groundskeeper catalog
//	groundskeeper --migrations-dir ./db/migrations catalog --json
func catalogCmd(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "List migration files in application order",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEngine(f)
			if err != nil {
				return err
			}

			cat, err := e.Catalog(ctx)
			if err != nil && len(cat.Files) == 0 {
				return err
			}

			w := output(cmd)
			if wantJSON(cmd) {
				return printJSON(w, cat)
			}

			if err != nil {
				fmt.Fprintf(w, "%s %v\n", glyphWarning, err)
			} else {
				fmt.Fprintf(w, "Migrations directory: %s\n", cat.Dir)
			}

			for _, file := range cat.Files {
				fmt.Fprintf(w, "  %s\n", file.Name)
			}
			fmt.Fprintf(w, "%d migrations\n", len(cat.Files))
			return nil
		},
	}
}
