package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/database"
	"github.com/farmhand/groundskeeper/pkg/docker"
	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

var errNotIdempotent = errors.New("second run was not clean")

// devReport is the JSON output of the dev command.
type devReport struct {
	Driver string                  `json:"driver"`
	First  *orchestrator.RunReport `json:"first"`
	Second *orchestrator.RunReport `json:"second,omitempty"`
}

// dev creates the dev command, an idempotency smoke test.
//
// It starts a throwaway database container, applies the catalog, applies it
// again and fails unless the second run succeeds without errors. The
// container is removed afterwards.
//
// Example usage:
//
//	groundskeeper dev
//	groundskeeper dev --engine clickhouse --image-version 25.7
func dev(f *engine.Factory) *cli.Command {
	return &cli.Command{
		Name:  "dev",
		Usage: "Apply the catalog twice against a disposable database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "engine",
				Usage: "container database (postgres or clickhouse)",
				Value: database.DriverPostgres,
			},
			&cli.StringFlag{
				Name:  "image-version",
				Usage: "image tag of the database container",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			container := docker.New(docker.Options{
				Driver:  cmd.String("engine"),
				Version: cmd.String("image-version"),
			})

			slog.Info("Starting database container", "engine", container.Driver())
			if err := container.Start(ctx); err != nil {
				return err
			}
			defer func() {
				if err := container.Stop(context.WithoutCancel(ctx)); err != nil {
					slog.Warn("Failed to stop container", "error", err)
				}
			}()

			dsn, err := container.DSN()
			if err != nil {
				return err
			}

			cfg := *f.Config()
			cfg.Database.Driver = container.Driver()
			cfg.Database.DSN = dsn
			cfg.Database.TLS = config.TLS{}

			e, err := f.OpenWith(&cfg)
			if err != nil {
				return errors.Wrap(err, "failed to open engine")
			}
			defer func() { _ = e.Close() }()

			return runTwice(ctx, cmd, e, container.Driver())
		},
	}
}

func runTwice(ctx context.Context, cmd *cli.Command, e *engine.Engine, driver string) error {
	w := output(cmd)
	report := devReport{Driver: driver}

	report.First = e.RunAll(ctx)
	if report.First.OK {
		report.Second = e.RunAll(ctx)
	}

	if wantJSON(cmd) {
		if err := printJSON(w, report); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(w, "First run:")
		printRunReport(w, report.First)
		if report.Second != nil {
			fmt.Fprintln(w)
			fmt.Fprintln(w, "Second run:")
			printRunReport(w, report.Second)
		}
	}

	if !report.First.OK {
		return errRunFailed
	}
	if !report.Second.OK {
		return errNotIdempotent
	}
	return nil
}
