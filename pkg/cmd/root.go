package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/consts"
	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/urfave/cli/v3"
	"go.uber.org/fx"
)

type (
	Params struct {
		fx.In

		Args       []string
		Commands   []*cli.Command `group:"commands"`
		Ctx        context.Context
		Factory    *engine.Factory
		Lifecycle  fx.Lifecycle
		Shutdowner fx.Shutdowner
		Version    *Version
	}

	Version struct {
		Version   string
		Commit    string
		Timestamp string
	}
)

// Run registers the groundskeeper CLI with the application lifecycle. The
// command line is executed once the app has started, after which the app
// shuts down with exit code 1 if the command failed.
//
// Global flags override the configuration file:
//   - --config, -c: configuration file ($GROUNDSKEEPER_CONFIG)
//   - --dsn: connection string ($GROUNDSKEEPER_DSN)
//   - --driver: database/sql driver ($GROUNDSKEEPER_DRIVER)
//   - --migrations-dir, -m: explicit migrations directory ($GROUNDSKEEPER_MIGRATIONS_DIR)
//   - --json: print results as JSON
func Run(p Params) {
	cli.VersionPrinter = func(cmd *cli.Command) {
		fmt.Fprintln(cmd.Writer, "Version:", p.Version.Version)
		fmt.Fprintln(cmd.Writer, "Commit:", p.Version.Commit)
		fmt.Fprintln(cmd.Writer, "Date:", p.Version.Timestamp)
	}

	app := newApp(p.Version.Version, p.Factory, p.Commands)

	p.Lifecycle.Append(fx.StartHook(func() {
		if err := app.Run(p.Ctx, p.Args); err != nil {
			slog.Error("Error running command", "err", err)
			_ = p.Shutdowner.Shutdown(fx.ExitCode(1))
			return
		}

		_ = p.Shutdowner.Shutdown(fx.ExitCode(0))
	}))
}

func newApp(version string, factory *engine.Factory, commands []*cli.Command) *cli.Command {
	return &cli.Command{
		Name:  "groundskeeper",
		Usage: "Apply and reconcile versioned SQL migrations",
		Description: `groundskeeper discovers numbered migration files, applies them in order
against a relational database and reports which schema objects exist.

Migrations are re-applied idempotently: statements failing because their
object already exists are treated as applied. There is no ledger table.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "the groundskeeper config file",
				Sources: cli.EnvVars(consts.EnvConfig),
				Value:   consts.DefaultConfigFile,
			},
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "database connection string",
				Sources: cli.EnvVars(consts.EnvDSN),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "driver",
				Usage:   "database driver (postgres, mysql, sqlite3, clickhouse)",
				Sources: cli.EnvVars(consts.EnvDriver),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.StringFlag{
				Name:    "migrations-dir",
				Aliases: []string{"m"},
				Usage:   "explicit migrations directory",
				Sources: cli.EnvVars(consts.EnvMigrationsDir),
				Config:  cli.StringConfig{TrimSpace: true},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print results as JSON",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			return ctx, applyFlags(cmd, factory.Config())
		},
		Commands: commands,
	}
}

// applyFlags overrides cfg in place with the global flags that were given.
// An explicitly named config file replaces cfg entirely before the other
// flags are applied.
func applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("config") {
		loaded, err := config.LoadConfigFile(cmd.String("config"))
		if err != nil {
			return err
		}
		*cfg = *loaded
	}

	if cmd.IsSet("dsn") {
		cfg.Database.DSN = cmd.String("dsn")
	}
	if cmd.IsSet("driver") {
		cfg.Database.Driver = cmd.String("driver")
	}
	if cmd.IsSet("migrations-dir") {
		cfg.Migrations.Dir = cmd.String("migrations-dir")
	}

	return nil
}
