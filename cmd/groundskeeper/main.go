package main

import (
	"context"
	"os"

	"github.com/farmhand/groundskeeper/pkg/cmd"
	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
)

// NB: These are set by GoReleaser during a build.
var (
	version string
	commit  string
	date    string
)

func main() {
	app := fx.New(
		fx.Supply(
			os.Args,
			fx.Annotate(context.Background(), fx.As(new(context.Context))),
			&cmd.Version{
				Version:   version,
				Commit:    commit,
				Timestamp: date,
			},
		),
		fx.WithLogger(func() fxevent.Logger { return fxevent.NopLogger }),
		config.Module,
		metrics.Module,
		engine.Module,
		cmd.Module,
	)

	app.Run()
}
