package engine_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/farmhand/groundskeeper/pkg/engine"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func TestFactory(t *testing.T) {
	f := newFixture(t)

	var factory *engine.Factory
	app := fxtest.New(t,
		fx.Supply(f.cfg, slog.Default(), metrics.New(prometheus.NewRegistry())),
		engine.Module,
		fx.Populate(&factory),
	)
	app.RequireStart()

	require.Same(t, f.cfg, factory.Config())

	e, err := factory.Open()
	require.NoError(t, err)
	require.True(t, e.CheckReady(context.Background()).Ready)

	app.RequireStop()
	require.NoError(t, factory.Close())
}

func TestFactoryOpenWith(t *testing.T) {
	f := newFixture(t)
	factory := engine.NewFactory(nil, nil, nil)

	e, err := factory.OpenWith(f.cfg)
	require.NoError(t, err)
	require.True(t, e.CheckReady(context.Background()).Ready)
	require.NoError(t, factory.Close())

	// a closed engine has no pool to query
	require.False(t, e.CheckReady(context.Background()).DBReachable)
}
