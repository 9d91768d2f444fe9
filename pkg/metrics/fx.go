package metrics

import (
	"context"
	"log/slog"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics", fx.Provide(
	func() *prometheus.Registry {
		return prometheus.NewRegistry()
	},
	func(reg *prometheus.Registry) *Collector {
		return New(reg)
	},
	// The /metrics endpoint only runs when metrics.addr is configured.
	func(lc fx.Lifecycle, cfg *config.Config, reg *prometheus.Registry, logger *slog.Logger) *Server {
		if cfg.Metrics.Addr == "" {
			return nil
		}

		srv := NewServer(cfg.Metrics.Addr, reg)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				logger.Info("Serving metrics", "addr", cfg.Metrics.Addr)
				srv.Start()
				return nil
			},
			OnStop: func(ctx context.Context) error {
				return srv.Shutdown(ctx)
			},
		})

		return srv
	},
), fx.Invoke(func(*Server) {}))
