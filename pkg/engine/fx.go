package engine

import (
	"log/slog"
	"sync"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("engine", fx.Provide(
	// Engines opened through the factory are closed when the app stops.
	func(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger, m *metrics.Collector) *Factory {
		f := NewFactory(cfg, logger, m)
		lc.Append(fx.StopHook(f.Close))
		return f
	},
))

// Factory opens engines on demand. Commands apply their flags to the shared
// configuration before calling Open.
type Factory struct {
	config  *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector

	mu      sync.Mutex
	engines []*Engine
}

// NewFactory creates a Factory. The logger and collector may be nil.
func NewFactory(cfg *config.Config, logger *slog.Logger, m *metrics.Collector) *Factory {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Factory{
		config:  cfg,
		logger:  logger,
		metrics: m,
	}
}

// Config returns the configuration Open uses.
func (f *Factory) Config() *config.Config {
	return f.config
}

// Open creates an Engine from the shared configuration.
func (f *Factory) Open() (*Engine, error) {
	return f.OpenWith(f.config)
}

// OpenWith creates an Engine from cfg instead of the shared configuration.
func (f *Factory) OpenWith(cfg *config.Config) (*Engine, error) {
	e, err := New(Config{
		Config:  cfg,
		Logger:  f.logger,
		Metrics: f.metrics,
	})
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.engines = append(f.engines, e)
	f.mu.Unlock()
	return e, nil
}

// Close closes every engine opened so far and returns the first error.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var first error
	for _, e := range f.engines {
		if err := e.Close(); err != nil && first == nil {
			first = err
		}
	}
	f.engines = nil
	return first
}
