package engine

import (
	"context"
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/database"
	"github.com/farmhand/groundskeeper/pkg/jobs"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/farmhand/groundskeeper/pkg/status"
	"github.com/pkg/errors"
)

// ErrPollTimeout is returned by AwaitJob when a job is still running after
// the configured number of polls. The job itself keeps running.
var ErrPollTimeout = errors.New("job still running after maximum polls")

type (
	// Config contains configuration options for creating a new Engine.
	Config struct {
		Config *config.Config

		// Clock defaults to clock.New()
		Clock clock.Clock

		// Executable overrides os.Executable when locating packaged migrations
		Executable func() (string, error)

		Logger  *slog.Logger
		Metrics *metrics.Collector
	}

	// Engine is the entry point to the migration operations. It owns the
	// connection pool and the job registry.
	Engine struct {
		cfg        *config.Config
		pool       *database.Pool
		resolver   *catalog.Resolver
		controller *orchestrator.Controller
		runner     *jobs.Runner
		reconciler *status.Reconciler
		clock      clock.Clock
		logger     *slog.Logger
	}
)

// New wires an Engine from cfg. The database is not contacted until the
// first operation that needs it.
func New(cfg Config) (*Engine, error) {
	if cfg.Config == nil {
		cfg.Config = config.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	pool, err := database.Open(database.Config{
		Database: cfg.Config.Database,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database pool")
	}

	resolver := catalog.NewResolver(catalog.Config{
		Dir:         cfg.Config.Migrations.Dir,
		Extensions:  cfg.Config.Migrations.Extensions,
		CatalogFile: cfg.Config.Migrations.CatalogFile,
		TieBreaks:   cfg.Config.Migrations.TieBreaks,
		Executable:  cfg.Executable,
		Logger:      cfg.Logger,
	})

	controller := orchestrator.NewController(orchestrator.Config{
		DB:       pool,
		Resolver: resolver,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})

	runner := jobs.NewRunner(jobs.Config{
		Registry: jobs.NewRegistry(),
		Resolver: resolver,
		Files:    controller,
		DB:       pool,
		Clock:    cfg.Clock,
		Logger:   cfg.Logger,
		Metrics:  cfg.Metrics,
	})

	reconciler := status.NewReconciler(status.Config{
		Resolver: resolver,
		Prober: status.NewSQLProber(status.ProberConfig{
			DB:        pool,
			BaseProbe: cfg.Config.Status.BaseProbe,
			Probes:    cfg.Config.Status.Probes,
			Logger:    cfg.Logger,
		}),
		Logger: cfg.Logger,
	})

	return &Engine{
		cfg:        cfg.Config,
		pool:       pool,
		resolver:   resolver,
		controller: controller,
		runner:     runner,
		reconciler: reconciler,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}, nil
}

// Catalog resolves the ordered migration catalog. When the directory cannot
// be scanned but a persisted catalog exists, the persisted one is returned
// together with the error.
func (e *Engine) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	cat, ok, err := e.resolver.Resolve(ctx)
	if ok {
		return cat, nil
	}
	if len(cat.Files) > 0 {
		e.logger.Warn("Using cached catalog", "error", err)
	}

	return cat, err
}

// CheckReady probes the database and the migrations directory.
func (e *Engine) CheckReady(ctx context.Context) orchestrator.ReadinessReport {
	return e.controller.Checker().CheckReady(ctx)
}

// RunAll applies the whole catalog. See orchestrator.Controller.RunAll.
func (e *Engine) RunAll(ctx context.Context) *orchestrator.RunReport {
	return e.controller.RunAll(ctx)
}

// Submit starts applying file in the background and returns the job id.
func (e *Engine) Submit(ctx context.Context, file string) (string, error) {
	return e.runner.Submit(ctx, file)
}

// Poll returns the state of a job. Finished jobs are returned once.
func (e *Engine) Poll(id string) (jobs.Job, error) {
	return e.runner.Poll(id)
}

// Status reconciles which migrations are applied.
func (e *Engine) Status(ctx context.Context) []status.StatusEntry {
	return e.reconciler.Status(ctx)
}

// Reconnect rebuilds the connection pool.
func (e *Engine) Reconnect(ctx context.Context) error {
	return e.pool.Reconnect(ctx)
}

// AwaitJob polls a job every jobs.poll_interval until it finishes. After
// jobs.max_polls polls it gives up with ErrPollTimeout and the last observed
// state; the job is not cancelled.
func (e *Engine) AwaitJob(ctx context.Context, id string) (jobs.Job, error) {
	ticker := e.clock.Ticker(e.cfg.Jobs.PollInterval)
	defer ticker.Stop()

	var job jobs.Job
	for polls := 1; ; polls++ {
		var err error
		job, err = e.runner.Poll(id)
		if err != nil {
			return job, err
		}
		if job.Terminal() {
			return job, nil
		}

		if polls >= e.cfg.Jobs.MaxPolls {
			break
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-ticker.C:
		}
	}

	return job, errors.Wrapf(ErrPollTimeout, "%s (%d polls)", id, e.cfg.Jobs.MaxPolls)
}

// Close waits for background jobs to finish and closes the pool.
func (e *Engine) Close() error {
	e.runner.Wait()
	return e.pool.Close()
}
