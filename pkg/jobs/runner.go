package jobs

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/farmhand/groundskeeper/pkg/dberr"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// ErrUnknownFile is returned by Submit for names absent from the catalog.
	ErrUnknownFile = errors.New("unknown migration file")

	// ErrMissingFile is returned by Submit for catalog members missing on disk.
	ErrMissingFile = errors.New("migration file not found on disk")

	// ErrJobNotFound is returned by Poll for unknown or already delivered jobs.
	ErrJobNotFound = errors.New("job not found")
)

type (
	// FileRunner applies a single catalog file.
	FileRunner interface {
		RunFile(context.Context, *catalog.Catalog, string) orchestrator.MigrationResult
	}

	// DB is what a worker needs from the pool.
	DB interface {
		Ping(context.Context) error
		Reconnect(context.Context) error
	}

	// Config contains configuration options for creating a new Runner.
	Config struct {
		// Registry stores the jobs; it is owned by the caller
		Registry *Registry

		Resolver orchestrator.Resolver
		Files    FileRunner
		DB       DB

		// Clock stamps jobs (clock.New() when nil)
		Clock clock.Clock

		// NewID generates job ids (uuid.NewString when nil)
		NewID func() string

		Logger  *slog.Logger
		Metrics *metrics.Collector
	}

	// Runner executes single migration files in the background.
	//
	// Submit never waits for execution; callers observe progress with Poll.
	// There is no cancellation and no internal timeout: a submitted job runs
	// until it completes or fails.
	Runner struct {
		registry *Registry
		resolver orchestrator.Resolver
		files    FileRunner
		db       DB
		clock    clock.Clock
		newID    func() string
		logger   *slog.Logger
		stats    *metrics.Collector

		wg sync.WaitGroup
	}
)

// NewRunner creates a Runner.
func NewRunner(cfg Config) *Runner {
	if cfg.Registry == nil {
		cfg.Registry = NewRegistry()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Runner{
		registry: cfg.Registry,
		resolver: cfg.Resolver,
		files:    cfg.Files,
		db:       cfg.DB,
		clock:    cfg.Clock,
		newID:    cfg.NewID,
		logger:   cfg.Logger,
		stats:    cfg.Metrics,
	}
}

// Submit validates file against the current catalog and starts applying it in
// the background. It returns the job id without waiting for execution.
//
// Names absent from the catalog are rejected with ErrUnknownFile and catalog
// members missing on disk with ErrMissingFile; no job is created for either.
func (r *Runner) Submit(ctx context.Context, file string) (string, error) {
	cat, ok, err := r.resolver.Resolve(ctx)
	if !ok {
		return "", errors.Wrap(err, "failed to resolve catalog")
	}

	if !cat.Contains(file) {
		return "", errors.Wrapf(ErrUnknownFile, "%s", file)
	}

	path := cat.Path(file)
	if path == "" {
		return "", errors.Wrapf(ErrMissingFile, "%s", file)
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(ErrMissingFile, "%s", file)
	}

	job := Job{
		ID:          r.newID(),
		File:        file,
		Status:      StatusRunning,
		SubmittedAt: r.clock.Now(),
	}
	r.registry.Put(job)
	r.stats.JobStarted()

	r.wg.Add(1)
	go r.work(context.WithoutCancel(ctx), job.ID, cat, file)

	r.logger.Info("Job submitted", "id", job.ID, "file", file)
	return job.ID, nil
}

// Poll returns the current state of a job. Running jobs are left in place;
// a terminal job is removed by the poll that returns it, so a later poll for
// the same id reports ErrJobNotFound.
func (r *Runner) Poll(id string) (Job, error) {
	job, ok := r.registry.Take(id)
	if !ok {
		return Job{}, errors.Wrapf(ErrJobNotFound, "%s", id)
	}
	return job, nil
}

// Wait blocks until every submitted job has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) work(ctx context.Context, id string, cat *catalog.Catalog, file string) {
	defer r.wg.Done()

	result, err := r.execute(ctx, cat, file)

	if rerr := r.db.Reconnect(ctx); rerr != nil {
		r.logger.Warn("Post-job reconnect failed", "id", id, "error", rerr)
	}

	status := StatusCompleted
	if err != nil {
		status = StatusFailed
	}

	finished := r.clock.Now()
	r.registry.Update(id, func(j *Job) {
		j.Status = status
		j.Result = result
		j.FinishedAt = &finished
		if err != nil {
			j.Error = err.Error()
			j.ErrorCode = dberr.Code(err)
		}
	})
	r.stats.JobFinished(string(status))

	r.logger.Info("Job finished", "id", id, "file", file, "status", status)
}

func (r *Runner) execute(ctx context.Context, cat *catalog.Catalog, file string) (*orchestrator.MigrationResult, error) {
	if err := r.db.Ping(ctx); err != nil {
		return nil, errors.WithMessage(err, "database unreachable")
	}

	result := r.files.RunFile(ctx, cat, file)
	if result.Status == orchestrator.StatusError {
		return &result, result.Err
	}
	return &result, nil
}
