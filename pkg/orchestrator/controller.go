package orchestrator

import (
	"context"
	"log/slog"
	"os"

	"github.com/benbjohnson/clock"
	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/farmhand/groundskeeper/pkg/dberr"
	"github.com/farmhand/groundskeeper/pkg/executor"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/pkg/errors"
)

// maxAttempts bounds how often a full run executes the catalog.
const maxAttempts = 2

type (
	// DB is the connection pool as seen by the controller.
	DB interface {
		executor.Execer
		Pinger
		Reconnect(context.Context) error
	}

	// Config contains configuration options for creating a new Controller.
	Config struct {
		DB       DB
		Resolver Resolver

		// Clock stamps reports and times files (clock.New() when nil)
		Clock clock.Clock

		// Logger defaults to slog.Default()
		Logger *slog.Logger

		// Metrics is optional
		Metrics *metrics.Collector
	}

	// Controller sequences full migration runs.
	Controller struct {
		db       DB
		resolver Resolver
		checker  *Checker
		exec     *executor.Executor
		clock    clock.Clock
		logger   *slog.Logger
		stats    *metrics.Collector
	}
)

// NewController creates a Controller.
func NewController(cfg Config) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		db:       cfg.DB,
		resolver: cfg.Resolver,
		checker:  NewChecker(cfg.DB, cfg.Resolver),
		exec: executor.New(executor.Config{
			DB:      cfg.DB,
			Logger:  cfg.Logger,
			Metrics: cfg.Metrics,
		}),
		clock:  cfg.Clock,
		logger: cfg.Logger,
		stats:  cfg.Metrics,
	}
}

// Checker returns the readiness checker used for preflight.
func (c *Controller) Checker() *Checker {
	return c.checker
}

// RunAll applies the whole catalog and reports the outcome. It never returns
// an error; failures are described by the report.
//
// The run moves through these stages in order:
//  1. Preflight. When the database probe fails with a connection error the
//     pool is rebuilt and readiness checked once more. A run that is still
//     not ready stops here without attempting any file.
//  2. Pre-run reconnect, so files never run on a pool that sat idle.
//  3. Sequential execution in catalog order. Files absent from disk are
//     skipped; the first failing file halts the run.
//  4. One more attempt from the first file when the failure was a
//     connection error. Statement errors are never retried.
//  5. Post-run reconnect, whatever the outcome. Its failure is only logged.
func (c *Controller) RunAll(ctx context.Context) *RunReport {
	report := &RunReport{StartedAt: c.clock.Now(), Results: []MigrationResult{}}
	defer func() {
		report.FinishedAt = c.clock.Now()
		c.stats.RunFinished(report.OK, report.FinishedAt.Sub(report.StartedAt))
	}()

	ready := c.checker.CheckReady(ctx)
	if !ready.Ready && ready.Kind == dberr.KindConnection {
		c.logger.Warn("Database unreachable, reconnecting before preflight retry", "error", ready.Error)
		if err := c.db.Reconnect(ctx); err != nil {
			c.logger.Warn("Reconnect failed", "error", err)
		}
		ready = c.checker.CheckReady(ctx)
	}

	if !ready.Ready {
		report.Message = ready.Error
		if ready.Kind == dberr.KindConnection {
			report.ReconnectHint = ReconnectHint
		}
		return report
	}

	if err := c.db.Reconnect(ctx); err != nil {
		report.Message = "pre-run reconnect failed: " + err.Error()
		report.ReconnectHint = ReconnectHint
		return report
	}

	cat, ok, err := c.resolver.Resolve(ctx)
	if !ok {
		report.Message = "migrations unavailable: " + err.Error()
		c.postRunReconnect(ctx)
		return report
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		report.Attempts = attempt
		report.Results = c.runCatalog(ctx, cat)
		report.Message = ""
		report.ReconnectHint = ""

		failed := report.Failed()
		if failed == nil {
			report.OK = true
			break
		}

		report.Message = failed.Message
		if !dberr.IsConnection(failed.Err) {
			break
		}

		report.ReconnectHint = ReconnectHint
		if attempt == maxAttempts {
			break
		}

		c.logger.Warn("Run failed with a connection error, retrying",
			"file", failed.File,
			"attempt", attempt,
			"error", failed.Message,
		)
		if err := c.db.Reconnect(ctx); err != nil {
			c.logger.Warn("Reconnect failed, not retrying", "error", err)
			break
		}
	}

	c.postRunReconnect(ctx)
	return report
}

// RunFile applies one catalog file. A file listed in the catalog but absent
// from disk is reported as skipped.
func (c *Controller) RunFile(ctx context.Context, cat *catalog.Catalog, name string) MigrationResult {
	result := c.runFile(ctx, cat, name)
	c.stats.FileFinished(string(result.Status))
	return result
}

func (c *Controller) runCatalog(ctx context.Context, cat *catalog.Catalog) []MigrationResult {
	results := make([]MigrationResult, 0, len(cat.Files))
	for _, f := range cat.Files {
		result := c.RunFile(ctx, cat, f.Name)
		results = append(results, result)

		c.logger.Info("Migration finished",
			"file", result.File,
			"status", result.Status,
			"statements", result.Statements,
			"ignored", result.Ignored,
		)

		if result.Status == StatusError {
			break
		}
	}

	return results
}

func (c *Controller) runFile(ctx context.Context, cat *catalog.Catalog, name string) MigrationResult {
	start := c.clock.Now()
	result := MigrationResult{File: name}

	path := cat.Path(name)
	if path == "" {
		result.Status = StatusSkipped
		result.Message = "migrations directory unavailable"
		return result
	}

	contents, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		result.Status = StatusSkipped
		result.Message = "file not found on disk"
		return result
	}
	if err != nil {
		err = errors.Wrapf(err, "failed to read migration: %s", path)
		result.Status = StatusError
		result.Message = err.Error()
		result.Err = err
		return result
	}

	stmts, err := c.exec.Apply(ctx, string(contents))
	result.Statements = len(stmts)
	result.Ignored = executor.Ignored(stmts)
	result.Duration = c.clock.Since(start)

	if err != nil {
		result.Status = StatusError
		result.Message = err.Error()
		result.Err = err
		return result
	}

	result.Status = StatusOK
	return result
}

func (c *Controller) postRunReconnect(ctx context.Context) {
	if err := c.db.Reconnect(ctx); err != nil {
		c.logger.Warn("Post-run reconnect failed", "error", err)
	}
}
