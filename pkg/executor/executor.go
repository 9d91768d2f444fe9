package executor

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/farmhand/groundskeeper/pkg/dberr"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/farmhand/groundskeeper/pkg/parser"
)

type (
	// Execer defines the database operation required by the executor.
	// *database.Pool and *sql.DB both satisfy it.
	Execer interface {
		ExecContext(context.Context, string, ...any) (sql.Result, error)
	}

	// Executor applies the statements of one migration file.
	//
	// Statements run strictly in file order. A statement failing because the
	// object it creates already exists is recorded as ignored and execution
	// continues; this is what makes re-applying a migration safe without a
	// bookkeeping table. Any other failure stops the file and is returned
	// exactly as the driver reported it.
	//
	//	exec := executor.New(executor.Config{DB: pool})
	//
	//	results, err := exec.Apply(ctx, contents)
	//	if err != nil {
	//		// err is the raw driver error; results hold the statements before it
	//	}
	Executor struct {
		db     Execer
		logger *slog.Logger
		stats  *metrics.Collector
	}

	// Config contains configuration options for creating a new Executor.
	Config struct {
		// DB executes the statements
		DB Execer

		// Logger receives debug output for ignored duplicates (slog.Default when nil)
		Logger *slog.Logger

		// Metrics counts ignored duplicates (optional)
		Metrics *metrics.Collector
	}

	// StatementResult is the outcome of one executed statement.
	StatementResult struct {
		// Index is the zero-based position of the statement in its file
		Index int `json:"index"`

		// SQL is the statement as executed
		SQL string `json:"sql"`

		// Outcome is ok or ignored-duplicate
		Outcome StatementOutcome `json:"outcome"`
	}

	// StatementOutcome represents how a statement was applied.
	StatementOutcome string
)

const (
	// OutcomeOK indicates the statement executed successfully
	OutcomeOK StatementOutcome = "ok"

	// OutcomeIgnoredDuplicate indicates the statement's object already existed
	OutcomeIgnoredDuplicate StatementOutcome = "ignored-duplicate"
)

// New creates a new Executor with the provided configuration.
func New(config Config) *Executor {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		db:     config.DB,
		logger: logger,
		stats:  config.Metrics,
	}
}

// Apply splits contents into statements and executes them in order.
//
// It returns the results of every statement executed so far. On the first
// failure that is not a duplicate-object error, execution stops and the
// driver's error is returned unchanged, so operators see the literal database
// message.
func (e *Executor) Apply(ctx context.Context, contents string) ([]StatementResult, error) {
	stmts, err := parser.Split(contents)
	if err != nil {
		return nil, err
	}

	results := make([]StatementResult, 0, len(stmts))
	for i, stmt := range stmts {
		_, err := e.db.ExecContext(ctx, stmt)
		if err != nil && !dberr.IsDuplicateObject(err) {
			return results, err
		}

		outcome := OutcomeOK
		if err != nil {
			outcome = OutcomeIgnoredDuplicate
			e.stats.DuplicateIgnored()
			e.logger.Debug("Ignoring existing object", "statement", i+1, "error", err)
		}

		results = append(results, StatementResult{Index: i, SQL: stmt, Outcome: outcome})
	}

	return results, nil
}

// Ignored counts the ignored-duplicate outcomes in results.
func Ignored(results []StatementResult) int {
	n := 0
	for _, r := range results {
		if r.Outcome == OutcomeIgnoredDuplicate {
			n++
		}
	}
	return n
}
