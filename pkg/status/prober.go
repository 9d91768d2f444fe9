package status

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/farmhand/groundskeeper/pkg/consts"
	"github.com/farmhand/groundskeeper/pkg/parser"
)

type (
	// Prober reports whether the schema object a migration file creates
	// already exists. Anything it cannot tell is reported as not applied.
	Prober interface {
		Probe(ctx context.Context, file string) bool
	}

	// Querier runs probe queries.
	Querier interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	}

	// ProberConfig contains configuration options for creating a SQLProber.
	ProberConfig struct {
		DB Querier

		// BaseProbe detects the original base schema
		BaseProbe string

		// Probes maps a migration filename to its probe query
		Probes map[string]string

		Logger *slog.Logger
	}

	// SQLProber probes with a configured query when one exists for the file
	// and otherwise with a query derived from the first statement of the file
	// that creates a table or adds a column.
	SQLProber struct {
		db        Querier
		baseProbe string
		probes    map[string]string
		logger    *slog.Logger
	}
)

// NewSQLProber creates a SQLProber.
func NewSQLProber(cfg ProberConfig) *SQLProber {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &SQLProber{
		db:        cfg.DB,
		baseProbe: cfg.BaseProbe,
		probes:    cfg.Probes,
		logger:    cfg.Logger,
	}
}

// Probe reports whether file has been applied. file is either the path of a
// migration file or consts.BaseSchemaID for the base schema.
//
// Configured probes count as applied when their first row has a truthy first
// column; a query that returns no row means not applied. Derived probes never
// return rows, so for them success alone means applied.
func (p *SQLProber) Probe(ctx context.Context, file string) bool {
	query, derived, ok := p.queryFor(file)
	if !ok {
		return false
	}

	var (
		applied bool
		err     error
	)
	if derived {
		err = p.exec(ctx, query)
		applied = err == nil
	} else {
		applied, err = p.firstTruthy(ctx, query)
	}

	if err != nil {
		p.logger.Debug("Probe failed", "file", file, "query", query, "error", err)
		return false
	}
	return applied
}

func (p *SQLProber) queryFor(file string) (query string, derived, ok bool) {
	if file == consts.BaseSchemaID {
		return p.baseProbe, false, p.baseProbe != ""
	}

	if query, ok := p.probes[filepath.Base(file)]; ok && query != "" {
		return query, false, true
	}

	contents, err := os.ReadFile(file)
	if err != nil {
		return "", false, false
	}

	target, ok := parser.FirstTarget(string(contents))
	if !ok {
		return "", false, false
	}
	return DeriveQuery(target), true, true
}

func (p *SQLProber) exec(ctx context.Context, query string) error {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	if err := rows.Close(); err != nil {
		return err
	}
	return rows.Err()
}

func (p *SQLProber) firstTruthy(ctx context.Context, query string) (bool, error) {
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return false, rows.Err()
	}

	cols, err := rows.Columns()
	if err != nil {
		return false, err
	}
	if len(cols) == 0 {
		return false, nil
	}

	values := make([]any, len(cols))
	dest := make([]any, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return false, err
	}
	return truthy(values[0]), nil
}

// DeriveQuery builds a query that succeeds only when target exists and never
// returns a row.
func DeriveQuery(target *parser.Target) string {
	if target.Kind == parser.TargetColumn {
		return fmt.Sprintf("SELECT %s FROM %s WHERE 1 = 0", target.Column, target.Table)
	}
	return fmt.Sprintf("SELECT 1 FROM %s WHERE 1 = 0", target.Table)
}

func truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case int64:
		return v != 0
	case int32:
		return v != 0
	case int:
		return v != 0
	case uint64:
		return v != 0
	case uint8:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		return truthyString(string(v))
	case string:
		return truthyString(v)
	default:
		return true
	}
}

func truthyString(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f != 0
	}
	return s != ""
}
