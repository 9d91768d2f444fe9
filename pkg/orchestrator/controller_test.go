package orchestrator_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/database"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyDB wraps a real SQLite pool and injects connection failures.
type flakyDB struct {
	*database.Pool

	mu              sync.Mutex
	down            bool
	healOnReconnect bool
	reconnectErr    error
	failures        map[string]int
	reconnects      int
}

func (f *flakyDB) Ping(ctx context.Context) error {
	if f.isDown() {
		return driver.ErrBadConn
	}
	return f.Pool.Ping(ctx)
}

func (f *flakyDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.isDown() || f.injectFailure(query) {
		return nil, driver.ErrBadConn
	}
	return f.Pool.ExecContext(ctx, query, args...)
}

func (f *flakyDB) Reconnect(ctx context.Context) error {
	f.mu.Lock()
	f.reconnects++
	switch {
	case f.reconnectErr != nil:
		defer f.mu.Unlock()
		return f.reconnectErr
	case f.down && !f.healOnReconnect:
		f.mu.Unlock()
		return driver.ErrBadConn
	}
	f.down = false
	f.mu.Unlock()

	return f.Pool.Reconnect(ctx)
}

func (f *flakyDB) isDown() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func (f *flakyDB) injectFailure(query string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for sub, n := range f.failures {
		if n != 0 && strings.Contains(query, sub) {
			f.failures[sub] = n - 1
			return true
		}
	}
	return false
}

func (f *flakyDB) reconnectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reconnects
}

type harness struct {
	dir        string
	db         *flakyDB
	collector  *metrics.Collector
	clock      *clock.Mock
	controller *orchestrator.Controller
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()

	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, contents := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
	}

	pool, err := database.Open(database.Config{
		Database: config.Database{Driver: database.DriverSQLite, DSN: filepath.Join(root, "farm.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })

	db := &flakyDB{Pool: pool, failures: map[string]int{}}
	resolver := catalog.NewResolver(catalog.Config{
		Dir:         dir,
		ProjectDir:  filepath.Join(root, "missing"),
		CatalogFile: filepath.Join(root, "migrations.order"),
		Executable:  func() (string, error) { return "", errors.New("none") },
	})

	h := &harness{
		dir:       dir,
		db:        db,
		collector: metrics.New(prometheus.NewRegistry()),
		clock:     clock.NewMock(),
	}
	h.controller = orchestrator.NewController(orchestrator.Config{
		DB:       db,
		Resolver: resolver,
		Clock:    h.clock,
		Metrics:  h.collector,
	})

	return h
}

func (h *harness) tableExists(t *testing.T, table string) bool {
	t.Helper()

	var name string
	err := h.db.DB().QueryRowContext(context.Background(),
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return false
	}
	require.NoError(t, err)
	return true
}

func files(results []orchestrator.MigrationResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.File + ":" + string(r.Status)
	}
	return out
}

var farmSchema = map[string]string{
	"001_create_farms.sql": `-- farms own everything else
CREATE TABLE farms (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL
);

CREATE UNIQUE INDEX idx_farms_name ON farms (name);
`,
	"002_create_crops.sql": `CREATE TABLE crops (
    id INTEGER PRIMARY KEY,
    farm_id INTEGER NOT NULL REFERENCES farms (id),
    name TEXT NOT NULL
);
`,
	"003_add_sensor_battery.sql": `CREATE TABLE sensors (id INTEGER PRIMARY KEY);
ALTER TABLE sensors ADD COLUMN battery_level INTEGER DEFAULT 100;
`,
}

func TestRunAllIdempotent(t *testing.T) {
	h := newHarness(t, farmSchema)
	ctx := context.Background()
	want := []string{"001_create_farms.sql:ok", "002_create_crops.sql:ok", "003_add_sensor_battery.sql:ok"}

	first := h.controller.RunAll(ctx)
	require.True(t, first.OK, first.Message)
	require.Equal(t, want, files(first.Results))
	require.Equal(t, 1, first.Attempts)
	require.Empty(t, first.ReconnectHint)
	require.Equal(t, h.clock.Now(), first.StartedAt)
	for _, r := range first.Results {
		assert.Zero(t, r.Ignored)
		assert.Positive(t, r.Statements)
	}

	second := h.controller.RunAll(ctx)
	require.True(t, second.OK, second.Message)
	require.Equal(t, want, files(second.Results))
	for _, r := range second.Results {
		assert.Equal(t, r.Statements, r.Ignored, r.File)
	}

	// pre-run and post-run reconnect for each run
	require.Equal(t, 4, h.db.reconnectCount())
	assert.InDelta(t, 2, testutil.ToFloat64(h.collector.RunsTotal.WithLabelValues("success")), 0)
	assert.InDelta(t, 6, testutil.ToFloat64(h.collector.FilesTotal.WithLabelValues("ok")), 0)
}

func TestRunAllFailsFastWhenDatabaseIsDown(t *testing.T) {
	h := newHarness(t, farmSchema)
	h.db.down = true

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Empty(t, report.Results)
	require.Zero(t, report.Attempts)
	require.Contains(t, report.Message, "database unreachable")
	require.Equal(t, orchestrator.ReconnectHint, report.ReconnectHint)

	// one reconnect between the two preflight checks, nothing after
	require.Equal(t, 1, h.db.reconnectCount())
	require.False(t, h.tableExists(t, "farms"))
	assert.InDelta(t, 1, testutil.ToFloat64(h.collector.RunsTotal.WithLabelValues("failure")), 0)
}

func TestRunAllRecoversStaleConnectionDuringPreflight(t *testing.T) {
	h := newHarness(t, farmSchema)
	h.db.down = true
	h.db.healOnReconnect = true

	report := h.controller.RunAll(context.Background())
	require.True(t, report.OK, report.Message)
	require.Len(t, report.Results, 3)
	require.Equal(t, 3, h.db.reconnectCount())
}

func TestRunAllFailsFastWhenMigrationsAreMissing(t *testing.T) {
	h := newHarness(t, farmSchema)
	require.NoError(t, os.RemoveAll(h.dir))

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Empty(t, report.Results)
	require.Contains(t, report.Message, "migrations unavailable")
	require.Empty(t, report.ReconnectHint)
	require.Zero(t, h.db.reconnectCount())
}

func TestRunAllPreRunReconnectFailure(t *testing.T) {
	h := newHarness(t, farmSchema)
	h.db.reconnectErr = errors.New("dial tcp 10.0.0.7:5432: connect: connection refused")

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Empty(t, report.Results)
	require.Contains(t, report.Message, "pre-run reconnect failed: dial tcp")
	require.Equal(t, orchestrator.ReconnectHint, report.ReconnectHint)
}

func TestRunAllHaltsOnFirstError(t *testing.T) {
	h := newHarness(t, map[string]string{
		"001_create_farms.sql":  "CREATE TABLE farms (id INTEGER PRIMARY KEY);\n",
		"002_seed_robots.sql":   "INSERT INTO robots (id) VALUES (1);\n",
		"003_create_robots.sql": "CREATE TABLE robots (id INTEGER PRIMARY KEY);\n",
	})

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Equal(t, []string{"001_create_farms.sql:ok", "002_seed_robots.sql:error"}, files(report.Results))
	require.Equal(t, "no such table: robots", report.Message)
	require.Equal(t, report.Message, report.Results[1].Message)
	require.Empty(t, report.ReconnectHint)
	require.Equal(t, 1, report.Attempts)

	require.False(t, h.tableExists(t, "robots"))

	// pre-run and post-run only: statement errors are never retried
	require.Equal(t, 2, h.db.reconnectCount())
}

func TestRunAllRetriesConnectionFailureOnce(t *testing.T) {
	h := newHarness(t, farmSchema)
	h.db.failures["CREATE TABLE crops"] = 1

	report := h.controller.RunAll(context.Background())
	require.True(t, report.OK, report.Message)
	require.Equal(t, 2, report.Attempts)
	require.Empty(t, report.ReconnectHint)
	require.Len(t, report.Results, 3)

	// the second attempt started over, finding farms already in place
	require.Equal(t, report.Results[0].Statements, report.Results[0].Ignored)

	// pre-run, retry and post-run
	require.Equal(t, 3, h.db.reconnectCount())
}

func TestRunAllGivesUpAfterSecondConnectionFailure(t *testing.T) {
	h := newHarness(t, farmSchema)
	h.db.failures["CREATE TABLE crops"] = -1

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Equal(t, 2, report.Attempts)
	require.Equal(t, []string{"001_create_farms.sql:ok", "002_create_crops.sql:error"}, files(report.Results))
	require.Equal(t, driver.ErrBadConn.Error(), report.Message)
	require.Equal(t, orchestrator.ReconnectHint, report.ReconnectHint)
	require.Equal(t, 3, h.db.reconnectCount())
}

func TestRunAllClearsHintWhenRetryFailsOnStatement(t *testing.T) {
	h := newHarness(t, map[string]string{
		"001_create_farms.sql":  farmSchema["001_create_farms.sql"],
		"002_create_crops.sql":  farmSchema["002_create_crops.sql"],
		"003_create_broken.sql": "CREATE TABLE (;\n",
	})
	h.db.failures["CREATE TABLE crops"] = 1

	report := h.controller.RunAll(context.Background())
	require.False(t, report.OK)
	require.Equal(t, 2, report.Attempts)
	require.Equal(t, []string{
		"001_create_farms.sql:ok",
		"002_create_crops.sql:ok",
		"003_create_broken.sql:error",
	}, files(report.Results))
	require.Contains(t, report.Message, "syntax error")
	require.Empty(t, report.ReconnectHint)
}

type staticResolver struct {
	cat *catalog.Catalog
}

func (r staticResolver) Resolve(context.Context) (*catalog.Catalog, bool, error) {
	return r.cat, true, nil
}

func TestRunAllSkipsFilesMissingOnDisk(t *testing.T) {
	h := newHarness(t, farmSchema)

	controller := orchestrator.NewController(orchestrator.Config{
		DB: h.db,
		Resolver: staticResolver{cat: &catalog.Catalog{
			Dir: h.dir,
			Files: []catalog.MigrationFile{
				{Name: "001_create_farms.sql", Sequence: 1},
				{Name: "002_gone.sql", Sequence: 2},
				{Name: "002_create_crops.sql", Sequence: 2},
			},
		}},
	})

	report := controller.RunAll(context.Background())
	require.True(t, report.OK, report.Message)
	require.Equal(t, []string{
		"001_create_farms.sql:ok",
		"002_gone.sql:skipped",
		"002_create_crops.sql:ok",
	}, files(report.Results))
	require.Equal(t, "file not found on disk", report.Results[1].Message)
}

func TestRunFile(t *testing.T) {
	h := newHarness(t, farmSchema)
	ctx := context.Background()

	t.Run("applies the file", func(t *testing.T) {
		cat := &catalog.Catalog{Dir: h.dir}
		result := h.controller.RunFile(ctx, cat, "001_create_farms.sql")
		require.Equal(t, orchestrator.StatusOK, result.Status)
		require.Equal(t, 2, result.Statements)
		require.True(t, h.tableExists(t, "farms"))
	})

	t.Run("catalog without directory", func(t *testing.T) {
		result := h.controller.RunFile(ctx, &catalog.Catalog{}, "001_create_farms.sql")
		require.Equal(t, orchestrator.StatusSkipped, result.Status)
	})

	t.Run("connection failure keeps the raw error", func(t *testing.T) {
		h.db.failures["CREATE TABLE sensors"] = 1

		result := h.controller.RunFile(ctx, &catalog.Catalog{Dir: h.dir}, "003_add_sensor_battery.sql")
		require.Equal(t, orchestrator.StatusError, result.Status)
		require.Same(t, driver.ErrBadConn, result.Err)
	})
}

func TestCheckReady(t *testing.T) {
	h := newHarness(t, farmSchema)
	ctx := context.Background()
	checker := h.controller.Checker()

	report := checker.CheckReady(ctx)
	require.Equal(t, orchestrator.ReadinessReport{
		Ready:            true,
		DBReachable:      true,
		CatalogAvailable: true,
		Kind:             "none",
	}, report)

	h.db.down = true
	require.NoError(t, os.RemoveAll(h.dir))

	report = checker.CheckReady(ctx)
	require.False(t, report.Ready)
	require.False(t, report.DBReachable)
	require.False(t, report.CatalogAvailable)
	require.Contains(t, report.Error, "database unreachable: "+driver.ErrBadConn.Error())
	require.Contains(t, report.Error, "migrations unavailable:")
	require.Equal(t, "connection", string(report.Kind))

	db := checker.CheckDatabase(ctx)
	require.False(t, db.Ready)
	require.False(t, db.CatalogAvailable)
}
