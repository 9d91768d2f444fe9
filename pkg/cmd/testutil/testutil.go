package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/consts"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

// ProjectFixture is an isolated project backed by a SQLite database.
type ProjectFixture struct {
	Dir           string
	MigrationsDir string
	DBPath        string
	Config        *config.Config
	t             *testing.T
}

// MigrationFile represents a test migration
type MigrationFile struct {
	Name string
	SQL  string
}

// FarmMigrations is a small catalog that applies cleanly to an empty database.
var FarmMigrations = []MigrationFile{
	{Name: "001_create_farms.sql", SQL: "CREATE TABLE farms (\n  id INTEGER PRIMARY KEY,\n  name TEXT NOT NULL\n);\n"},
	{Name: "002_create_crops.sql", SQL: "CREATE TABLE crops (\n  id INTEGER PRIMARY KEY,\n  farm_id INTEGER REFERENCES farms (id)\n);\nCREATE INDEX idx_crops_farm ON crops (farm_id);\n"},
	{Name: "003_add_crop_yield.sql", SQL: "-- yield in kilograms\nALTER TABLE crops ADD COLUMN yield_kg REAL;\n"},
}

// TestProject creates a project in a temp directory with an empty migrations
// directory and a configuration pointing at a SQLite file inside it.
func TestProject(t *testing.T) *ProjectFixture {
	t.Helper()

	dir := t.TempDir()
	migrationsDir := filepath.Join(dir, "db", "migrations")
	require.NoError(t, os.MkdirAll(migrationsDir, consts.ModeDir))

	cfg := config.Default()
	cfg.Database.Driver = "sqlite3"
	cfg.Database.DSN = filepath.Join(dir, "farm.db")
	cfg.Migrations.Dir = migrationsDir
	cfg.Migrations.CatalogFile = filepath.Join(dir, "db", "migrations.order")
	cfg.Jobs.PollInterval = 5 * time.Millisecond
	cfg.Jobs.MaxPolls = 2000

	return &ProjectFixture{
		Dir:           dir,
		MigrationsDir: migrationsDir,
		DBPath:        cfg.Database.DSN,
		Config:        cfg,
		t:             t,
	}
}

// WithMigrations writes the given migration files.
func (p *ProjectFixture) WithMigrations(files ...MigrationFile) *ProjectFixture {
	p.t.Helper()

	for _, f := range files {
		require.NoError(p.t, os.WriteFile(filepath.Join(p.MigrationsDir, f.Name), []byte(f.SQL), consts.ModeFile))
	}
	return p
}

// WriteConfig writes a groundskeeper.yaml matching the fixture and returns
// its path.
func (p *ProjectFixture) WriteConfig() string {
	p.t.Helper()

	contents := fmt.Sprintf(`database:
  driver: sqlite3
  dsn: %s
migrations:
  dir: %s
  catalog_file: %s
jobs:
  poll_interval: 5ms
  max_polls: 2000
`, p.DBPath, p.MigrationsDir, p.Config.Migrations.CatalogFile)

	path := filepath.Join(p.Dir, consts.DefaultConfigFile)
	require.NoError(p.t, os.WriteFile(path, []byte(contents), consts.ModeFile))
	return path
}

// DB opens the fixture database for assertions.
func (p *ProjectFixture) DB() *sql.DB {
	p.t.Helper()

	db, err := sql.Open("sqlite3", p.DBPath)
	require.NoError(p.t, err)
	p.t.Cleanup(func() { _ = db.Close() })
	return db
}
