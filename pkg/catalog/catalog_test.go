package catalog_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;\n"), 0o644))
	}
}

func noExecutable() (string, error) {
	return "", errors.New("no executable")
}

func TestResolveOrder(t *testing.T) {
	tests := []struct {
		name      string
		files     []string
		tieBreaks []string
		want      []string
	}{
		{
			name:  "sorted by sequence",
			files: []string{"002_x.sql", "001_y.sql", "003_z.sql"},
			want:  []string{"001_y.sql", "002_x.sql", "003_z.sql"},
		},
		{
			name:  "numeric not lexical sequence",
			files: []string{"10_later.sql", "9_earlier.sql", "0100_last.sql"},
			want:  []string{"9_earlier.sql", "10_later.sql", "0100_last.sql"},
		},
		{
			name:  "same sequence falls back to name",
			files: []string{"006_add_sensor_battery.sql", "006_add_crop_yield.sql"},
			want:  []string{"006_add_crop_yield.sql", "006_add_sensor_battery.sql"},
		},
		{
			name:      "tie break wins over name",
			files:     []string{"006_add_crop_yield.sql", "007_create_robots.sql", "006_add_sensor_battery.sql"},
			tieBreaks: []string{"006_add_sensor_battery.sql", "006_add_crop_yield.sql"},
			want:      []string{"006_add_sensor_battery.sql", "006_add_crop_yield.sql", "007_create_robots.sql"},
		},
		{
			name:      "listed files precede unlisted ones",
			files:     []string{"006_a.sql", "006_b.sql", "006_c.sql"},
			tieBreaks: []string{"006_c.sql"},
			want:      []string{"006_c.sql", "006_a.sql", "006_b.sql"},
		},
		{
			name:  "non migrations are ignored",
			files: []string{"001_init.sql", "README.md", "notes.sql", "002_.sql", "003_seed.sql.bak", "004_seed.SQL"},
			want:  []string{"001_init.sql"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			dir := filepath.Join(root, "migrations")
			writeFiles(t, dir, tt.files...)

			r := catalog.NewResolver(catalog.Config{
				Dir:         dir,
				ProjectDir:  filepath.Join(root, "missing"),
				CatalogFile: filepath.Join(root, "migrations.order"),
				TieBreaks:   tt.tieBreaks,
				Executable:  noExecutable,
			})

			c, ok, err := r.Resolve(context.Background())
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, dir, c.Dir)
			require.Equal(t, tt.want, c.Names())
		})
	}
}

func TestResolveIgnoresDirectories(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "001_init.sql")
	require.NoError(t, os.Mkdir(filepath.Join(root, "002_nested.sql"), 0o755))

	r := catalog.NewResolver(catalog.Config{
		Dir:         root,
		CatalogFile: filepath.Join(root, "order"),
		Executable:  noExecutable,
	})

	c, ok, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"001_init.sql"}, c.Names())
	require.True(t, c.Contains("001_init.sql"))
	require.False(t, c.Contains("002_nested.sql"))
	require.Equal(t, filepath.Join(root, "001_init.sql"), c.Path("001_init.sql"))
}

func TestResolveExtensions(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "001_init.sql", "002_events.ch", "003_notes.txt")

	r := catalog.NewResolver(catalog.Config{
		Dir:         root,
		Extensions:  []string{".sql", "ch"},
		CatalogFile: filepath.Join(root, "order"),
		Executable:  noExecutable,
	})

	c, _, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"001_init.sql", "002_events.ch"}, c.Names())
}

func TestCandidates(t *testing.T) {
	root := t.TempDir()
	exe := filepath.Join(root, "bin", "groundskeeper")
	packaged := filepath.Join(root, "bin", "migrations")
	project := filepath.Join(root, "db", "migrations")

	r := catalog.NewResolver(catalog.Config{
		Dir:         filepath.Join(root, "explicit"),
		ProjectDir:  project,
		CatalogFile: filepath.Join(root, "order"),
		Executable:  func() (string, error) { return exe, nil },
	})

	require.Equal(t, []string{filepath.Join(root, "explicit"), project, packaged}, r.Candidates())

	// only the package-relative directory exists
	writeFiles(t, packaged, "001_packaged.sql")
	c, ok, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, packaged, c.Dir)

	// the project directory takes precedence once it exists
	writeFiles(t, project, "001_project.sql")
	c, _, err = r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, project, c.Dir)
	require.Equal(t, []string{"001_project.sql"}, c.Names())

	// and the explicit directory beats both
	writeFiles(t, filepath.Join(root, "explicit"), "001_explicit.sql")
	c, _, err = r.Resolve(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"001_explicit.sql"}, c.Names())
}

func TestResolveFallback(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	order := filepath.Join(root, "db", "migrations.order")
	writeFiles(t, dir, "002_create_crops.sql", "001_create_farms.sql")

	r := catalog.NewResolver(catalog.Config{
		Dir:         dir,
		ProjectDir:  filepath.Join(root, "missing"),
		CatalogFile: order,
		Executable:  noExecutable,
	})

	live, ok, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.FileExists(t, order)

	require.NoError(t, os.RemoveAll(dir))

	cached, ok, err := r.Resolve(context.Background())
	require.False(t, ok)
	require.Error(t, err)
	require.True(t, errors.Is(err, catalog.ErrDirectoryNotFound))
	require.Equal(t, live.Names(), cached.Names())
	require.Empty(t, cached.Dir)
	require.Empty(t, cached.Path("001_create_farms.sql"))
}

func TestResolveWithoutDirectoryOrCache(t *testing.T) {
	root := t.TempDir()

	r := catalog.NewResolver(catalog.Config{
		Dir:         filepath.Join(root, "missing"),
		ProjectDir:  filepath.Join(root, "also-missing"),
		CatalogFile: filepath.Join(root, "migrations.order"),
		Executable:  noExecutable,
	})

	c, ok, err := r.Resolve(context.Background())
	require.False(t, ok)
	require.NotNil(t, c)
	require.Empty(t, c.Files)
	require.ErrorContains(t, err, "no cached catalog")
	require.ErrorContains(t, err, "migrations directory not found")
	require.True(t, errors.Is(err, catalog.ErrDirectoryNotFound))
}

func TestResolveTamperedCache(t *testing.T) {
	root := t.TempDir()
	order := filepath.Join(root, "migrations.order")
	require.NoError(t, os.WriteFile(order, []byte("h1:bogus\n001_init.sql h1:bogus\n"), 0o644))

	r := catalog.NewResolver(catalog.Config{
		Dir:         filepath.Join(root, "missing"),
		ProjectDir:  filepath.Join(root, "missing"),
		CatalogFile: order,
		Executable:  noExecutable,
	})

	c, ok, err := r.Resolve(context.Background())
	require.False(t, ok)
	require.Empty(t, c.Files)
	require.ErrorContains(t, err, "no cached catalog")
}

func TestResolveCacheWriteFailure(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "migrations")
	writeFiles(t, dir, "001_init.sql")

	// the catalog file's parent is a regular file, so it can never be written
	blocker := filepath.Join(root, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	r := catalog.NewResolver(catalog.Config{
		Dir:         dir,
		CatalogFile: filepath.Join(blocker, "migrations.order"),
		Executable:  noExecutable,
	})

	c, ok, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"001_init.sql"}, c.Names())
}

func TestResolveCanceled(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "001_init.sql")

	r := catalog.NewResolver(catalog.Config{
		Dir:         root,
		CatalogFile: filepath.Join(t.TempDir(), "order"),
		Executable:  noExecutable,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := r.Resolve(ctx)
	require.False(t, ok)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestOrderFile(t *testing.T) {
	names := []string{
		"001_create_farms.sql",
		"002_create_crops.sql",
		"006_add_sensor_battery.sql",
		"006_add_crop_yield.sql",
	}

	of := catalog.NewOrderFile()
	for _, name := range names {
		of.Add(name)
	}

	var buf bytes.Buffer
	n, err := of.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	golden.Assert(t, buf.String(), "order.golden")

	t.Run("round trip", func(t *testing.T) {
		loaded, err := catalog.LoadOrderFile(bytes.NewReader(golden.Get(t, "order.golden")))
		require.NoError(t, err)
		require.Equal(t, names, loaded.Names())
		require.Equal(t, of.TotalHash, loaded.TotalHash)
	})

	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		_, err := catalog.NewOrderFile().WriteTo(&buf)
		require.NoError(t, err)
		require.Equal(t, "\n", buf.String())

		loaded, err := catalog.LoadOrderFile(&buf)
		require.NoError(t, err)
		require.Empty(t, loaded.Names())
	})

	t.Run("reordered lines are rejected", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(string(golden.Get(t, "order.golden"))), "\n")
		lines[3], lines[4] = lines[4], lines[3]

		_, err := catalog.LoadOrderFile(strings.NewReader(strings.Join(lines, "\n")))
		require.ErrorContains(t, err, "hash mismatch for 006_add_crop_yield.sql")
	})

	t.Run("dropped lines are rejected", func(t *testing.T) {
		lines := strings.Split(strings.TrimSpace(string(golden.Get(t, "order.golden"))), "\n")

		_, err := catalog.LoadOrderFile(strings.NewReader(strings.Join(lines[:4], "\n")))
		require.ErrorContains(t, err, "total hash mismatch")
	})

	t.Run("malformed entries", func(t *testing.T) {
		for _, input := range []string{
			"sha256:abc\n",
			"h1:abc\n001_init.sql\n",
			"h1:abc\n001_init.sql sha256:abc\n",
			"h1:abc\n001_init.sql h1:!!!\n",
		} {
			_, err := catalog.LoadOrderFile(strings.NewReader(input))
			require.Error(t, err, input)
		}
	})
}
