package catalog

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/farmhand/groundskeeper/pkg/consts"
	"github.com/pkg/errors"
)

// ErrDirectoryNotFound is returned when none of the candidate migration
// directories exists.
var ErrDirectoryNotFound = errors.New("migrations directory not found")

type (
	// Config configures a Resolver.
	Config struct {
		// Dir is an explicit migrations directory, tried before the defaults
		Dir string

		// ProjectDir is the project-relative default (db/migrations when empty)
		ProjectDir string

		// Extensions lists the accepted file extensions (.sql when empty)
		Extensions []string

		// CatalogFile is where the resolved order is persisted (db/migrations.order when empty)
		CatalogFile string

		// TieBreaks orders files sharing a sequence number
		TieBreaks []string

		// Executable locates the running binary for the package-relative
		// default. Defaults to os.Executable.
		Executable func() (string, error)

		Logger *slog.Logger
	}

	// Resolver discovers and orders migration files.
	Resolver struct {
		cfg    Config
		namer  *namer
		logger *slog.Logger
	}
)

// NewResolver creates a Resolver, filling in defaults for unset values.
func NewResolver(cfg Config) *Resolver {
	if cfg.ProjectDir == "" {
		cfg.ProjectDir = consts.DefaultMigrationsDir
	}
	if cfg.CatalogFile == "" {
		cfg.CatalogFile = consts.DefaultCatalogFile
	}
	if cfg.Executable == nil {
		cfg.Executable = os.Executable
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Resolver{
		cfg:    cfg,
		namer:  newNamer(cfg.Extensions, cfg.TieBreaks),
		logger: cfg.Logger,
	}
}

// Candidates returns the directories Resolve tries, in order: the explicit
// override, the project-relative default and the directory next to the
// running executable.
func (r *Resolver) Candidates() []string {
	var dirs []string
	if r.cfg.Dir != "" {
		dirs = append(dirs, r.cfg.Dir)
	}
	dirs = append(dirs, r.cfg.ProjectDir)

	if exe, err := r.cfg.Executable(); err == nil {
		dirs = append(dirs, filepath.Join(filepath.Dir(exe), consts.PackageMigrationsDir))
	}

	return dirs
}

// Resolve scans the first existing candidate directory and returns the
// ordered catalog. The order is persisted to the catalog file as a side
// effect.
//
// When no directory can be scanned, Resolve returns ok=false together with
// the last-known-good catalog from the catalog file (empty if that is
// unusable too) and an error explaining both failures. Callers should use
// the fallback but surface the error.
func (r *Resolver) Resolve(ctx context.Context) (*Catalog, bool, error) {
	c, err := r.scan(ctx)
	if err == nil {
		r.persist(c)
		return c, true, nil
	}

	cached, cacheErr := r.Cached()
	if cacheErr != nil {
		return &Catalog{Files: []MigrationFile{}}, false, errors.Wrapf(err, "no cached catalog (%v)", cacheErr)
	}

	return cached, false, errors.Wrap(err, "using cached catalog")
}

// Cached loads the catalog persisted by the last successful Resolve.
func (r *Resolver) Cached() (*Catalog, error) {
	f, err := os.Open(r.cfg.CatalogFile)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open catalog file: %s", r.cfg.CatalogFile)
	}
	defer func() { _ = f.Close() }()

	of, err := LoadOrderFile(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load catalog file: %s", r.cfg.CatalogFile)
	}

	c := &Catalog{Files: make([]MigrationFile, 0, len(of.entries))}
	for _, name := range of.Names() {
		mf, ok := r.namer.parse(name)
		if !ok {
			return nil, errors.Errorf("invalid entry in catalog file %s: %s", r.cfg.CatalogFile, name)
		}
		c.Files = append(c.Files, mf)
	}

	return c, nil
}

func (r *Resolver) scan(ctx context.Context) (*Catalog, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := r.locate()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list migrations directory: %s", dir)
	}

	c := &Catalog{Dir: dir, Files: make([]MigrationFile, 0, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if mf, ok := r.namer.parse(entry.Name()); ok {
			c.Files = append(c.Files, mf)
		}
	}

	sortFiles(c.Files)
	return c, nil
}

func (r *Resolver) locate() (string, error) {
	candidates := r.Candidates()
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}

	return "", errors.Wrapf(ErrDirectoryNotFound, "tried %v", candidates)
}

// persist overwrites the catalog file. Failures are logged, never returned.
func (r *Resolver) persist(c *Catalog) {
	if err := r.writeCatalogFile(c); err != nil {
		r.logger.Warn("Failed to persist catalog", "path", r.cfg.CatalogFile, "error", err)
	}
}

func (r *Resolver) writeCatalogFile(c *Catalog) error {
	of := NewOrderFile()
	for _, f := range c.Files {
		of.Add(f.Name)
	}

	dir := filepath.Dir(r.cfg.CatalogFile)
	if err := os.MkdirAll(dir, consts.ModeDir); err != nil {
		return errors.Wrapf(err, "failed to create directory: %s", dir)
	}

	// Write to a temp file and rename so a crash never leaves a torn cache.
	tmp, err := os.CreateTemp(dir, ".catalog-*")
	if err != nil {
		return errors.Wrap(err, "failed to create temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := of.WriteTo(tmp); err != nil {
		_ = tmp.Close()
		return errors.Wrap(err, "failed to write catalog file")
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "failed to close catalog file")
	}

	if err := os.Chmod(tmp.Name(), consts.ModeFile); err != nil {
		return errors.Wrap(err, "failed to set catalog file mode")
	}

	return errors.Wrap(os.Rename(tmp.Name(), r.cfg.CatalogFile), "failed to replace catalog file")
}
