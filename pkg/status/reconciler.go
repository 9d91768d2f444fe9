package status

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/farmhand/groundskeeper/pkg/consts"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
)

// BaseSchemaName is the display name of the synthetic base schema entry.
const BaseSchemaName = "base schema"

type (
	// StatusEntry is the reconciled state of one migration.
	StatusEntry struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Applied bool   `json:"applied"`
	}

	// Config contains configuration options for creating a new Reconciler.
	Config struct {
		Resolver orchestrator.Resolver
		Prober   Prober
		Logger   *slog.Logger
	}

	// Reconciler infers which migrations are applied by probing the database
	// for the objects they create. Nothing is cached between calls.
	Reconciler struct {
		resolver orchestrator.Resolver
		prober   Prober
		logger   *slog.Logger
	}
)

// NewReconciler creates a Reconciler.
func NewReconciler(cfg Config) *Reconciler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Reconciler{
		resolver: cfg.Resolver,
		prober:   cfg.Prober,
		logger:   cfg.Logger,
	}
}

// Status returns the base schema entry followed by one entry per catalog
// file, in catalog order. When the migrations directory cannot be scanned the
// last-known-good catalog is reconciled instead; its files are not on disk, so
// only configured probes can report them as applied.
func (r *Reconciler) Status(ctx context.Context) []StatusEntry {
	entries := []StatusEntry{{
		ID:      consts.BaseSchemaID,
		Name:    BaseSchemaName,
		Applied: r.prober.Probe(ctx, consts.BaseSchemaID),
	}}

	cat, ok, err := r.resolver.Resolve(ctx)
	if cat == nil {
		r.logger.Warn("Unable to resolve catalog for status", "error", err)
		return entries
	}
	if !ok {
		r.logger.Warn("Unable to resolve catalog for status, using cached catalog",
			"files", len(cat.Files), "error", err)
	}

	for _, file := range cat.Files {
		path := cat.Path(file.Name)
		if path == "" {
			path = file.Name
		}

		entries = append(entries, StatusEntry{
			ID:      strings.TrimSuffix(file.Name, filepath.Ext(file.Name)),
			Name:    file.Name,
			Applied: r.prober.Probe(ctx, path),
		})
	}

	return entries
}
