package orchestrator

import (
	"context"
	"strings"

	"github.com/farmhand/groundskeeper/pkg/catalog"
	"github.com/farmhand/groundskeeper/pkg/dberr"
)

type (
	// Pinger proves the database is reachable.
	Pinger interface {
		Ping(context.Context) error
	}

	// Resolver yields the migration catalog.
	Resolver interface {
		Resolve(context.Context) (*catalog.Catalog, bool, error)
	}

	// Checker runs the side-effect free readiness probes.
	Checker struct {
		db       Pinger
		resolver Resolver
	}
)

// NewChecker creates a Checker.
func NewChecker(db Pinger, resolver Resolver) *Checker {
	return &Checker{db: db, resolver: resolver}
}

// CheckReady probes the database and the migration catalog independently.
// The report is ready only when both succeed; Error names each failed probe
// followed by the raw error text.
func (c *Checker) CheckReady(ctx context.Context) ReadinessReport {
	report := c.CheckDatabase(ctx)

	var problems []string
	if report.Error != "" {
		problems = append(problems, report.Error)
	}

	if _, ok, err := c.resolver.Resolve(ctx); ok {
		report.CatalogAvailable = true
	} else {
		problems = append(problems, "migrations unavailable: "+err.Error())
	}

	report.Ready = report.DBReachable && report.CatalogAvailable
	report.Error = strings.Join(problems, "; ")
	return report
}

// CheckDatabase runs only the database probe. CatalogAvailable is left false
// and Ready mirrors DBReachable.
func (c *Checker) CheckDatabase(ctx context.Context) ReadinessReport {
	err := c.db.Ping(ctx)
	if err != nil {
		return ReadinessReport{
			Error: "database unreachable: " + err.Error(),
			Kind:  dberr.Classify(err),
		}
	}

	return ReadinessReport{Ready: true, DBReachable: true, Kind: dberr.KindNone}
}
