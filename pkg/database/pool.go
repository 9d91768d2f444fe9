package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"log/slog"
	"sync"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/farmhand/groundskeeper/pkg/config"
	"github.com/farmhand/groundskeeper/pkg/metrics"
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// Supported driver names.
const (
	DriverPostgres   = "postgres"
	DriverMySQL      = "mysql"
	DriverSQLite     = "sqlite3"
	DriverClickHouse = "clickhouse"

	// mysqlTLSKey is the name the mTLS config is registered under with the
	// mysql driver.
	mysqlTLSKey = "groundskeeper"

	pingQuery = "SELECT 1"
)

type (
	// Config describes how to build the pool.
	Config struct {
		Database config.Database
		Logger   *slog.Logger
		Metrics  *metrics.Collector
	}

	// Pool is a reconnectable handle to the migration target. Every query
	// runs against whatever *sql.DB is current at the time of the call, so a
	// Reconnect is atomic from the point of view of a single query.
	Pool struct {
		cfg    config.Database
		logger *slog.Logger
		stats  *metrics.Collector

		mu sync.RWMutex
		db *sql.DB
	}
)

// Open creates a pool without contacting the database. Connectivity problems
// surface on the first query, Ping or Reconnect.
func Open(cfg Config) (*Pool, error) {
	db, err := openDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		cfg:    cfg.Database,
		logger: logger,
		stats:  cfg.Metrics,
		db:     db,
	}, nil
}

// DB returns the current *sql.DB. It may be replaced by a later Reconnect.
func (p *Pool) DB() *sql.DB {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.db
}

// Driver returns the configured driver name.
func (p *Pool) Driver() string {
	return p.cfg.Driver
}

// Ping runs a trivial query to prove the database is reachable. The driver
// error is returned unchanged.
func (p *Pool) Ping(ctx context.Context) error {
	return ping(ctx, p.DB())
}

// ExecContext executes a statement against the current pool.
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	db := p.DB()
	if db == nil {
		return nil, sql.ErrConnDone
	}
	return db.ExecContext(ctx, query, args...)
}

// QueryContext runs a query against the current pool.
func (p *Pool) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	db := p.DB()
	if db == nil {
		return nil, sql.ErrConnDone
	}
	return db.QueryContext(ctx, query, args...)
}

// Reconnect replaces the pool with a freshly built one.
//
// The new pool is validated with a trivial query before it is swapped in, and
// only then is the previous pool closed. When validation fails the new pool is
// discarded, the current one stays in place and the driver error is returned.
// In-flight queries on the old pool may fail once it closes; callers treat
// those as connection errors.
func (p *Pool) Reconnect(ctx context.Context) error {
	err := p.reconnect(ctx)
	p.stats.Reconnected(err)
	return err
}

func (p *Pool) reconnect(ctx context.Context) error {
	fresh, err := openDB(p.cfg)
	if err != nil {
		return err
	}

	if err := ping(ctx, fresh); err != nil {
		_ = fresh.Close()
		p.logger.Warn("Reconnect failed", "driver", p.cfg.Driver, "error", err)
		return err
	}

	p.mu.Lock()
	old := p.db
	p.db = fresh
	p.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			p.logger.Warn("Failed to close previous pool", "error", err)
		}
	}

	p.logger.Debug("Reconnected", "driver", p.cfg.Driver)
	return nil
}

// Close closes the current pool.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}

	err := p.db.Close()
	p.db = nil
	return err
}

func ping(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return sql.ErrConnDone
	}

	var one int
	return db.QueryRowContext(ctx, pingQuery).Scan(&one)
}

func openDB(cfg config.Database) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("no database dsn configured")
	}

	tlsConfig, err := GetTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch cfg.Driver {
	case DriverPostgres, DriverSQLite:
		db, err = sql.Open(cfg.Driver, cfg.DSN)
	case DriverMySQL:
		dsn := cfg.DSN
		if tlsConfig != nil {
			if dsn, err = mysqlTLSDSN(dsn, tlsConfig); err != nil {
				return nil, err
			}
		}
		db, err = sql.Open(DriverMySQL, dsn)
	case DriverClickHouse:
		opts, perr := clickhouse.ParseDSN(cfg.DSN)
		if perr != nil {
			return nil, errors.Wrap(perr, "failed to parse clickhouse dsn")
		}
		if tlsConfig != nil {
			opts.TLS = tlsConfig
		}
		db = clickhouse.OpenDB(opts)
	default:
		return nil, errors.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s pool", cfg.Driver)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}

func mysqlTLSDSN(dsn string, tlsConfig *tls.Config) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse mysql dsn")
	}

	if err := mysql.RegisterTLSConfig(mysqlTLSKey, tlsConfig); err != nil {
		return "", errors.Wrap(err, "failed to register mysql tls config")
	}

	mc.TLSConfig = mysqlTLSKey
	return mc.FormatDSN(), nil
}
