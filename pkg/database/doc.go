// Package database owns the connection pool shared by every part of the
// migration engine.
//
// A Pool wraps a *sql.DB for one of the supported drivers (postgres, mysql,
// sqlite3, clickhouse) and can be rebuilt wholesale with Reconnect, which is
// the recovery path after the database restarts underneath a long-lived pool.
//
//	pool, err := database.Open(database.Config{Database: cfg.Database})
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pool.Reconnect(ctx); err != nil {
//		return err
//	}
package database
