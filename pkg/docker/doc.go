// Package docker runs disposable databases for migration smoke tests.
//
// Containers are managed with testcontainers. Postgres runs from the
// official alpine image with a fixed groundskeeper user; ClickHouse runs
// through the testcontainers ClickHouse module:
//
//	container := docker.New(docker.Options{
//		Driver:  database.DriverClickHouse,
//		Version: "25.7",
//	})
//
//	if err := container.Start(ctx); err != nil {
//		return err
//	}
//	defer func() { _ = container.Stop(ctx) }()
//
//	dsn, err := container.DSN()
//
// The dev command uses this to apply a catalog twice against a fresh
// database and check that the second run changes nothing.
package docker
