// Package metrics exposes prometheus collectors for migration runs, background
// jobs and connection pool rebuilds, plus an optional /metrics HTTP server.
//
//	reg := prometheus.NewRegistry()
//	collector := metrics.New(reg)
//
//	srv := metrics.NewServer(":9090", reg)
//	srv.Start()
//	defer srv.Shutdown(ctx)
//
// All Collector methods are safe to call on a nil *Collector.
package metrics
