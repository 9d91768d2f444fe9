// Package orchestrator runs migration catalogs end to end.
//
// The Checker answers whether a run could start right now by probing the
// database with a trivial query and resolving the catalog. The Controller
// uses it as a preflight gate before applying every catalog file in order,
// rebuilding the connection pool around the run and retrying once when a run
// dies of a connection error:
//
//	controller := orchestrator.NewController(orchestrator.Config{
//		DB:       pool,
//		Resolver: resolver,
//	})
//
//	report := controller.RunAll(ctx)
//	if !report.OK {
//		fmt.Println(report.Message, report.ReconnectHint)
//	}
//
// Reports carry json tags and are safe to hand to an HTTP layer unchanged.
// Error messages in results are the database's own text.
package orchestrator
