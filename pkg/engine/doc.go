// Package engine exposes the migration operations behind a single type.
//
// An Engine owns the reconnectable connection pool and the in-memory job
// registry, and wires the catalog resolver, the run controller, the job
// runner and the status reconciler around them:
//
//	e, err := engine.New(engine.Config{Config: cfg})
//	if err != nil {
//		return err
//	}
//	defer e.Close()
//
//	if ready := e.CheckReady(ctx); !ready.Ready {
//		return errors.New(ready.Error)
//	}
//
//	report := e.RunAll(ctx)
//
// Inside an fx application the Factory opens engines after command flags
// have been applied to the configuration and closes them on shutdown.
package engine
