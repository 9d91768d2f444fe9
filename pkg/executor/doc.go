// Package executor applies the statements of a single migration file.
//
// The executor is the idempotency boundary of the engine: errors classified
// as duplicate-object by package dberr are absorbed here and never reach a
// caller, while every other error aborts the file and propagates untouched.
//
// # Usage Example
//
//	exec := executor.New(executor.Config{
//		DB:      pool,
//		Metrics: collector,
//	})
//
//	results, err := exec.Apply(ctx, string(contents))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	for _, result := range results {
//		switch result.Outcome {
//		case executor.OutcomeOK:
//			fmt.Printf("✓ statement %d\n", result.Index+1)
//		case executor.OutcomeIgnoredDuplicate:
//			fmt.Printf("- statement %d already applied\n", result.Index+1)
//		}
//	}
//
// # Statement Splitting
//
// Files are split by parser.Split: a semicolon followed by a line break ends
// a statement, whole-line comments are dropped and empty fragments are
// skipped. Statements are never run concurrently because their order inside
// a file matters (CREATE TABLE before CREATE INDEX).
package executor
