// Package dberr classifies raw database errors for the migration engine.
//
// Retry and tolerance decisions are a property of the error kind rather than
// of ad hoc message matching at each call site:
//
//   - KindDuplicateObject: the object already exists; the executor absorbs it
//   - KindConnection: the pool should be rebuilt and the run may be retried
//   - KindStatement: a genuine SQL failure; fatal and never retried
//
// Typed errors from lib/pq, go-sql-driver/mysql, mattn/go-sqlite3 and
// clickhouse-go are inspected first, followed by the standard library's
// connection errors. Classify never alters the error it inspects, so callers
// keep surfacing the literal driver message.
package dberr
