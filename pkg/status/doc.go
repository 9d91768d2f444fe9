// Package status reconciles which migrations have been applied.
//
// There is no ledger table. Each migration file is probed with a query that
// only succeeds once the object the file creates exists. Probes come from the
// status section of the configuration or are derived from the file itself:
//
//	CREATE TABLE farms (...)                 -> SELECT 1 FROM farms WHERE 1 = 0
//	ALTER TABLE crops ADD COLUMN yield_kg .. -> SELECT yield_kg FROM crops WHERE 1 = 0
//
// A probe that fails for any reason reports the migration as not applied.
package status
