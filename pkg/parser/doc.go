// Package parser splits migration files into statements and recognises the
// schema object a statement targets.
//
// Both halves are built on github.com/alecthomas/participle/v2. Split drives a
// participle lexer directly so that string literals, quoted identifiers and
// comments never produce a false statement boundary:
//
//	stmts, err := parser.Split(`
//	-- crops grown on a farm
//	CREATE TABLE crops (id SERIAL PRIMARY KEY, name TEXT NOT NULL);
//	CREATE INDEX idx_crops_name ON crops (name);
//	`)
//	// stmts[0] == "CREATE TABLE crops (id SERIAL PRIMARY KEY, name TEXT NOT NULL)"
//	// stmts[1] == "CREATE INDEX idx_crops_name ON crops (name)"
//
// ParseTarget uses a small participle grammar that only understands statement
// heads (CREATE TABLE, ALTER TABLE ... ADD COLUMN) and ignores the rest:
//
//	target, ok := parser.ParseTarget("ALTER TABLE sensors ADD COLUMN battery INT")
//	// ok == true, target.Table == "sensors", target.Column == "battery"
package parser
