package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

type (
	// TargetKind identifies the kind of schema object a statement creates.
	TargetKind string

	// Target is the schema object a statement is expected to create. Names are
	// kept exactly as written, quotes included, so they can be reused in queries.
	Target struct {
		Kind   TargetKind
		Table  string
		Column string
	}

	statementHead struct {
		CreateTable *createTableHead `parser:"@@"`
		AlterTable  *alterTableHead  `parser:"| @@"`
	}

	createTableHead struct {
		Table *qualifiedName `parser:"'CREATE' ('OR' 'REPLACE')? ('TEMPORARY' | 'TEMP' | 'UNLOGGED')? 'TABLE' ('IF' 'NOT' 'EXISTS')? @@"`
	}

	alterTableHead struct {
		Table  *qualifiedName `parser:"'ALTER' 'TABLE' ('IF' 'EXISTS')? 'ONLY'? @@"`
		Column string         `parser:"'ADD' 'COLUMN'? ('IF' 'NOT' 'EXISTS')? @(Ident | QuotedIdent | BacktickIdent)"`
	}

	qualifiedName struct {
		Parts []string `parser:"@(Ident | QuotedIdent | BacktickIdent) ('.' @(Ident | QuotedIdent | BacktickIdent))*"`
	}
)

const (
	// TargetTable is a table created by CREATE TABLE.
	TargetTable TargetKind = "table"

	// TargetColumn is a column added by ALTER TABLE ... ADD [COLUMN].
	TargetColumn TargetKind = "column"
)

var (
	targetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'([^'\\]|\\.)*'`},
		{Name: "QuotedIdent", Pattern: `"([^"\\]|\\.)*"`},
		{Name: "BacktickIdent", Pattern: "`([^`\\\\]|\\\\.)*`"},
		{Name: "Number", Pattern: `\d+(\.\d*)?`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
		{Name: "Punct", Pattern: `[^\sa-zA-Z0-9_'"\x60]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	targetParser = participle.MustBuild[statementHead](
		participle.Lexer(targetLexer),
		participle.Elide("Comment", "MultilineComment", "Whitespace"),
		participle.CaseInsensitive("Ident"),
	)

	// ALTER TABLE ... ADD followed by one of these adds a constraint or an
	// index, not a column.
	addKeywords = map[string]bool{
		"CONSTRAINT": true,
		"PRIMARY":    true,
		"FOREIGN":    true,
		"UNIQUE":     true,
		"INDEX":      true,
		"KEY":        true,
		"CHECK":      true,
		"PROJECTION": true,
	}
)

// ParseTarget recognises the schema object a single statement creates. It
// returns false for statements whose target cannot be probed cheaply, such as
// CREATE INDEX or ALTER TABLE ... ADD CONSTRAINT.
func ParseTarget(stmt string) (*Target, bool) {
	head, err := targetParser.ParseString("", stmt, participle.AllowTrailing(true))
	if err != nil {
		return nil, false
	}

	switch {
	case head.CreateTable != nil:
		return &Target{Kind: TargetTable, Table: head.CreateTable.Table.String()}, true
	case head.AlterTable != nil:
		if addKeywords[strings.ToUpper(head.AlterTable.Column)] {
			return nil, false
		}

		return &Target{
			Kind:   TargetColumn,
			Table:  head.AlterTable.Table.String(),
			Column: head.AlterTable.Column,
		}, true
	}

	return nil, false
}

// FirstTarget returns the target of the first statement in a migration file
// that has one.
func FirstTarget(contents string) (*Target, bool) {
	stmts, err := Split(contents)
	if err != nil {
		return nil, false
	}

	for _, stmt := range stmts {
		if target, ok := ParseTarget(stmt); ok {
			return target, true
		}
	}

	return nil, false
}

func (n *qualifiedName) String() string {
	return strings.Join(n.Parts, ".")
}
