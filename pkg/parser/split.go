package parser

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	// splitLexer tokenises just enough SQL to find statement boundaries. A
	// terminator is a semicolon followed by a line break or the end of input,
	// optionally with a -- comment in between.
	splitLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `--[^\r\n]*`},
		{Name: "MultilineComment", Pattern: `/\*[^*]*\*+([^/*][^*]*\*+)*/`},
		{Name: "String", Pattern: `'([^'\\]|\\.)*'`},
		{Name: "QuotedIdent", Pattern: `"([^"\\]|\\.)*"`},
		{Name: "BacktickIdent", Pattern: "`([^`\\\\]|\\\\.)*`"},
		{Name: "Terminator", Pattern: `;[ \t]*(--[^\r\n]*)?(\r?\n|$)`},
		{Name: "Newline", Pattern: `\r?\n`},
		{Name: "Whitespace", Pattern: `[ \t\r\f]+`},
		{Name: "Word", Pattern: `[^;'"\x60\s\-/]+`},
		{Name: "Char", Pattern: `.`},
	})

	splitSymbols = splitLexer.Symbols()
)

// Split breaks the contents of a migration file into individual statements.
//
// Statements end at a semicolon followed by a line break (or the end of the
// file); a -- comment after the semicolon is dropped with it. Comments that
// occupy a whole line are dropped, the remaining text of each statement is
// trimmed and empty fragments are discarded. Statements are returned in file
// order without their terminator.
func Split(contents string) ([]string, error) {
	lex, err := splitLexer.LexString("", contents)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lex migration")
	}

	var (
		stmts       []string
		current     strings.Builder
		lineBlank   = true
		dropNewline bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		current.Reset()
	}

	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, errors.Wrap(err, "failed to lex migration")
		}

		switch tok.Type {
		case lexer.EOF:
			flush()
			return stmts, nil
		case splitSymbols["Comment"]:
			// Full-line comments go away together with their line break.
			if lineBlank {
				dropNewline = true
				continue
			}
			current.WriteString(tok.Value)
		case splitSymbols["Newline"]:
			lineBlank = true
			if dropNewline {
				dropNewline = false
				continue
			}
			current.WriteString(tok.Value)
		case splitSymbols["Whitespace"]:
			current.WriteString(tok.Value)
		case splitSymbols["Terminator"]:
			flush()
			lineBlank = true
		default:
			current.WriteString(tok.Value)
			lineBlank = false
		}
	}
}
