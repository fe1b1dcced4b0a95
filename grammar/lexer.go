package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// IRLexer tokenizes textual IR. Line ends are significant: one item per line.
var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments run to the end of the line; printed annotations use them
		{Name: "Comment", Pattern: `;[^\n]*`, Action: nil},

		// Temporaries
		{Name: "Temp", Pattern: `%[a-zA-Z0-9_]+`, Action: nil},

		// String literals
		{Name: "String", Pattern: `"(\\.|[^"\\\n])*"`, Action: nil},

		// Integer literals
		{Name: "Integer", Pattern: `-?[0-9]+`, Action: nil},

		// Keywords, op names, labels and argument names
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}(),:=]`, Action: nil},

		// Line ends, swallowing blank lines and indentation that follow
		{Name: "EOL", Pattern: `[\r\n]\s*`, Action: nil},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t]+`, Action: nil},
	},
})
