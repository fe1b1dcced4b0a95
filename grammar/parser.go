package grammar

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
)

var parser = participle.MustBuild[File](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(4),
)

func ParseFile(path string) (*File, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseString(path, string(source))
}

// ParseString parses IR text. A missing final line end is tolerated.
func ParseString(filename, source string) (*File, error) {
	if !strings.HasSuffix(source, "\n") {
		source += "\n"
	}
	return parser.ParseString(filename, source)
}

// ErrorPosition extracts the location and bare message of a parse error
func ErrorPosition(err error) (line, column int, message string) {
	pe, ok := err.(participle.Error)
	if !ok {
		return 0, 0, err.Error()
	}
	pos := pe.Position()
	return pos.Line, pos.Column, pe.Message()
}
