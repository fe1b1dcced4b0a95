package lsp

import (
	"github.com/alecthomas/participle/v2/lexer"

	"irpipe/grammar"
	"irpipe/internal/ir"
)

// SemanticToken represents a single LSP semantic token entry
// Line and StartChar are 0-based positions
// TokenType is an index into the SemanticTokenTypes array
// TokenModifiers is a bitmask based on SemanticTokenModifiers
type SemanticToken struct {
	Line           uint32
	StartChar      uint32
	Length         uint32
	TokenType      int // index into SemanticTokenTypes
	TokenModifiers int // bitmask
}

var (
	symbols     = grammar.IRLexer.Symbols()
	tokComment  = symbols["Comment"]
	tokTemp     = symbols["Temp"]
	tokString   = symbols["String"]
	tokInteger  = symbols["Integer"]
	tokIdent    = symbols["Ident"]
	tokPunct    = symbols["Punctuation"]
	tokEOL      = symbols["EOL"]
	tokSpace    = symbols["Whitespace"]
	scopeKinds  = map[string]bool{"script": true, "method": true, "closure": true}
	namedValues = map[string]bool{"self": true, "true": true, "false": true, "nil": true, "_": true}
)

// tokenizer classifies the lexer stream of one document. IR is line oriented, so a small
// amount of per-line state is enough to tell ops, callees, labels and names apart.
type tokenizer struct {
	tokens []lexer.Token
	out    []SemanticToken

	inHeader bool // between a scope kind and the opening brace
	opSeen   bool // the op of the current line has been classified
	op       string
	operand  int // operands of the current line seen so far
}

func collectSemanticTokens(filename, source string) []SemanticToken {
	lex, err := grammar.IRLexer.LexString(filename, source)
	if err != nil {
		return nil
	}
	tokens, err := lexer.ConsumeAll(lex)
	if err != nil {
		return nil
	}

	significant := tokens[:0]
	for _, tok := range tokens {
		if tok.Type != tokSpace && !tok.EOF() {
			significant = append(significant, tok)
		}
	}

	t := &tokenizer{tokens: significant}
	for i := range t.tokens {
		t.classify(i)
	}
	return t.out
}

func (t *tokenizer) emit(tok lexer.Token, typ string, modifiers ...string) {
	t.out = append(t.out, SemanticToken{
		Line:           uint32(tok.Pos.Line - 1),
		StartChar:      uint32(tok.Pos.Column - 1),
		Length:         uint32(len(tok.Value)),
		TokenType:      tokenTypeIndex(typ),
		TokenModifiers: modifierMask(modifiers),
	})
}

func (t *tokenizer) peek(i, n int) *lexer.Token {
	if i+n < len(t.tokens) {
		return &t.tokens[i+n]
	}
	return nil
}

func (t *tokenizer) classify(i int) {
	tok := t.tokens[i]
	switch tok.Type {
	case tokEOL:
		t.opSeen, t.op, t.operand = false, "", 0
	case tokComment:
		t.emit(tok, "comment")
	case tokTemp:
		if !t.opSeen {
			t.emit(tok, "variable", "declaration")
		} else {
			t.emit(tok, "variable")
		}
	case tokString:
		t.emit(tok, "string")
	case tokInteger:
		t.emit(tok, "number")
	case tokPunct:
		switch tok.Value {
		case "{":
			t.inHeader = false
		case ",":
			t.operand++
		}
	case tokIdent:
		t.classifyIdent(i, tok)
	}
}

func (t *tokenizer) classifyIdent(i int, tok lexer.Token) {
	next := t.peek(i, 1)

	switch {
	case t.inHeader:
		switch {
		case tok.Value == "ensure":
			t.emit(tok, "keyword")
		case t.op == "ensure-label":
			t.emit(tok, "label")
		case t.op == "":
			t.emit(tok, "function", "declaration")
			t.op = "scope-name"
		default:
			t.emit(tok, "parameter", "declaration")
		}
		if tok.Value == "ensure" {
			t.op = "ensure-label"
		}

	case !t.opSeen && scopeKinds[tok.Value] && next != nil && next.Type == tokIdent && isOpenParen(t.peek(i, 2)):
		t.emit(tok, "keyword")
		t.inHeader = true
		t.opSeen = true

	case !t.opSeen && next != nil && next.Value == ":":
		t.emit(tok, "label", "declaration")
		t.opSeen = true

	case !t.opSeen:
		if _, ok := ir.LookupOp(tok.Value); ok {
			t.emit(tok, "operator")
		} else {
			t.emit(tok, "keyword")
		}
		t.opSeen = true
		t.op = tok.Value

	case t.op == "call" && t.operand == 0 && next != nil && next.Value == "(":
		t.emit(tok, "function")

	case t.op == "jump" || (t.op == "branch" && t.operand == 1):
		t.emit(tok, "label")

	case t.op == "closure":
		t.emit(tok, "function")

	case namedValues[tok.Value]:
		t.emit(tok, "keyword")

	case t.op == "load_captured" || t.op == "store_captured":
		t.emit(tok, "variable", "readonly")

	default:
		t.emit(tok, "parameter")
	}
}

func isOpenParen(tok *lexer.Token) bool {
	return tok != nil && tok.Value == "("
}

func tokenTypeIndex(typ string) int {
	for i, t := range SemanticTokenTypes {
		if t == typ {
			return i
		}
	}
	return 0
}

func modifierMask(modifiers []string) int {
	mask := 0
	for _, m := range modifiers {
		for i, name := range SemanticTokenModifiers {
			if name == m {
				mask |= 1 << i
			}
		}
	}
	return mask
}
