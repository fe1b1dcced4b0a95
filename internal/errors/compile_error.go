package errors

import (
	"fmt"
	"strings"
)

// Kind classifies a compile error. Kinds are sentinel errors: a CompileError unwraps to its
// Kind, so callers can test with errors.Is(err, errors.MalformedScope).
type Kind string

const (
	MalformedScope           Kind = "malformed scope"
	PreconditionMissing      Kind = "precondition missing"
	UnreachableBlockDetected Kind = "unreachable block detected"
	CompilationTimeout       Kind = "compilation timeout"
	SyntaxError              Kind = "syntax error"
)

func (k Kind) Error() string { return string(k) }

// Position is a 1-based line/column location in IR text
type Position struct {
	Line   int
	Column int
}

// IsValid reports whether the position points into a source text
func (p Position) IsValid() bool { return p.Line > 0 }

// CompileError is a structured diagnostic scoped to a single scope
type CompileError struct {
	Kind     Kind
	Level    ErrorLevel
	Code     string   // Error code like E0001
	Scope    string   // Dotted path of the scope being compiled
	Message  string   // Primary error message
	Position Position // Location in IR text, if any
	Length   int      // Length of the problematic region
	Notes    []string // Additional context notes
	HelpText string   // Help text for the error
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	if e.Scope != "" {
		sb.WriteString(e.Scope)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	return sb.String()
}

func (e *CompileError) Unwrap() error { return e.Kind }

// IsFatal reports whether the error aborts compilation of its scope
func (e *CompileError) IsFatal() bool { return e.Level == Error }

// ErrorBuilder provides a fluent interface for creating compile errors
type ErrorBuilder struct {
	err CompileError
}

func newBuilder(kind Kind, level ErrorLevel, code, message string) *ErrorBuilder {
	return &ErrorBuilder{
		err: CompileError{
			Kind:    kind,
			Level:   level,
			Code:    code,
			Message: message,
			Length:  1,
		},
	}
}

// InScope sets the scope path of the error
func (b *ErrorBuilder) InScope(path string) *ErrorBuilder {
	b.err.Scope = path
	return b
}

// At sets the source position of the error
func (b *ErrorBuilder) At(pos Position) *ErrorBuilder {
	b.err.Position = pos
	return b
}

// WithLength sets the length of the error span
func (b *ErrorBuilder) WithLength(length int) *ErrorBuilder {
	b.err.Length = length
	return b
}

// WithNote adds a note to the error
func (b *ErrorBuilder) WithNote(note string) *ErrorBuilder {
	b.err.Notes = append(b.err.Notes, note)
	return b
}

// WithHelp adds help text to the error
func (b *ErrorBuilder) WithHelp(help string) *ErrorBuilder {
	b.err.HelpText = help
	return b
}

// Build returns the completed compile error
func (b *ErrorBuilder) Build() *CompileError {
	err := b.err
	return &err
}

// Common constructors

// NewMalformedScope reports a producer invariant violation
func NewMalformedScope(scope string, pos Position, format string, args ...any) *ErrorBuilder {
	return newBuilder(MalformedScope, Error, ErrorMalformedScope, fmt.Sprintf(format, args...)).
		InScope(scope).
		At(pos)
}

// NewPreconditionMissing reports a pass invoked without its upstream artifact
func NewPreconditionMissing(scope, pass, artifact string) *ErrorBuilder {
	return newBuilder(PreconditionMissing, Error, ErrorPreconditionMissing,
		fmt.Sprintf("%s requires %s, which has not been computed", pass, artifact)).
		InScope(scope).
		WithHelp("the pipeline runs passes in dependency order; check the pass list")
}

// NewCompilationTimeout reports a fixpoint or pass chain that exceeded its budget
func NewCompilationTimeout(scope, stage, detail string) *ErrorBuilder {
	return newBuilder(CompilationTimeout, Error, ErrorCompilationTimeout,
		fmt.Sprintf("%s did not finish: %s", stage, detail)).
		InScope(scope)
}

// NewUnreachableBlock reports a block with no path from the entry
func NewUnreachableBlock(scope string, block int, pos Position) *ErrorBuilder {
	return newBuilder(UnreachableBlockDetected, Warning, WarningUnreachableBlock,
		fmt.Sprintf("block B%d is unreachable", block)).
		InScope(scope).
		At(pos).
		WithNote("the block is kept and flagged; later passes may prune it")
}

// NewSyntaxError reports malformed IR text
func NewSyntaxError(file string, pos Position, message string) *ErrorBuilder {
	return newBuilder(SyntaxError, Error, ErrorSyntax, message).
		InScope(file).
		At(pos)
}
