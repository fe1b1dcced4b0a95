package errors

import (
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporter(t *testing.T) {
	source := `scope main() {
  %a = copy 1
  %a = copy 2
  return %a
}`

	reporter := NewErrorReporter("test.ir", source)

	err := NewMalformedScope("main", Position{Line: 3, Column: 3}, "temporary %%%s defined twice", "a").
		WithLength(2).
		WithHelp("rename one of the definitions").
		Build()
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorMalformedScope+"]")
	assert.Contains(t, formatted, "temporary %a defined twice")
	assert.Contains(t, formatted, "test.ir:3:3")
	assert.Contains(t, formatted, "%a = copy 2")
	assert.Contains(t, formatted, "help:")
	assert.Contains(t, formatted, "^^")
}

func TestErrorReporterWithoutPosition(t *testing.T) {
	reporter := NewErrorReporter("test.ir", "")

	err := NewPreconditionMissing("main.blk", "dce", "liveness").Build()
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "error["+ErrorPreconditionMissing+"]")
	assert.Contains(t, formatted, "scope main.blk")
	assert.Contains(t, formatted, "dce requires liveness")
	assert.NotContains(t, formatted, "test.ir:")
}

func TestKindSentinels(t *testing.T) {
	err := NewCompilationTimeout("main", "liveness", "no fixpoint after 3 iterations").Build()

	var wrapped error = err
	assert.True(t, stderrors.Is(wrapped, CompilationTimeout))
	assert.False(t, stderrors.Is(wrapped, MalformedScope))
	assert.Equal(t, "main: compilation timeout: liveness did not finish: no fixpoint after 3 iterations", err.Error())
	assert.True(t, err.IsFatal())

	var ce *CompileError
	assert.True(t, stderrors.As(wrapped, &ce))
	assert.Equal(t, ErrorCompilationTimeout, ce.Code)
}

func TestUnreachableBlockIsWarning(t *testing.T) {
	w := NewUnreachableBlock("main", 4, Position{Line: 7, Column: 1}).Build()

	assert.Equal(t, Warning, w.Level)
	assert.False(t, w.IsFatal())
	assert.True(t, IsWarning(w.Code))
	assert.Contains(t, w.Message, "B4")
	assert.Len(t, w.Notes, 1)

	formatted := NewErrorReporter("f.ir", strings.Repeat("x\n", 10)).FormatError(w)
	assert.Contains(t, formatted, "warning["+WarningUnreachableBlock+"]")
	assert.Contains(t, formatted, "note:")
}

func TestErrorCodeCategories(t *testing.T) {
	assert.Equal(t, "Pipeline", GetErrorCategory(ErrorMalformedScope))
	assert.Equal(t, "Pipeline", GetErrorCategory(ErrorCompilationTimeout))
	assert.Equal(t, "Syntax", GetErrorCategory(ErrorSyntax))
	assert.Equal(t, "Warning", GetErrorCategory(WarningUnreachableBlock))
	assert.Equal(t, "Unknown", GetErrorCategory(""))

	assert.False(t, IsWarning(ErrorMalformedScope))
	assert.NotEqual(t, "Unknown error code", GetErrorDescription(ErrorPreconditionMissing))
	assert.Equal(t, "Unknown error code", GetErrorDescription("E9999"))
}

func TestBuilderDoesNotAlias(t *testing.T) {
	b := NewSyntaxError("x.ir", Position{Line: 1, Column: 1}, "unexpected token")
	first := b.Build()
	b.WithNote("later note")
	second := b.Build()

	assert.Empty(t, first.Notes)
	assert.Len(t, second.Notes, 1)
	assert.Equal(t, SyntaxError, second.Kind)
}
