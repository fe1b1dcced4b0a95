package lsp

import (
	"context"
	stderrors "errors"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"irpipe/internal/config"
	"irpipe/internal/driver"
	"irpipe/internal/errors"
	"irpipe/internal/ir"
	"irpipe/internal/loader"
)

// Analyze loads a document and runs it through the pipeline, returning every problem found.
// Syntax errors stop the analysis; otherwise all producer problems of every scope are listed,
// followed by pipeline failures and warnings.
func Analyze(cfg *config.Config, filename, source string) []protocol.Diagnostic {
	diagnostics := []protocol.Diagnostic{}

	roots, err := loader.LoadString(filename, source)
	if err != nil {
		return append(diagnostics, ConvertError(err))
	}

	for _, root := range roots {
		root.Walk(func(s *ir.Scope) {
			for _, p := range s.Problems() {
				diagnostics = append(diagnostics, ConvertCompileError(p))
			}
		})
	}

	// Debug printing never goes to an editor
	quiet := *cfg
	quiet.Debug.Enabled = false
	quiet.Driver.AbortOnFirstError = false

	report, _ := driver.New(&quiet, nil).Compile(context.Background(), roots...)
	for _, res := range report.Results {
		if res.Err != nil && !stderrors.Is(res.Err, errors.MalformedScope) {
			diagnostics = append(diagnostics, ConvertError(res.Err))
		}
		for _, w := range res.Warnings {
			diagnostics = append(diagnostics, ConvertCompileError(w))
		}
	}
	return diagnostics
}

// ConvertError turns any error into a diagnostic, at the top of the file when it carries no
// position
func ConvertError(err error) protocol.Diagnostic {
	var ce *errors.CompileError
	if stderrors.As(err, &ce) {
		return ConvertCompileError(ce)
	}
	return protocol.Diagnostic{
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Source:   ptrString("irpipe"),
		Message:  err.Error(),
	}
}

// ConvertCompileError transforms a compile error into an LSP diagnostic for IDE display.
// Notes and help text are appended to the message.
func ConvertCompileError(err *errors.CompileError) protocol.Diagnostic {
	var start protocol.Position
	if err.Position.IsValid() {
		start = protocol.Position{
			Line:      uint32(err.Position.Line - 1),   // Convert to 0-based indexing
			Character: uint32(err.Position.Column - 1), // Convert to 0-based indexing
		}
	}

	length := err.Length
	if length <= 0 {
		length = 1
	}
	end := start
	end.Character += uint32(length)

	severity := protocol.DiagnosticSeverityError
	switch err.Level {
	case errors.Warning:
		severity = protocol.DiagnosticSeverityWarning
	case errors.Note, errors.Help:
		severity = protocol.DiagnosticSeverityInformation
	}

	message := err.Message
	if err.Scope != "" && err.Kind != errors.SyntaxError {
		message = err.Scope + ": " + message
	}
	for _, note := range err.Notes {
		message += "\nnote: " + note
	}
	if err.HelpText != "" {
		message += "\nhelp: " + err.HelpText
	}

	diagnostic := protocol.Diagnostic{
		Range:    protocol.Range{Start: start, End: end},
		Severity: ptrSeverity(severity),
		Source:   ptrString(source(err)),
		Message:  message,
	}
	if err.Code != "" {
		diagnostic.Code = &protocol.IntegerOrString{Value: err.Code}
	}
	return diagnostic
}

func source(err *errors.CompileError) string {
	if err.Kind == errors.SyntaxError {
		return "irpipe-parser"
	}
	return "irpipe"
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
