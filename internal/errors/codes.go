package errors

// Error codes for the irpipe middle-end
// These codes are used in diagnostics and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// E0001-E0099: Pipeline errors (scope invariants, pass ordering, budgets)
// E0100-E0199: IR text syntax errors
// E0800-E0899: Reserved for future warnings
// W0001-W0099: Non-fatal pass diagnostics

const (
	// E0001: Producer handed over a scope that violates single-definition or operand scoping
	ErrorMalformedScope = "E0001"

	// E0002: A pass ran without the artifact it depends on
	ErrorPreconditionMissing = "E0002"

	// E0003: A fixpoint did not converge within the configured budget
	ErrorCompilationTimeout = "E0003"

	// E0100: IR text could not be parsed
	ErrorSyntax = "E0100"

	// W0001: Basic block not reachable from the entry
	WarningUnreachableBlock = "W0001"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorMalformedScope:
		return "Scope violates the single-definition or operand scoping invariant"
	case ErrorPreconditionMissing:
		return "Pass invoked before the artifact it requires was computed"
	case ErrorCompilationTimeout:
		return "Compilation exceeded its iteration or time budget"
	case ErrorSyntax:
		return "IR text is not well formed"
	case WarningUnreachableBlock:
		return "Basic block is unreachable from the scope entry"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code != "" && (code >= "E0800" && code < "E0900" || code[0] == 'W')
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code == "":
		return "Unknown"
	case code >= "E0001" && code < "E0100":
		return "Pipeline"
	case code >= "E0100" && code < "E0200":
		return "Syntax"
	case code >= "E0800" && code < "E0900":
		return "Warning"
	case code[0] == 'W':
		return "Warning"
	default:
		return "Unknown"
	}
}
