package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeArgument ErrorType = "Argument"
	ErrorTypeConfig   ErrorType = "Configuration"
	ErrorTypeFunction ErrorType = "Function"
	ErrorTypeStore    ErrorType = "Store"
	ErrorTypeFormat   ErrorType = "Format"
)

// Process exit codes. Success is 0; a suppressed empty report exits with
// ExitNothingToReport so scripts can tell "ran clean" from "ran empty".
const (
	ExitOK              = 0
	ExitNothingToReport = 1
	ExitUsage           = 64 // EX_USAGE
	ExitUnavailable     = 69 // EX_UNAVAILABLE
	ExitFunction        = 70 // EX_SOFTWARE
	ExitConfig          = 78 // EX_CONFIG
)

// ErrNothingToReport signals that an empty report was suppressed. It is
// not a failure; callers map it to ExitNothingToReport.
var ErrNothingToReport = errors.New("nothing to report")

// AuditError is a user-facing error with actionable guidance.
type AuditError struct {
	Type      ErrorType
	Message   string
	Cause     string
	Solutions []string
	Help      string
}

// Error implements the error interface
func (e *AuditError) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Error: %s\n", e.Message))

	if e.Cause != "" {
		sb.WriteString(fmt.Sprintf("Cause: %s\n", e.Cause))
	}

	if len(e.Solutions) > 0 {
		sb.WriteString("\nSolutions:\n")
		for _, solution := range e.Solutions {
			sb.WriteString(fmt.Sprintf("  %s\n", solution))
		}
	}

	if e.Help != "" {
		sb.WriteString(fmt.Sprintf("Help: %s\n", e.Help))
	}

	return sb.String()
}

// New creates a new AuditError
func New(errType ErrorType, message string) *AuditError {
	return &AuditError{
		Type:    errType,
		Message: message,
	}
}

// WithCause adds cause information
func (e *AuditError) WithCause(cause string) *AuditError {
	e.Cause = cause
	return e
}

// WithSolutions adds solution steps
func (e *AuditError) WithSolutions(solutions ...string) *AuditError {
	e.Solutions = append(e.Solutions, solutions...)
	return e
}

// WithHelp adds a help command
func (e *AuditError) WithHelp(help string) *AuditError {
	e.Help = help
	return e
}

// IsUsageError reports whether the error should be presented as a usage
// message rather than a failure.
func IsUsageError(err error) bool {
	var ae *AuditError
	if errors.As(err, &ae) {
		return ae.Type == ErrorTypeArgument || ae.Type == ErrorTypeFormat
	}
	return false
}

// GetExitCode returns the exit code for an error type
func GetExitCode(err error) int {
	if errors.Is(err, ErrNothingToReport) {
		return ExitNothingToReport
	}

	var ae *AuditError
	if !errors.As(err, &ae) {
		return ExitFunction
	}

	switch ae.Type {
	case ErrorTypeArgument, ErrorTypeFormat:
		return ExitUsage
	case ErrorTypeConfig:
		return ExitConfig
	case ErrorTypeStore:
		return ExitUnavailable
	default:
		return ExitFunction
	}
}
