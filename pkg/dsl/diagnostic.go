package dsl

import (
	"fmt"

	"github.com/leapstack-labs/vale-ls/pkg/token"
)

// DiagnosticKind is the category of a configuration problem.
type DiagnosticKind string

const (
	SchemaViolation     DiagnosticKind = "SchemaViolation"
	UnresolvedReference DiagnosticKind = "UnresolvedReference"
	CyclicInheritance   DiagnosticKind = "CyclicInheritance"
	AssetUnreadable     DiagnosticKind = "AssetUnreadable"
)

// Severity mirrors the editor protocol's numbering.
type Severity int

const (
	SeverityError       Severity = 1
	SeverityWarning     Severity = 2
	SeverityInformation Severity = 3
	SeverityHint        Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInformation:
		return "info"
	default:
		return "hint"
	}
}

// Diagnostic is a problem found in user-authored configuration. It is data,
// not a Go error: parsing and resolution always continue past it.
type Diagnostic struct {
	Kind     DiagnosticKind
	Severity Severity
	File     string
	Span     token.Span
	Message  string
	Expected string
	Found    string
}

// Errorf builds an error-severity diagnostic.
func Errorf(kind DiagnosticKind, span token.Span, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: SeverityError,
		Span:     span,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Warnf builds a warning-severity diagnostic.
func Warnf(kind DiagnosticKind, span token.Span, format string, args ...any) Diagnostic {
	d := Errorf(kind, span, format, args...)
	d.Severity = SeverityWarning
	return d
}

// WithExpected attaches the expected/found pair shown to the user.
func (d Diagnostic) WithExpected(expected, found string) Diagnostic {
	d.Expected = expected
	d.Found = found
	return d
}

// Text renders the message with the expected/found hint when present.
func (d Diagnostic) Text() string {
	switch {
	case d.Expected != "" && d.Found != "":
		return fmt.Sprintf("%s (expected %s, found %q)", d.Message, d.Expected, d.Found)
	case d.Expected != "":
		return fmt.Sprintf("%s (expected %s)", d.Message, d.Expected)
	}
	return d.Message
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%s: %s: %s", d.File, d.Span.Start, d.Kind, d.Text())
}
