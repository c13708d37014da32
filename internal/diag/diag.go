// Completion: 100% - Error handling complete, clear and helpful messages

// Package diag defines the compiler's error values and their formatting
package diag

import (
	"fmt"
	"strings"
)

// Level indicates the severity of an error
type Level int

const (
	LevelWarning Level = iota
	LevelError
	LevelFatal
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// Kind is the closed set of failures the compiler reports
type Kind int

const (
	ErrNone Kind = iota
	ErrFileOpen
	ErrNoMainFunction
	ErrUndefinedFunction
	ErrMissingRuntime
	ErrUnresolvedLabel
	ErrLabelsNotConverged
	ErrInput
)

func (k Kind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrFileOpen:
		return "file open"
	case ErrNoMainFunction:
		return "no main function"
	case ErrUndefinedFunction:
		return "undefined function"
	case ErrMissingRuntime:
		return "missing runtime"
	case ErrUnresolvedLabel:
		return "unresolved label"
	case ErrLabelsNotConverged:
		return "labels not converged"
	case ErrInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Location is where an error was found. Any field may be empty.
type Location struct {
	File     string
	Line     int
	Function string
}

func (loc Location) String() string {
	var parts []string
	if loc.File != "" {
		parts = append(parts, loc.File)
	}
	if loc.Line > 0 {
		parts = append(parts, fmt.Sprintf("%d", loc.Line))
	}
	s := strings.Join(parts, ":")
	if loc.Function != "" {
		if s != "" {
			s += " "
		}
		s += "in " + loc.Function
	}
	return s
}

// Context provides additional context for an error
type Context struct {
	SourceLine string
	Suggestion string // "did you mean 'x'?"
	HelpText   string
}

// CompilerError is a single compilation error
type CompilerError struct {
	Level    Level
	Kind     Kind
	Message  string
	Location Location
	Context  Context
}

// Error implements the error interface
func (e *CompilerError) Error() string {
	if loc := e.Location.String(); loc != "" {
		return fmt.Sprintf("%s: %s", loc, e.Message)
	}
	return e.Message
}

// Is matches another *CompilerError by Kind, so errors.Is(err, diag.New(k, ""))
// works as a kind check
func (e *CompilerError) Is(target error) bool {
	t, ok := target.(*CompilerError)
	return ok && t.Kind == e.Kind
}

const (
	colorRed   = "\033[1;31m"
	colorBlue  = "\033[1;34m"
	colorGreen = "\033[1;32m"
	colorCyan  = "\033[1;36m"
	colorReset = "\033[0m"
)

func paint(sb *strings.Builder, useColor bool, color, s string) {
	if useColor {
		sb.WriteString(color)
	}
	sb.WriteString(s)
	if useColor {
		sb.WriteString(colorReset)
	}
}

// Format returns the error with its location and hints, one item per line
func (e *CompilerError) Format(useColor bool) string {
	var sb strings.Builder

	paint(&sb, useColor, colorRed, e.Level.String()+": ")
	sb.WriteString(e.Message)
	sb.WriteString("\n")

	if loc := e.Location.String(); loc != "" {
		paint(&sb, useColor, colorBlue, "  --> "+loc)
		sb.WriteString("\n")
	}

	if e.Context.SourceLine != "" && e.Location.Line > 0 {
		lineNum := fmt.Sprintf("%d", e.Location.Line)
		padding := strings.Repeat(" ", len(lineNum)+1)
		sb.WriteString(padding + "|\n")
		sb.WriteString(lineNum + " | " + e.Context.SourceLine + "\n")
		sb.WriteString(padding + "|\n")
	}

	if e.Context.Suggestion != "" {
		paint(&sb, useColor, colorGreen, "   help: ")
		sb.WriteString(e.Context.Suggestion)
		sb.WriteString("\n")
	}

	if e.Context.HelpText != "" {
		paint(&sb, useColor, colorCyan, "   note: ")
		sb.WriteString(e.Context.HelpText)
		sb.WriteString("\n")
	}

	return sb.String()
}

// New creates an error of the given kind
func New(kind Kind, format string, args ...any) *CompilerError {
	return &CompilerError{
		Level:   LevelError,
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of err, ErrNone for nil and ErrInput for errors
// that did not come from this package
func KindOf(err error) Kind {
	if err == nil {
		return ErrNone
	}
	for e := err; e != nil; {
		if ce, ok := e.(*CompilerError); ok {
			return ce.Kind
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ErrInput
}

// NoMainFunction is reported when the program lacks the entry function
func NoMainFunction(name string) *CompilerError {
	e := New(ErrNoMainFunction, "no '%s' function", name)
	e.Context.HelpText = fmt.Sprintf("execution starts by calling '%s'", name)
	return e
}

// UndefinedFunction is reported for calls to unknown functions. suggestion
// may be empty.
func UndefinedFunction(name, caller, suggestion string) *CompilerError {
	e := New(ErrUndefinedFunction, "undefined function '%s'", name)
	e.Location.Function = caller
	if suggestion != "" {
		e.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", suggestion)
	}
	return e
}

// MissingRuntime is reported for calls to I/O functions when the runtime is
// left out of the binary
func MissingRuntime(name, caller string) *CompilerError {
	e := New(ErrMissingRuntime, "'%s' needs the I/O runtime, which is disabled", name)
	e.Location.Function = caller
	e.Context.HelpText = "build without --no-runtime"
	return e
}

// UnresolvedLabel is reported when a jump target was never defined
func UnresolvedLabel(names []string) *CompilerError {
	return New(ErrUnresolvedLabel, "unresolved label(s): %s", strings.Join(names, ", "))
}

// LabelsNotConverged is reported when label offsets keep moving
func LabelsNotConverged(passes int) *CompilerError {
	e := New(ErrLabelsNotConverged, "label offsets did not settle after %d passes", passes)
	e.Level = LevelFatal
	e.Context.HelpText = "this is an internal compiler error, please report it"
	return e
}

// FileOpen is reported when an input or output file cannot be used
func FileOpen(path string, err error) *CompilerError {
	e := New(ErrFileOpen, "%v", err)
	e.Location.File = path
	return e
}

// Input is reported for malformed program files
func Input(path string, line int, msg string) *CompilerError {
	e := New(ErrInput, "%s", msg)
	e.Location.File = path
	e.Location.Line = line
	return e
}
