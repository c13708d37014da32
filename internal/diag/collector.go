package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Collector accumulates errors and warnings, for example across the files
// of one build
type Collector struct {
	errors    []*CompilerError
	warnings  []*CompilerError
	maxErrors int
	sources   map[string][]string
}

// NewCollector creates a collector that stops accepting errors after
// maxErrors (10 if maxErrors <= 0)
func NewCollector(maxErrors int) *Collector {
	if maxErrors <= 0 {
		maxErrors = 10
	}
	return &Collector{
		maxErrors: maxErrors,
		sources:   make(map[string][]string),
	}
}

// SetSource stores the text of a file so errors can quote the offending line
func (c *Collector) SetSource(file, source string) {
	c.sources[file] = strings.Split(source, "\n")
}

func (c *Collector) sourceLine(loc Location) string {
	lines := c.sources[loc.File]
	if loc.Line <= 0 || loc.Line > len(lines) {
		return ""
	}
	return lines[loc.Line-1]
}

// Add records err. Errors that are not a *CompilerError are wrapped as
// ErrInput.
func (c *Collector) Add(err error) {
	if err == nil || c.ShouldStop() {
		return
	}
	var ce *CompilerError
	if !errors.As(err, &ce) {
		ce = New(ErrInput, "%v", err)
	}
	if ce.Context.SourceLine == "" {
		ce.Context.SourceLine = c.sourceLine(ce.Location)
	}
	if ce.Level == LevelWarning {
		c.warnings = append(c.warnings, ce)
		return
	}
	c.errors = append(c.errors, ce)
}

// HasErrors returns true if any errors were collected
func (c *Collector) HasErrors() bool {
	return len(c.errors) > 0
}

// HasFatalError returns true if any fatal errors were collected
func (c *Collector) HasFatalError() bool {
	for _, err := range c.errors {
		if err.Level == LevelFatal {
			return true
		}
	}
	return false
}

// ErrorCount returns the number of errors
func (c *Collector) ErrorCount() int {
	return len(c.errors)
}

// WarningCount returns the number of warnings
func (c *Collector) WarningCount() int {
	return len(c.warnings)
}

// ShouldStop returns true once the error limit is reached
func (c *Collector) ShouldStop() bool {
	return len(c.errors) >= c.maxErrors
}

// Errors returns the collected errors
func (c *Collector) Errors() []*CompilerError {
	return c.errors
}

// Report formats all errors and warnings, followed by a summary line
func (c *Collector) Report(useColor bool) string {
	var sb strings.Builder
	all := append(append([]*CompilerError(nil), c.errors...), c.warnings...)
	for i, e := range all {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(e.Format(useColor))
	}
	if len(all) == 0 {
		return ""
	}

	sb.WriteString("\n")
	if len(c.errors) > 0 {
		paint(&sb, useColor, colorRed, fmt.Sprintf("%d error(s)", len(c.errors)))
	}
	if len(c.warnings) > 0 {
		if len(c.errors) > 0 {
			sb.WriteString(", ")
		}
		paint(&sb, useColor, "\033[1;33m", fmt.Sprintf("%d warning(s)", len(c.warnings)))
	}
	sb.WriteString(" found\n")
	return sb.String()
}

// Clear resets the collector
func (c *Collector) Clear() {
	c.errors = nil
	c.warnings = nil
}
