// Completion: 100% - Module complete
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/xyproto/potter/internal/ast"
	"github.com/xyproto/potter/internal/codegen"
	"github.com/xyproto/potter/internal/config"
	"github.com/xyproto/potter/internal/diag"
	"github.com/xyproto/potter/internal/symtab"
)

// session carries the settings of one command invocation
type session struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// unit is one compiled program file
type unit struct {
	path   string
	source []byte
	root   *ast.Node
	table  *symtab.Table
	result *codegen.Result
}

// reportedError means the diagnostics were already written to stderr
type reportedError struct {
	count int
}

func (e reportedError) Error() string {
	return fmt.Sprintf("%d error(s)", e.count)
}

func reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

func (s *session) logf(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(s.stderr, format, args...)
	}
}

// useColor decides whether diagnostics on stderr get ANSI colours
func (s *session) useColor() bool {
	if s.cfg.NoColor {
		return false
	}
	f, ok := s.stderr.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// report writes err as formatted diagnostics and returns a reportedError
func (s *session) report(u *unit, err error) error {
	c := diag.NewCollector(0)
	if u != nil && u.source != nil {
		c.SetSource(u.path, string(u.source))
	}
	c.Add(err)
	fmt.Fprint(s.stderr, c.Report(s.useColor()))
	return reportedError{count: c.ErrorCount()}
}

// parse reads and parses path, without generating code
func (s *session) parse(path string) (*unit, error) {
	u := &unit{path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		return u, diag.FileOpen(path, err)
	}
	u.source = data

	root, err := ast.Parse(data)
	if err != nil {
		var se *ast.SyntaxError
		if errors.As(err, &se) {
			return u, diag.Input(path, se.Line, se.Msg)
		}
		return u, diag.Input(path, 0, err.Error())
	}
	u.root = root
	s.logf("parsed %s\n", path)

	table, err := symtab.Build(root)
	if err != nil {
		return u, diag.Input(path, 0, err.Error())
	}
	u.table = table
	return u, nil
}

// compile parses path and generates its executable image
func (s *session) compile(path string, listing bool) (*unit, error) {
	u, err := s.parse(path)
	if err != nil {
		return u, err
	}
	opts := s.cfg.Options(path)
	opts.Listing = opts.Listing || listing
	opts.Log = s.stderr

	res, err := codegen.Compile(u.root, u.table, opts)
	if err != nil {
		return u, err
	}
	u.result = res
	s.logf("compiled %s: %d bytes in %d passes\n", path, len(res.ELF), res.Passes)
	return u, nil
}

// mustCompile is compile with the diagnostics reported
func (s *session) mustCompile(path string, listing bool) (*unit, error) {
	u, err := s.compile(path, listing)
	if err != nil {
		return nil, s.report(u, err)
	}
	return u, nil
}

// writeOutputs stores the executable and, if listingPath is set, the listing
func (s *session) writeOutputs(u *unit, output, listingPath string) error {
	if err := os.WriteFile(output, u.result.ELF, 0o755); err != nil {
		return diag.FileOpen(output, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(output, 0o755); err != nil {
		return diag.FileOpen(output, err)
	}
	s.logf("wrote %s\n", output)

	if listingPath == "" {
		return nil
	}
	if err := os.WriteFile(listingPath, []byte(u.result.Listing), 0o644); err != nil {
		return diag.FileOpen(listingPath, err)
	}
	s.logf("wrote %s\n", listingPath)
	return nil
}

// build compiles path and writes the outputs
func (s *session) build(path, output, listingPath string) error {
	u, err := s.mustCompile(path, listingPath != "")
	if err != nil {
		return err
	}
	if err := s.writeOutputs(u, output, listingPath); err != nil {
		return s.report(nil, err)
	}
	return nil
}

// outputName derives the executable name for path when several files are
// built at once
func outputName(path string) string {
	ext := filepath.Ext(path)
	if ext == "" || ext == filepath.Base(path) {
		return path + ".out"
	}
	return strings.TrimSuffix(path, ext)
}
