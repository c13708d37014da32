// Completion: 100% - Module complete

// Package symtab holds the functions, variables and string literals of a
// program, and the stack frame layout derived from them.
package symtab

import (
	"errors"
	"fmt"
	"sort"

	"github.com/xyproto/potter/internal/ast"
)

const (
	// MainFunction is the function _start calls
	MainFunction = "love"

	// IOBufferSize is the size of the scratch buffer the I/O runtime uses
	IOBufferSize = 256

	// SlotSize is the size of one stack slot
	SlotSize = 8

	// firstParamOffset skips the saved rbp and the return address
	firstParamOffset = 2 * SlotSize
)

var (
	ErrDuplicateFunction = errors.New("function declared twice")
	ErrDuplicateString   = errors.New("string declared twice")
	ErrDuplicateVariable = errors.New("variable declared twice")
)

// Function is a function symbol. Vars lists parameters first, then locals in
// declaration order.
type Function struct {
	Name       string
	Vars       []string
	ParamCount int
	Void       bool

	// Builtin functions are provided by the runtime rather than the program
	Builtin bool
	// NeedsBuffer means callers also pass a pointer to the I/O buffer
	NeedsBuffer bool
}

// Params returns the parameter names
func (f *Function) Params() []string {
	return f.Vars[:f.ParamCount]
}

// Locals returns the local variable names
func (f *Function) Locals() []string {
	return f.Vars[f.ParamCount:]
}

// LocalCount returns the number of stack slots reserved by the prologue
func (f *Function) LocalCount() int {
	return len(f.Vars) - f.ParamCount
}

// Index returns the position of name in Vars, or -1
func (f *Function) Index(name string) int {
	for i, v := range f.Vars {
		if v == name {
			return i
		}
	}
	return -1
}

// Offset returns the rbp-relative offset of a variable. Parameters live
// above the saved rbp and return address, locals below rbp.
func (f *Function) Offset(name string) (int32, bool) {
	i := f.Index(name)
	if i < 0 {
		return 0, false
	}
	return f.OffsetOf(i), true
}

// OffsetOf returns the rbp-relative offset of Vars[i]. Functions that take
// the I/O buffer find it where their first parameter would be.
func (f *Function) OffsetOf(i int) int32 {
	off := SlotOffset(i, f.ParamCount)
	if f.NeedsBuffer && i < f.ParamCount {
		off += SlotSize
	}
	return off
}

// SlotOffset computes the frame offset of variable i in a function with
// paramCount parameters
func SlotOffset(i, paramCount int) int32 {
	if i < paramCount {
		return int32(firstParamOffset + i*SlotSize)
	}
	return int32(-(i - paramCount + 1) * SlotSize)
}

// ArgBytes returns how many bytes a caller pushes for this function
func (f *Function) ArgBytes() int32 {
	n := f.ParamCount
	if f.NeedsBuffer {
		n++
	}
	return int32(n * SlotSize)
}

func (f *Function) addVar(name string) error {
	if f.Index(name) >= 0 {
		return fmt.Errorf("%s in %s: %w", name, f.Name, ErrDuplicateVariable)
	}
	f.Vars = append(f.Vars, name)
	return nil
}

// String is a string literal. Named strings come from declarations,
// anonymous ones from literals in expressions.
type String struct {
	Name    string
	Content string
}

// Table is the symbol table of one program
type Table struct {
	functions []*Function
	byName    map[string]*Function
	strings   []String
}

// New creates a table with the built-in I/O functions registered
func New() *Table {
	t := &Table{byName: make(map[string]*Function)}
	for _, b := range Builtins {
		fn := &Function{
			Name:        b.Name,
			Vars:        append([]string(nil), b.Params...),
			ParamCount:  len(b.Params),
			Builtin:     true,
			NeedsBuffer: b.NeedsBuffer,
		}
		t.functions = append(t.functions, fn)
		t.byName[fn.Name] = fn
	}
	return t
}

// AddFunction registers a program function
func (t *Table) AddFunction(name string, params []string, void bool) (*Function, error) {
	if _, ok := t.byName[name]; ok {
		return nil, fmt.Errorf("%s: %w", name, ErrDuplicateFunction)
	}
	fn := &Function{Name: name, Void: void}
	for _, p := range params {
		if err := fn.addVar(p); err != nil {
			return nil, err
		}
	}
	fn.ParamCount = len(fn.Vars)
	t.functions = append(t.functions, fn)
	t.byName[name] = fn
	return fn, nil
}

// Function looks a function up by name
func (t *Table) Function(name string) *Function {
	return t.byName[name]
}

// Functions returns every function, built-ins first, in declaration order
func (t *Table) Functions() []*Function {
	return t.functions
}

// UserFunctions returns the functions declared by the program
func (t *Table) UserFunctions() []*Function {
	var out []*Function
	for _, f := range t.functions {
		if !f.Builtin {
			out = append(out, f)
		}
	}
	return out
}

// FunctionNames returns the names of all functions, sorted
func (t *Table) FunctionNames() []string {
	names := make([]string, 0, len(t.functions))
	for _, f := range t.functions {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// AddString registers a string. A named string must be unique; an anonymous
// string is added once per distinct content.
func (t *Table) AddString(name, content string) error {
	if name != "" {
		if _, ok := t.ByName(name); ok {
			return fmt.Errorf("%s: %w", name, ErrDuplicateString)
		}
		t.strings = append(t.strings, String{Name: name, Content: content})
		return nil
	}
	if _, ok := t.ByContent(content); ok {
		return nil
	}
	t.strings = append(t.strings, String{Content: content})
	return nil
}

// Strings returns all strings in registration order
func (t *Table) Strings() []String {
	return t.strings
}

// ByName finds a named string
func (t *Table) ByName(name string) (int, bool) {
	for i, s := range t.strings {
		if s.Name != "" && s.Name == name {
			return i, true
		}
	}
	return -1, false
}

// ByContent finds the first string with the given content
func (t *Table) ByContent(content string) (int, bool) {
	for i, s := range t.strings {
		if s.Content == content {
			return i, true
		}
	}
	return -1, false
}

// StringLabel returns the data label of string i: its name, or STR<i>
func (t *Table) StringLabel(i int) string {
	s := t.strings[i]
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("STR%d", i)
}

// Build fills a table from a syntax tree: string declarations, functions,
// their parameters and their variables, and every string literal
func Build(root *ast.Node) (*Table, error) {
	t := New()
	for _, decl := range ast.Decls(root) {
		switch decl.Kind {
		case ast.SDecl:
			id := decl.Right
			if err := t.AddString(id.Name(), id.Right.Text()); err != nil {
				return nil, err
			}
		case ast.FDecl:
			fn, err := t.AddFunction(ast.FuncName(decl), ast.FuncParams(decl), decl.IsVoid())
			if err != nil {
				return nil, err
			}
			if err := t.collect(fn, ast.FuncBody(decl)); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unexpected %s at top level", decl.Kind)
		}
	}
	return t, nil
}

// collect registers declared variables and string literals found in body
func (t *Table) collect(fn *Function, body *ast.Node) error {
	var err error
	ast.Walk(body, func(n *ast.Node) bool {
		if err != nil {
			return false
		}
		switch n.Kind {
		case ast.VDecl, ast.ADecl:
			err = fn.addVar(n.Left.Name())
		case ast.String:
			err = t.AddString("", n.Text())
		}
		return true
	})
	return err
}
