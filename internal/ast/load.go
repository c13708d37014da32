package ast

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// A program file describes the tree in YAML:
//
//	strings:
//	  - name: GREETING
//	    content: "hello"
//	functions:
//	  - name: love
//	    params: []
//	    body:
//	      - let: {name: x, value: 5}
//	      - while:
//	          cond: {op: greater, left: x, right: 0}
//	          do:
//	            - call: {name: flagrate, args: [x]}
//	            - set: {name: x, value: {op: sub, left: x, right: 1}}
//	      - return: 0
//
// Expressions are an integer (number), a bare string (identifier),
// {str: ...} (string literal), {op, left, right}, {call, args} or
// {array, index}.

// SyntaxError reports a malformed program file
type SyntaxError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *SyntaxError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

type programFile struct {
	Strings   []stringEntry   `yaml:"strings"`
	Functions []functionEntry `yaml:"functions"`
}

type stringEntry struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

type functionEntry struct {
	Name   string    `yaml:"name"`
	Void   bool      `yaml:"void"`
	Params []string  `yaml:"params"`
	Body   yaml.Node `yaml:"body"`
}

// Load reads and parses a program file
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if se, ok := err.(*SyntaxError); ok {
		se.File = path
	}
	return root, err
}

// Parse builds a tree from the YAML program description in data
func Parse(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SyntaxError{Msg: err.Error()}
	}
	if doc.Kind == 0 {
		return nil, &SyntaxError{Msg: "program declares nothing"}
	}
	var pf programFile
	if err := doc.Decode(&pf); err != nil {
		return nil, &SyntaxError{Line: doc.Line, Column: doc.Column, Msg: err.Error()}
	}

	var decls []*Node
	for _, s := range pf.Strings {
		if s.Name == "" {
			return nil, &SyntaxError{Msg: fmt.Sprintf("string %q has no name", s.Content)}
		}
		decls = append(decls, StringDecl(s.Name, s.Content))
	}
	for _, f := range pf.Functions {
		if f.Name == "" {
			return nil, errAt(&f.Body, "function without a name")
		}
		body, err := parseBlock(&f.Body)
		if err != nil {
			return nil, err
		}
		fn := Function(f.Name, f.Void, f.Params, body)
		fn.Line = f.Body.Line
		decls = append(decls, fn)
	}
	if len(decls) == 0 {
		return nil, &SyntaxError{Msg: "program declares nothing"}
	}
	return Program(decls...), nil
}

func errAt(n *yaml.Node, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: n.Line, Column: n.Column, Msg: fmt.Sprintf(format, args...)}
}

func parseBlock(n *yaml.Node) (*Node, error) {
	if n.Kind == 0 {
		return BlockOf(), nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errAt(n, "expected a list of statements")
	}
	stmts := make([]*Node, 0, len(n.Content))
	for _, item := range n.Content {
		st, err := parseStatement(item)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	block := BlockOf(stmts...)
	block.Line = n.Line
	return block, nil
}

// fields maps the keys of a YAML mapping to their value nodes
func fields(n *yaml.Node) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errAt(n, "expected a mapping")
	}
	m := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		m[n.Content[i].Value] = n.Content[i+1]
	}
	return m, nil
}

func needField(n *yaml.Node, m map[string]*yaml.Node, key string) (*yaml.Node, error) {
	v, ok := m[key]
	if !ok {
		return nil, errAt(n, "missing %q", key)
	}
	return v, nil
}

func needName(n *yaml.Node, m map[string]*yaml.Node, key string) (string, error) {
	v, err := needField(n, m, key)
	if err != nil {
		return "", err
	}
	if v.Kind != yaml.ScalarNode || v.Value == "" {
		return "", errAt(v, "%q must be a name", key)
	}
	return v.Value, nil
}

func parseStatement(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	if len(m) != 1 {
		return nil, errAt(n, "a statement has exactly one key, got %d", len(m))
	}

	var st *Node
	for key, v := range m {
		switch key {
		case "let", "set":
			st, err = parseAssignment(key, v)
		case "array":
			st, err = parseArray(v)
		case "store":
			st, err = parseStore(v)
		case "if":
			st, err = parseIf(v)
		case "while":
			st, err = parseWhile(v)
		case "return":
			var value *Node
			value, err = parseExpr(v)
			st = Return(value)
		case "call":
			st, err = parseCall(v)
		case "expr":
			st, err = parseExpr(v)
		default:
			return nil, errAt(n, "unknown statement %q", key)
		}
	}
	if err != nil {
		return nil, err
	}
	st.Line = n.Line
	return st, nil
}

func parseAssignment(key string, n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	name, err := needName(n, m, "name")
	if err != nil {
		return nil, err
	}
	raw, err := needField(n, m, "value")
	if err != nil {
		return nil, err
	}
	value, err := parseExpr(raw)
	if err != nil {
		return nil, err
	}
	if key == "let" {
		return Let(name, value), nil
	}
	return Set(Ident(name), value), nil
}

func parseArray(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	name, err := needName(n, m, "name")
	if err != nil {
		return nil, err
	}
	raw, err := needField(n, m, "size")
	if err != nil {
		return nil, err
	}
	size, err := parseExpr(raw)
	if err != nil {
		return nil, err
	}
	return Array(name, size), nil
}

func parseStore(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	name, err := needName(n, m, "array")
	if err != nil {
		return nil, err
	}
	rawIndex, err := needField(n, m, "index")
	if err != nil {
		return nil, err
	}
	rawValue, err := needField(n, m, "value")
	if err != nil {
		return nil, err
	}
	index, err := parseExpr(rawIndex)
	if err != nil {
		return nil, err
	}
	value, err := parseExpr(rawValue)
	if err != nil {
		return nil, err
	}
	return Set(Index(name, index), value), nil
}

func parseIf(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	rawCond, err := needField(n, m, "cond")
	if err != nil {
		return nil, err
	}
	cond, err := parseExpr(rawCond)
	if err != nil {
		return nil, err
	}
	rawThen, err := needField(n, m, "then")
	if err != nil {
		return nil, err
	}
	then, err := parseBlock(rawThen)
	if err != nil {
		return nil, err
	}
	var els *Node
	if rawElse, ok := m["else"]; ok {
		if els, err = parseBlock(rawElse); err != nil {
			return nil, err
		}
	}
	return If(cond, then, els), nil
}

func parseWhile(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	rawCond, err := needField(n, m, "cond")
	if err != nil {
		return nil, err
	}
	cond, err := parseExpr(rawCond)
	if err != nil {
		return nil, err
	}
	rawBody, err := needField(n, m, "do")
	if err != nil {
		return nil, err
	}
	body, err := parseBlock(rawBody)
	if err != nil {
		return nil, err
	}
	return While(cond, body), nil
}

func parseCall(n *yaml.Node) (*Node, error) {
	m, err := fields(n)
	if err != nil {
		return nil, err
	}
	key := "name"
	if _, ok := m["call"]; ok {
		key = "call"
	}
	name, err := needName(n, m, key)
	if err != nil {
		return nil, err
	}
	var args []*Node
	if rawArgs, ok := m["args"]; ok {
		if rawArgs.Kind != yaml.SequenceNode {
			return nil, errAt(rawArgs, "args must be a list")
		}
		for _, a := range rawArgs.Content {
			arg, err := parseExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
	}
	call := CallOf(name, args...)
	call.Line = n.Line
	return call, nil
}

func parseExpr(n *yaml.Node) (*Node, error) {
	var e *Node
	switch n.Kind {
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int":
			v, err := strconv.ParseInt(n.Value, 0, 64)
			if err != nil {
				return nil, errAt(n, "bad number %q", n.Value)
			}
			e = Num(v)
		case "!!str":
			if n.Value == "" {
				return nil, errAt(n, "empty identifier")
			}
			e = Ident(n.Value)
		default:
			return nil, errAt(n, "unsupported value %q (%s)", n.Value, n.ShortTag())
		}
	case yaml.MappingNode:
		m, err := fields(n)
		if err != nil {
			return nil, err
		}
		switch {
		case m["str"] != nil:
			e = Str(m["str"].Value)
		case m["op"] != nil:
			e, err = parseMath(n, m)
		case m["call"] != nil:
			e, err = parseCall(n)
		case m["array"] != nil:
			var name string
			if name, err = needName(n, m, "array"); err != nil {
				return nil, err
			}
			var rawIndex *yaml.Node
			if rawIndex, err = needField(n, m, "index"); err != nil {
				return nil, err
			}
			var index *Node
			if index, err = parseExpr(rawIndex); err != nil {
				return nil, err
			}
			e = Index(name, index)
		default:
			return nil, errAt(n, "unknown expression")
		}
		if err != nil {
			return nil, err
		}
	default:
		return nil, errAt(n, "expected an expression")
	}
	e.Line = n.Line
	return e, nil
}

func parseMath(n *yaml.Node, m map[string]*yaml.Node) (*Node, error) {
	op, ok := ParseMathOp(m["op"].Value)
	if !ok {
		return nil, errAt(m["op"], "unknown operator %q", m["op"].Value)
	}
	rawLeft, err := needField(n, m, "left")
	if err != nil {
		return nil, err
	}
	rawRight, err := needField(n, m, "right")
	if err != nil {
		return nil, err
	}
	left, err := parseExpr(rawLeft)
	if err != nil {
		return nil, err
	}
	right, err := parseExpr(rawRight)
	if err != nil {
		return nil, err
	}
	return Bin(op, left, right), nil
}
