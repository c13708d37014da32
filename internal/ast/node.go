// Package ast defines the syntax tree handed to the code generator.
//
// The tree is binary: every node has a Left and a Right child, and the shape
// under a node depends on its Kind (see the constructors in build.go).
// Parent links are kept for dumps and error reporting only.
package ast

import "fmt"

// Kind is the type of a syntax tree node
type Kind int

const (
	FDecl Kind = iota
	VDecl
	ADecl
	MemAccess
	ID
	ExprList
	Block
	Statement
	Cond
	IfElse
	Loop
	Assign
	Call
	Jump
	Math
	Number
	SDecl
	String
	kindCount
)

var kindNames = [...]string{
	FDecl:     "FDECL",
	VDecl:     "VDECL",
	ADecl:     "ADECL",
	MemAccess: "MEM_ACCESS",
	ID:        "ID",
	ExprList:  "EXPR_LIST",
	Block:     "BLOCK",
	Statement: "STATEMENT",
	Cond:      "COND",
	IfElse:    "IFELSE",
	Loop:      "LOOP",
	Assign:    "ASSIGN",
	Call:      "CALL",
	Jump:      "JUMP",
	Math:      "MATH",
	Number:    "NUMBER",
	SDecl:     "SDECL",
	String:    "STRING",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// MathOp is the operator of a Math node
type MathOp int

const (
	Add MathOp = iota
	Sub
	Mul
	Div
	Equal
	NotEqual
	LessEqual
	GreaterEqual
	Less
	Greater
	opCount
)

var opNames = [...]string{
	Add:          "add",
	Sub:          "sub",
	Mul:          "mul",
	Div:          "div",
	Equal:        "equal",
	NotEqual:     "not_equal",
	LessEqual:    "less_equal",
	GreaterEqual: "greater_equal",
	Less:         "less",
	Greater:      "greater",
}

var opSymbols = [...]string{
	Add:          "+",
	Sub:          "-",
	Mul:          "*",
	Div:          "/",
	Equal:        "==",
	NotEqual:     "!=",
	LessEqual:    "<=",
	GreaterEqual: ">=",
	Less:         "<",
	Greater:      ">",
}

func (op MathOp) String() string {
	if !op.Valid() {
		return fmt.Sprintf("MathOp(%d)", int(op))
	}
	return opNames[op]
}

// Symbol returns the infix spelling of op
func (op MathOp) Symbol() string {
	if !op.Valid() {
		return "?"
	}
	return opSymbols[op]
}

// Valid reports whether op is one of the known operators
func (op MathOp) Valid() bool {
	return op >= Add && op < opCount
}

// IsComparison reports whether op yields 0 or 1 rather than a number
func (op MathOp) IsComparison() bool {
	return op >= Equal && op < opCount
}

// ParseMathOp accepts either the name ("add") or the symbol ("+")
func ParseMathOp(s string) (MathOp, bool) {
	for i := Add; i < opCount; i++ {
		if opNames[i] == s || opSymbols[i] == s {
			return i, true
		}
	}
	return 0, false
}

// Value is the payload of a node. Only the types below implement it.
type Value interface {
	isValue()
}

// Int is the payload of a Number node
type Int int64

// Name is the payload of an ID node
type Name string

// Text is the payload of a String node
type Text string

// Operator is the payload of a Math node
type Operator MathOp

// VoidFlag is the payload of an FDecl node
type VoidFlag bool

func (Int) isValue()      {}
func (Name) isValue()     {}
func (Text) isValue()     {}
func (Operator) isValue() {}
func (VoidFlag) isValue() {}

// Node is one syntax tree node
type Node struct {
	Kind   Kind
	Value  Value
	Left   *Node
	Right  *Node
	Parent *Node

	// Line is the source line, 0 if unknown
	Line int
}

// Int returns the payload of a Number node
func (n *Node) Int() int64 {
	v, ok := n.Value.(Int)
	if !ok {
		panic(fmt.Sprintf("ast: %s node has no number payload", n.Kind))
	}
	return int64(v)
}

// Name returns the payload of an ID node
func (n *Node) Name() string {
	v, ok := n.Value.(Name)
	if !ok {
		panic(fmt.Sprintf("ast: %s node has no identifier payload", n.Kind))
	}
	return string(v)
}

// Text returns the payload of a String node
func (n *Node) Text() string {
	v, ok := n.Value.(Text)
	if !ok {
		panic(fmt.Sprintf("ast: %s node has no string payload", n.Kind))
	}
	return string(v)
}

// Op returns the payload of a Math node
func (n *Node) Op() MathOp {
	v, ok := n.Value.(Operator)
	if !ok {
		panic(fmt.Sprintf("ast: %s node has no operator payload", n.Kind))
	}
	return MathOp(v)
}

// IsVoid reports the void flag of an FDecl node
func (n *Node) IsVoid() bool {
	v, _ := n.Value.(VoidFlag)
	return bool(v)
}

// IsSimple reports whether the node can be loaded into a register directly,
// without evaluating a nested expression
func (n *Node) IsSimple() bool {
	if n == nil {
		return false
	}
	switch n.Kind {
	case Number, ID, String:
		return true
	}
	return false
}

// SetLeft links child as the left child of n
func (n *Node) SetLeft(child *Node) {
	n.Left = child
	if child != nil {
		child.Parent = n
	}
}

// SetRight links child as the right child of n
func (n *Node) SetRight(child *Node) {
	n.Right = child
	if child != nil {
		child.Parent = n
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch v := n.Value.(type) {
	case Int:
		return fmt.Sprintf("%s %d", n.Kind, int64(v))
	case Name:
		return fmt.Sprintf("%s %s", n.Kind, string(v))
	case Text:
		return fmt.Sprintf("%s %q", n.Kind, string(v))
	case Operator:
		return fmt.Sprintf("%s %s", n.Kind, MathOp(v).Symbol())
	case VoidFlag:
		if v {
			return n.Kind.String() + " void"
		}
	}
	return n.Kind.String()
}
