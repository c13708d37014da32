package ast

// Constructors for every tree shape the code generator understands.
//
//	root           Left: next declaration           Right: FDecl/SDecl payload
//	FDecl          Right: ID(name)
//	ID(func name)  Left: Block                      Right: ExprList of ID params
//	SDecl          Right: ID(name)                  ID.Right: String(content)
//	Block          Right: first Statement, chained through Statement.Right
//	Statement      Left: the statement node
//	Cond           Left: condition                  Right: IfElse(then, else)
//	Loop           Left: condition                  Right: Block
//	VDecl/Assign   Left: ID or MemAccess            Right: expression
//	ADecl          Left: ID                         Right: size expression
//	Jump           Right: expression
//	Call           Left: ID                         Right: ExprList (source order)
//	MemAccess      Left: ID(array)                  Right: index expression
//	Math           Left, Right: operands

// NewNode creates a node and links the parents of its children
func NewNode(kind Kind, value Value, left, right *Node) *Node {
	n := &Node{Kind: kind, Value: value}
	n.SetLeft(left)
	n.SetRight(right)
	return n
}

// Num creates a Number node
func Num(v int64) *Node {
	return NewNode(Number, Int(v), nil, nil)
}

// Ident creates an ID node
func Ident(name string) *Node {
	return NewNode(ID, Name(name), nil, nil)
}

// Str creates a String literal node
func Str(content string) *Node {
	return NewNode(String, Text(content), nil, nil)
}

// Bin creates a Math node
func Bin(op MathOp, left, right *Node) *Node {
	return NewNode(Math, Operator(op), left, right)
}

// Index creates a MemAccess node for array~index~
func Index(array string, index *Node) *Node {
	return NewNode(MemAccess, nil, Ident(array), index)
}

// List chains nodes into an ExprList in the given order
func List(items ...*Node) *Node {
	var head *Node
	for i := len(items) - 1; i >= 0; i-- {
		head = NewNode(ExprList, nil, items[i], head)
	}
	return head
}

// CallOf creates a Call node with arguments in source order
func CallOf(name string, args ...*Node) *Node {
	return NewNode(Call, nil, Ident(name), List(args...))
}

// Let creates a variable declaration with an initial value
func Let(name string, value *Node) *Node {
	return NewNode(VDecl, nil, Ident(name), value)
}

// Set creates an assignment to a variable or, with an Index target, to an
// array element
func Set(target, value *Node) *Node {
	return NewNode(Assign, nil, target, value)
}

// Array creates an array declaration
func Array(name string, size *Node) *Node {
	return NewNode(ADecl, nil, Ident(name), size)
}

// Return creates a return statement
func Return(value *Node) *Node {
	return NewNode(Jump, nil, nil, value)
}

// If creates a conditional. els may be nil.
func If(cond, then, els *Node) *Node {
	return NewNode(Cond, nil, cond, NewNode(IfElse, nil, then, els))
}

// While creates a loop
func While(cond, body *Node) *Node {
	return NewNode(Loop, nil, cond, body)
}

// BlockOf wraps statements into a Block
func BlockOf(stmts ...*Node) *Node {
	block := NewNode(Block, nil, nil, nil)
	tail := block
	for _, s := range stmts {
		st := NewNode(Statement, nil, s, nil)
		tail.SetRight(st)
		tail = st
	}
	return block
}

// Function creates a function declaration
func Function(name string, void bool, params []string, body *Node) *Node {
	ids := make([]*Node, len(params))
	for i, p := range params {
		ids[i] = Ident(p)
	}
	id := NewNode(ID, Name(name), body, List(ids...))
	return NewNode(FDecl, VoidFlag(void), nil, id)
}

// StringDecl creates a named string declaration
func StringDecl(name, content string) *Node {
	id := NewNode(ID, Name(name), nil, Str(content))
	return NewNode(SDecl, nil, nil, id)
}

// Program chains declarations into a tree root. String declarations must
// come before functions.
func Program(decls ...*Node) *Node {
	for i := len(decls) - 2; i >= 0; i-- {
		decls[i].SetLeft(decls[i+1])
	}
	if len(decls) == 0 {
		return nil
	}
	return decls[0]
}
