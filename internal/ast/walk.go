package ast

import (
	"fmt"
	"io"
	"strings"
)

// Decls returns the declarations chained from root, in order
func Decls(root *Node) []*Node {
	var out []*Node
	for n := root; n != nil; n = n.Left {
		out = append(out, n)
	}
	return out
}

// Statements returns the statement payloads of a Block, in order
func Statements(block *Node) []*Node {
	if block == nil {
		return nil
	}
	var out []*Node
	for st := block.Right; st != nil; st = st.Right {
		out = append(out, st.Left)
	}
	return out
}

// Items returns the elements of an ExprList, in order
func Items(list *Node) []*Node {
	var out []*Node
	for n := list; n != nil; n = n.Right {
		out = append(out, n.Left)
	}
	return out
}

// FuncName returns the name of an FDecl
func FuncName(fdecl *Node) string {
	return fdecl.Right.Name()
}

// FuncBody returns the Block of an FDecl
func FuncBody(fdecl *Node) *Node {
	return fdecl.Right.Left
}

// FuncParams returns the parameter names of an FDecl
func FuncParams(fdecl *Node) []string {
	var out []string
	for _, id := range Items(fdecl.Right.Right) {
		out = append(out, id.Name())
	}
	return out
}

// Walk visits n and its subtree depth first, left before right. Returning
// false from fn skips the children of that node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	Walk(n.Left, fn)
	Walk(n.Right, fn)
}

// Dump writes an indented outline of the tree
func Dump(w io.Writer, root *Node) error {
	return dump(w, root, 0, "")
}

func dump(w io.Writer, n *Node, depth int, side string) error {
	if n == nil {
		return nil
	}
	line := ""
	if n.Line > 0 {
		line = fmt.Sprintf("  (line %d)", n.Line)
	}
	if _, err := fmt.Fprintf(w, "%s%s%s%s\n", strings.Repeat("  ", depth), side, n, line); err != nil {
		return err
	}
	if err := dump(w, n.Left, depth+1, "L: "); err != nil {
		return err
	}
	return dump(w, n.Right, depth+1, "R: ")
}
