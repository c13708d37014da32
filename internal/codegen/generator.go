// Completion: 100% - All AST nodes implemented, comprehensive coverage
package codegen

import (
	"fmt"

	"github.com/xyproto/potter/internal/ast"
	"github.com/xyproto/potter/internal/diag"
	"github.com/xyproto/potter/internal/elfbuild"
	"github.com/xyproto/potter/internal/engine"
	"github.com/xyproto/potter/internal/label"
	"github.com/xyproto/potter/internal/symtab"
	"github.com/xyproto/potter/internal/x86"
)

// Labels shared by the whole image
const (
	startLabel       = "_start"
	ioBufferLabel    = "IO_BUFFER"
	ioBufferEndLabel = "IO_BUFFER_END"
	returnLabel      = ".RETURN"
)

const (
	sysRead  = 0
	sysWrite = 1
	sysExit  = 60
)

// generator lowers the tree into instructions. Expressions leave their value
// in rax; rbx holds the right operand of binary operations and rcx is
// scratch for stores.
type generator struct {
	e      *Emitter
	labels *label.Manager
	table  *symtab.Table
	opts   Options

	fn    *symtab.Function
	depth int // pushes not yet popped in the current statement
}

// fail aborts code generation. Compile recovers the error.
func (g *generator) fail(err *diag.CompilerError, n *ast.Node) {
	if err.Location.File == "" {
		err.Location.File = g.opts.File
	}
	if n != nil && n.Line > 0 && err.Location.Line == 0 {
		err.Location.Line = n.Line
	}
	if g.fn != nil && err.Location.Function == "" {
		err.Location.Function = g.fn.Name
	}
	panic(err)
}

func (g *generator) push(r x86.Reg, comment string) {
	g.e.Emit(x86.Push(r), comment)
	g.depth++
}

func (g *generator) pop(r x86.Reg, comment string) {
	g.e.Emit(x86.Pop(r), comment)
	g.depth--
}

func (g *generator) local(name string) label.Key {
	return label.Local(g.fn.Name, name)
}

func (g *generator) numbered(name string, n int) label.Key {
	return label.Numbered(g.fn.Name, name, n)
}

// program emits the whole image: text (entry stub, runtime, functions),
// bss (I/O buffer) and data (strings)
func (g *generator) program(root *ast.Node) {
	e := g.e

	e.StartSection(elfbuild.Text)
	e.Directive("global " + startLabel)
	e.Define(label.Global(startLabel))
	e.Call(label.Global(symtab.MainFunction), "")
	e.Emit(x86.MovRegImm64(x86.RAX, sysExit), "sys_exit")
	e.Emit(x86.XorRegReg(x86.RDI, x86.RDI), "status 0")
	e.Emit(x86.Syscall(), "")

	if !g.opts.NoRuntime {
		g.runtime()
	}

	for _, decl := range ast.Decls(root) {
		if decl.Kind == ast.FDecl {
			g.function(decl)
		}
	}
	e.EndSection(elfbuild.Text)

	e.StartSection(elfbuild.BSS)
	e.Reserve(label.Global(ioBufferLabel), symtab.IOBufferSize)
	e.Define(label.Global(ioBufferEndLabel))
	e.EndSection(elfbuild.BSS)

	e.StartSection(elfbuild.Data)
	for i, s := range g.table.Strings() {
		e.String(label.Global(g.table.StringLabel(i)), s.Content)
	}
	e.EndSection(elfbuild.Data)
}

// prologue opens a stack frame for fn and reserves its locals
func (g *generator) prologue(fn *symtab.Function) {
	g.fn = fn
	g.e.Banner(fn)
	g.e.Define(label.Global(fn.Name))
	g.e.Emit(x86.Push(x86.RBP), "")
	g.e.Emit(x86.MovRegReg(x86.RBP, x86.RSP), "")
	if n := fn.LocalCount(); n > 0 {
		g.e.Emit(x86.SubRegImm32(x86.RSP, int32(n*symtab.SlotSize)), fmt.Sprintf("%d local(s)", n))
	}
}

// epilogue defines the function's return label and tears the frame down
func (g *generator) epilogue() {
	g.e.Define(g.local(returnLabel))
	g.e.Emit(x86.MovRegReg(x86.RSP, x86.RBP), "")
	g.e.Emit(x86.Pop(x86.RBP), "")
	g.e.Emit(x86.Ret(), "")
	g.fn = nil
}

func (g *generator) function(decl *ast.Node) {
	name := ast.FuncName(decl)
	fn := g.table.Function(name)
	if fn == nil || fn.Builtin {
		panic(fmt.Sprintf("codegen: function %s missing from the symbol table", name))
	}
	g.prologue(fn)
	g.block(ast.FuncBody(decl))
	g.epilogue()
}

func (g *generator) block(b *ast.Node) {
	for _, st := range ast.Statements(b) {
		g.statement(st)
		if g.depth != 0 {
			panic(fmt.Sprintf("codegen: %s in %s leaves %d value(s) on the stack", st.Kind, g.fn.Name, g.depth))
		}
	}
}

func (g *generator) statement(n *ast.Node) {
	switch n.Kind {
	case ast.VDecl, ast.Assign:
		g.assign(n)
	case ast.ADecl:
		g.arrayDecl(n)
	case ast.Cond:
		g.ifElse(n)
	case ast.Loop:
		g.while(n)
	case ast.Jump:
		g.ret(n)
	case ast.Block:
		g.block(n)
	default:
		g.expr(n)
	}
}

// slot returns the frame address of a variable of the current function
func (g *generator) slot(id *ast.Node) (x86.Mem, bool) {
	off, ok := g.fn.Offset(id.Name())
	if !ok {
		return x86.Mem{}, false
	}
	return x86.BaseDisp(x86.RBP, off), true
}

func (g *generator) mustSlot(id *ast.Node) x86.Mem {
	m, ok := g.slot(id)
	if !ok {
		g.undefinedVariable(id)
	}
	return m
}

func (g *generator) undefinedVariable(id *ast.Node) {
	err := diag.New(diag.ErrInput, "undefined variable '%s'", id.Name())
	if s := engine.Suggest(id.Name(), g.fn.Vars); s != "" {
		err.Context.Suggestion = fmt.Sprintf("did you mean '%s'?", s)
	}
	g.fail(err, id)
}

func (g *generator) assign(n *ast.Node) {
	target := n.Left
	switch target.Kind {
	case ast.ID:
		dst := g.mustSlot(target)
		g.expr(n.Right)
		g.e.Emit(x86.MovMemReg(dst, x86.RAX), target.Name())
	case ast.MemAccess:
		g.expr(n.Right)
		g.push(x86.RAX, "saving the value to store")
		dst := g.element(target)
		g.pop(x86.RCX, "")
		g.e.Emit(x86.MovMemReg(dst, x86.RCX), target.Left.Name()+" element")
	default:
		panic(fmt.Sprintf("codegen: cannot assign to %s", target.Kind))
	}
}

// arrayDecl reserves size*8 bytes below the stack pointer. The slot gets the
// address of element 0, the highest one; element i lives 8*i bytes below it.
func (g *generator) arrayDecl(n *ast.Node) {
	dst := g.mustSlot(n.Left)
	g.e.Comment("array %s", n.Left.Name())
	g.expr(n.Right)
	g.e.Emit(x86.SalRegImm8(x86.RAX, 3), "size in bytes")
	g.e.Emit(x86.SubRegImm32(x86.RAX, symtab.SlotSize), "element 0 is reserved below")
	g.e.Emit(x86.SubRegImm32(x86.RSP, symtab.SlotSize), "")
	g.e.Emit(x86.MovMemReg(dst, x86.RSP), "address of element 0")
	g.e.Emit(x86.SubRegReg(x86.RSP, x86.RAX), "remaining elements")
}

// element computes the address of array~index~. rbx holds the array address
// and, for a computed index, rax the negated index. Addressing in memory
// runs from right to left: index i is 8*i bytes below element 0.
func (g *generator) element(n *ast.Node) x86.Mem {
	base := g.mustSlot(n.Left)
	index := n.Right
	if index.Kind == ast.Number {
		g.e.Emit(x86.MovRegMem(x86.RBX, base), n.Left.Name())
		return x86.BaseDisp(x86.RBX, int32(-index.Int()*symtab.SlotSize))
	}
	g.e.Comment("evaluating array index")
	g.expr(index)
	g.e.Emit(x86.Neg(x86.RAX), "")
	g.e.Emit(x86.MovRegMem(x86.RBX, base), n.Left.Name())
	return x86.BaseIndex(x86.RBX, x86.RAX, symtab.SlotSize, 0)
}

func (g *generator) ifElse(n *ast.Node) {
	num := g.labels.Next(label.Cond)
	elseKey := g.numbered(".ELSE_", num)
	endKey := g.numbered(".END_IF_ELSE_", num)

	g.expr(n.Left)
	g.e.Emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondZ, elseKey, "")
	g.block(n.Right.Left)
	g.e.Jmp(endKey, "")
	g.e.Define(elseKey)
	if n.Right.Right != nil {
		g.block(n.Right.Right)
	}
	g.e.Define(endKey)
}

func (g *generator) while(n *ast.Node) {
	num := g.labels.Next(label.Loop)
	topKey := g.numbered(".WHILE_", num)
	endKey := g.numbered(".END_WHILE_", num)

	g.e.Define(topKey)
	g.expr(n.Left)
	g.e.Emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondZ, endKey, "")
	g.block(n.Right)
	g.e.Jmp(topKey, "")
	g.e.Define(endKey)
}

func (g *generator) ret(n *ast.Node) {
	num := g.labels.Next(label.Return)
	if n.Right != nil {
		g.expr(n.Right)
	}
	g.e.Jmp(g.local(returnLabel), fmt.Sprintf("return #%d", num))
}

// expr evaluates n into rax
func (g *generator) expr(n *ast.Node) {
	switch n.Kind {
	case ast.Number, ast.ID, ast.String:
		g.load(x86.RAX, n)
	case ast.Math:
		g.math(n)
	case ast.Call:
		g.call(n)
	case ast.MemAccess:
		src := g.element(n)
		g.e.Emit(x86.MovRegMem(x86.RAX, src), "")
	default:
		panic(fmt.Sprintf("codegen: unexpected %s node in an expression", n.Kind))
	}
}

// load puts a simple operand into reg
func (g *generator) load(reg x86.Reg, n *ast.Node) {
	switch n.Kind {
	case ast.Number:
		g.e.Emit(x86.MovRegImm64(reg, n.Int()), "")
	case ast.ID:
		if m, ok := g.slot(n); ok {
			g.e.Emit(x86.MovRegMem(reg, m), n.Name())
			return
		}
		if i, ok := g.table.ByName(n.Name()); ok {
			g.e.LoadAddress(reg, label.Global(g.table.StringLabel(i)), "")
			return
		}
		g.undefinedVariable(n)
	case ast.String:
		i, ok := g.table.ByContent(n.Text())
		if !ok {
			panic(fmt.Sprintf("codegen: string %q missing from the symbol table", n.Text()))
		}
		g.e.LoadAddress(reg, label.Global(g.table.StringLabel(i)), "")
	default:
		panic(fmt.Sprintf("codegen: %s is not a simple operand", n.Kind))
	}
}

var comparisonJumps = map[ast.MathOp]x86.Cond{
	ast.Equal:        x86.CondE,
	ast.NotEqual:     x86.CondNE,
	ast.LessEqual:    x86.CondLE,
	ast.GreaterEqual: x86.CondGE,
	ast.Less:         x86.CondL,
	ast.Greater:      x86.CondG,
}

// math evaluates a binary operation. Left ends up in rax, right in rbx.
func (g *generator) math(n *ast.Node) {
	op := n.Op()
	if !op.Valid() {
		panic(fmt.Sprintf("codegen: unknown operator %d", int(op)))
	}

	if n.Left.IsSimple() && n.Right.IsSimple() {
		g.load(x86.RAX, n.Left)
		g.load(x86.RBX, n.Right)
	} else {
		g.expr(n.Left)
		g.push(x86.RAX, "saving rax")
		g.expr(n.Right)
		g.e.Emit(x86.MovRegReg(x86.RBX, x86.RAX), "")
		g.pop(x86.RAX, "")
	}

	switch op {
	case ast.Add:
		g.e.Emit(x86.AddRegReg(x86.RAX, x86.RBX), "")
	case ast.Sub:
		g.e.Emit(x86.SubRegReg(x86.RAX, x86.RBX), "")
	case ast.Mul:
		g.e.Emit(x86.ImulRegReg(x86.RAX, x86.RBX), "")
	case ast.Div:
		g.e.Emit(x86.Cqo(), "sign-extend into rdx")
		g.e.Emit(x86.Idiv(x86.RBX), "")
	default:
		g.compare(op)
	}
}

// compare turns the flags of cmp rax, rbx into 0 or 1 in rax
func (g *generator) compare(op ast.MathOp) {
	num := g.labels.Next(label.Compare)
	trueKey := g.numbered(".COMPARISON_TRUE_", num)
	endKey := g.numbered(".COMPARISON_END_", num)

	g.e.Emit(x86.CmpRegReg(x86.RAX, x86.RBX), op.Symbol())
	g.e.Jcc(comparisonJumps[op], trueKey, "")
	g.e.Emit(x86.XorRegReg(x86.RAX, x86.RAX), "false")
	g.e.Jmp(endKey, "")
	g.e.Define(trueKey)
	g.e.Emit(x86.MovRegImm64(x86.RAX, 1), "true")
	g.e.Define(endKey)
}

// call pushes the arguments last to first, so argument 0 ends up right above
// the return address, then the I/O buffer if the callee wants it. The caller
// removes everything it pushed.
func (g *generator) call(n *ast.Node) {
	name := n.Left.Name()
	callee := g.table.Function(name)
	if callee == nil {
		g.fail(diag.UndefinedFunction(name, g.fn.Name, engine.Suggest(name, g.table.FunctionNames())), n)
	}
	if callee.Builtin && g.opts.NoRuntime {
		g.fail(diag.MissingRuntime(name, g.fn.Name), n)
	}

	args := ast.Items(n.Right)
	if len(args) != callee.ParamCount {
		g.fail(diag.New(diag.ErrInput, "'%s' takes %d argument(s), got %d", name, callee.ParamCount, len(args)), n)
	}

	for i := len(args) - 1; i >= 0; i-- {
		g.expr(args[i])
		g.push(x86.RAX, fmt.Sprintf("argument %d", i))
	}
	if callee.NeedsBuffer {
		g.e.LoadAddress(x86.RAX, label.Global(ioBufferLabel), "")
		g.push(x86.RAX, "I/O buffer")
	}

	g.e.Call(label.Global(name), "")

	if size := callee.ArgBytes(); size > 0 {
		g.e.Emit(x86.AddRegImm32(x86.RSP, size), "")
		g.depth -= int(size / symtab.SlotSize)
	}
}
