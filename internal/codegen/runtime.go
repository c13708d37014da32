// Completion: 100% - Module complete
package codegen

import (
	"fmt"

	"github.com/xyproto/potter/internal/symtab"
	"github.com/xyproto/potter/internal/x86"
)

// The standard I/O functions are emitted as machine code ahead of the
// program's own functions. They use the same frame layout as compiled code.
// The ones that need scratch space get the I/O buffer as their first stack
// argument, so their own parameters start one slot higher.

const (
	bufferArg = 16 // [rbp+16] in functions that take the I/O buffer
	firstArg  = 24 // first parameter after the buffer
	secondArg = 32

	charNewline = '\n'
	charMinus   = '-'
	charPoint   = '.'
	charZero    = '0'
	charNine    = '9'
)

func (g *generator) runtime() {
	bodies := map[string]func(){
		"accio_bombarda":    g.accioBombarda,
		"accio":             g.accio,
		"flagrate_bombarda": g.flagrateBombarda,
		"flagrate_s":        g.flagrateString,
		"flagrate":          g.flagrate,
	}
	for _, b := range symtab.Builtins {
		body, ok := bodies[b.Name]
		if !ok {
			panic(fmt.Sprintf("codegen: no machine code for %s", b.Name))
		}
		g.prologue(g.table.Function(b.Name))
		body()
		g.epilogue()
	}
}

func (g *generator) emit(ins x86.Instruction, comment string) {
	g.e.Emit(ins, comment)
}

func arg(disp int32) x86.Mem {
	return x86.BaseDisp(x86.RBP, disp)
}

// at is [r], a byte pointer
func at(r x86.Reg) x86.Mem {
	return x86.BaseDisp(r, 0)
}

// bufferEnd sets r to one past the last byte of the I/O buffer
func (g *generator) bufferEnd(r x86.Reg) {
	g.emit(x86.MovRegMem(r, arg(bufferArg)), "I/O buffer")
	g.emit(x86.Lea(r, x86.BaseDisp(r, symtab.IOBufferSize)), "end of the buffer")
}

// prependByte moves the cursor in rsi down and stores c there
func (g *generator) prependByte(c uint8, comment string) {
	g.emit(x86.Dec(x86.RSI), "")
	g.emit(x86.MovMem8Imm(at(x86.RSI), c), comment)
}

// writeFromCursor writes the bytes between rsi and the end of the buffer
// to stdout
func (g *generator) writeFromCursor() {
	g.bufferEnd(x86.RDX)
	g.emit(x86.SubRegReg(x86.RDX, x86.RSI), "length")
	g.sysWrite()
}

// sysWrite writes rdx bytes at rsi to stdout
func (g *generator) sysWrite() {
	g.emit(x86.MovRegImm64(x86.RAX, sysWrite), "sys_write")
	g.emit(x86.MovRegImm64(x86.RDI, 1), "stdout")
	g.emit(x86.Syscall(), "")
}

// sysReadBuffer reads up to a buffer of stdin. Afterwards rsi points at the
// first byte read and rcx one past the last.
func (g *generator) sysReadBuffer() {
	g.emit(x86.XorRegReg(x86.RAX, x86.RAX), "sys_read")
	g.emit(x86.XorRegReg(x86.RDI, x86.RDI), "stdin")
	g.emit(x86.MovRegMem(x86.RSI, arg(bufferArg)), "I/O buffer")
	g.emit(x86.MovRegImm64(x86.RDX, symtab.IOBufferSize), "")
	g.emit(x86.Syscall(), "")
	g.emit(x86.MovRegReg(x86.RCX, x86.RSI), "")
	g.emit(x86.AddRegReg(x86.RCX, x86.RAX), "end of input")
}

// parseSign consumes a leading '-' at rsi and sets r8 to 1 if there was one.
// It expects rcx to be the end of input and jumps to done on empty input.
func (g *generator) parseSign(done string) {
	next := g.local(".SIGN_DONE")
	g.emit(x86.XorRegReg(x86.R8, x86.R8), "negative flag")
	g.emit(x86.CmpRegReg(x86.RSI, x86.RCX), "")
	g.e.Jcc(x86.CondGE, g.local(done), "nothing was read")
	g.emit(x86.MovzxRegMem8(x86.RDX, at(x86.RSI)), "")
	g.emit(x86.CmpRegImm32(x86.RDX, charMinus), "'-'")
	g.e.Jcc(x86.CondNE, next, "")
	g.emit(x86.MovRegImm64(x86.R8, 1), "")
	g.emit(x86.Inc(x86.RSI), "")
	g.e.Define(next)
}

// applySign negates rax if r8 is set
func (g *generator) applySign() {
	positive := g.local(".POSITIVE")
	g.emit(x86.TestRegReg(x86.R8, x86.R8), "")
	g.e.Jcc(x86.CondZ, positive, "")
	g.emit(x86.Neg(x86.RAX), "")
	g.e.Define(positive)
}

// storeDigit turns the remainder in rdx into a digit in front of the cursor
func (g *generator) storeDigit() {
	g.emit(x86.AddRegImm32(x86.RDX, charZero), "to ASCII")
	g.emit(x86.Dec(x86.RSI), "")
	g.emit(x86.MovMem8Reg(at(x86.RSI), x86.RDX), "")
}

// flagrate(number) prints a signed integer and a newline. The digits are
// produced backwards, from the end of the I/O buffer towards its start.
func (g *generator) flagrate() {
	digits := g.local(".DIGITS")
	digit := g.local(".DIGIT")
	write := g.local(".WRITE")

	g.emit(x86.MovRegMem(x86.RAX, arg(firstArg)), "number")
	g.bufferEnd(x86.RSI)
	g.prependByte(charNewline, "'\\n'")
	g.emit(x86.XorRegReg(x86.R8, x86.R8), "negative flag")
	g.emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondGE, digits, "")
	g.emit(x86.Neg(x86.RAX), "")
	g.emit(x86.MovRegImm64(x86.R8, 1), "")
	g.e.Define(digits)
	g.emit(x86.MovRegImm64(x86.RBX, 10), "")
	g.e.Define(digit)
	g.emit(x86.Cqo(), "")
	g.emit(x86.Idiv(x86.RBX), "")
	g.storeDigit()
	g.emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondNZ, digit, "")
	g.emit(x86.TestRegReg(x86.R8, x86.R8), "")
	g.e.Jcc(x86.CondZ, write, "")
	g.prependByte(charMinus, "'-'")
	g.e.Define(write)
	g.writeFromCursor()
}

// flagrate_s(string) prints a NUL-terminated string
func (g *generator) flagrateString() {
	length := g.local(".LENGTH")
	write := g.local(".WRITE")

	g.emit(x86.MovRegMem(x86.RSI, arg(bufferArg)), "string")
	g.emit(x86.XorRegReg(x86.RDX, x86.RDX), "")
	g.e.Define(length)
	g.emit(x86.MovzxRegMem8(x86.RAX, x86.BaseIndex(x86.RSI, x86.RDX, 1, 0)), "")
	g.emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondZ, write, "NUL")
	g.emit(x86.Inc(x86.RDX), "")
	g.e.Jmp(length, "")
	g.e.Define(write)
	g.sysWrite()
}

// accio() reads a line from stdin and parses a signed integer from it.
// Parsing stops at the first character that is not a digit.
func (g *generator) accio() {
	digit := g.local(".DIGIT")
	done := ".DONE"

	g.sysReadBuffer()
	g.emit(x86.XorRegReg(x86.RAX, x86.RAX), "result")
	g.emit(x86.MovRegImm64(x86.RBX, 10), "")
	g.parseSign(done)
	g.e.Define(digit)
	g.emit(x86.CmpRegReg(x86.RSI, x86.RCX), "")
	g.e.Jcc(x86.CondGE, g.local(done), "")
	g.emit(x86.MovzxRegMem8(x86.RDX, at(x86.RSI)), "")
	g.emit(x86.CmpRegImm32(x86.RDX, charZero), "")
	g.e.Jcc(x86.CondL, g.local(done), "")
	g.emit(x86.CmpRegImm32(x86.RDX, charNine), "")
	g.e.Jcc(x86.CondG, g.local(done), "")
	g.emit(x86.SubRegImm32(x86.RDX, charZero), "")
	g.emit(x86.ImulRegReg(x86.RAX, x86.RBX), "")
	g.emit(x86.AddRegReg(x86.RAX, x86.RDX), "")
	g.emit(x86.Inc(x86.RSI), "")
	g.e.Jmp(digit, "")
	g.e.Define(g.local(done))
	g.applySign()
}

// flagrate_bombarda(precision, number) prints number / 10^precision with
// exactly precision digits after the point, and a newline
func (g *generator) flagrateBombarda() {
	digits := g.local(".DIGITS")
	digit := g.local(".DIGIT")
	noPoint := g.local(".NO_POINT")
	write := g.local(".WRITE")

	g.emit(x86.MovRegMem(x86.RAX, arg(secondArg)), "number")
	g.emit(x86.MovRegMem(x86.RCX, arg(firstArg)), "precision")
	g.bufferEnd(x86.RSI)
	g.prependByte(charNewline, "'\\n'")
	g.emit(x86.XorRegReg(x86.R8, x86.R8), "negative flag")
	g.emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondGE, digits, "")
	g.emit(x86.Neg(x86.RAX), "")
	g.emit(x86.MovRegImm64(x86.R8, 1), "")
	g.e.Define(digits)
	g.emit(x86.MovRegImm64(x86.RBX, 10), "")
	g.emit(x86.XorRegReg(x86.R9, x86.R9), "digits written")
	g.e.Define(digit)
	g.emit(x86.CmpRegReg(x86.R9, x86.RCX), "")
	g.e.Jcc(x86.CondNE, noPoint, "")
	g.emit(x86.TestRegReg(x86.RCX, x86.RCX), "")
	g.e.Jcc(x86.CondZ, noPoint, "")
	g.prependByte(charPoint, "'.'")
	g.e.Define(noPoint)
	g.emit(x86.Cqo(), "")
	g.emit(x86.Idiv(x86.RBX), "")
	g.storeDigit()
	g.emit(x86.Inc(x86.R9), "")
	g.emit(x86.TestRegReg(x86.RAX, x86.RAX), "")
	g.e.Jcc(x86.CondNZ, digit, "")
	g.emit(x86.CmpRegReg(x86.R9, x86.RCX), "")
	g.e.Jcc(x86.CondLE, digit, "leading zeros up to the point")
	g.emit(x86.TestRegReg(x86.R8, x86.R8), "")
	g.e.Jcc(x86.CondZ, write, "")
	g.prependByte(charMinus, "'-'")
	g.e.Define(write)
	g.writeFromCursor()
}

// accio_bombarda(precision) reads a decimal number and returns it scaled by
// 10^precision. Fraction digits beyond precision are dropped.
func (g *generator) accioBombarda() {
	digit := g.local(".DIGIT")
	notPoint := g.local(".NOT_POINT")
	accumulate := g.local(".ACCUMULATE")
	skip := g.local(".SKIP")
	scale := ".SCALE"
	sign := g.local(".SIGN")

	g.sysReadBuffer()
	g.emit(x86.XorRegReg(x86.RAX, x86.RAX), "result")
	g.emit(x86.MovRegMem(x86.R9, arg(firstArg)), "fraction digits wanted")
	g.emit(x86.XorRegReg(x86.R10, x86.R10), "point seen")
	g.emit(x86.MovRegImm64(x86.RBX, 10), "")
	g.parseSign(scale)
	g.e.Define(digit)
	g.emit(x86.CmpRegReg(x86.RSI, x86.RCX), "")
	g.e.Jcc(x86.CondGE, g.local(scale), "")
	g.emit(x86.MovzxRegMem8(x86.RDX, at(x86.RSI)), "")
	g.emit(x86.CmpRegImm32(x86.RDX, charPoint), "'.'")
	g.e.Jcc(x86.CondNE, notPoint, "")
	g.emit(x86.TestRegReg(x86.R10, x86.R10), "")
	g.e.Jcc(x86.CondNZ, g.local(scale), "second point")
	g.emit(x86.MovRegImm64(x86.R10, 1), "")
	g.emit(x86.Inc(x86.RSI), "")
	g.e.Jmp(digit, "")
	g.e.Define(notPoint)
	g.emit(x86.CmpRegImm32(x86.RDX, charZero), "")
	g.e.Jcc(x86.CondL, g.local(scale), "")
	g.emit(x86.CmpRegImm32(x86.RDX, charNine), "")
	g.e.Jcc(x86.CondG, g.local(scale), "")
	g.emit(x86.TestRegReg(x86.R10, x86.R10), "")
	g.e.Jcc(x86.CondZ, accumulate, "integer part")
	g.emit(x86.TestRegReg(x86.R9, x86.R9), "")
	g.e.Jcc(x86.CondLE, skip, "")
	g.emit(x86.Dec(x86.R9), "")
	g.e.Define(accumulate)
	g.emit(x86.SubRegImm32(x86.RDX, charZero), "")
	g.emit(x86.ImulRegReg(x86.RAX, x86.RBX), "")
	g.emit(x86.AddRegReg(x86.RAX, x86.RDX), "")
	g.e.Define(skip)
	g.emit(x86.Inc(x86.RSI), "")
	g.e.Jmp(digit, "")
	g.e.Define(g.local(scale))
	g.emit(x86.TestRegReg(x86.R9, x86.R9), "")
	g.e.Jcc(x86.CondLE, sign, "")
	g.emit(x86.ImulRegReg(x86.RAX, x86.RBX), "")
	g.emit(x86.Dec(x86.R9), "")
	g.e.Jmp(g.local(scale), "")
	g.e.Define(sign)
	g.applySign()
}
