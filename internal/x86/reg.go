// Completion: 100% - Utility module complete
package x86

// Reg is a 64-bit general purpose register. The value is the hardware
// encoding, so registers >= R8 need a REX extension bit.
type Reg int8

const (
	RAX Reg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	// NoReg marks an unused operand slot
	NoReg Reg = -1
)

var reg64Names = [...]string{
	"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

var reg8Names = [...]string{
	"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil",
	"r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b",
}

func (r Reg) String() string {
	if !r.Valid() {
		return "none"
	}
	return reg64Names[r]
}

// Byte returns the name of the low byte of r
func (r Reg) Byte() string {
	if !r.Valid() {
		return "none"
	}
	return reg8Names[r]
}

// Valid reports whether r names one of the 16 general purpose registers
func (r Reg) Valid() bool {
	return r >= RAX && r <= R15
}

// Low3 returns the three bits that go into ModRM or SIB fields
func (r Reg) Low3() uint8 {
	return uint8(r) & 7
}

// Extended reports whether r needs REX.R, REX.X or REX.B
func (r Reg) Extended() bool {
	return r >= R8
}
