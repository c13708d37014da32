// Completion: 100% - Instruction implementation complete
package x86

// Control transfer. Every relative form uses a rel32 so that the length of an
// instruction never depends on the distance to its target.

// Cond is a condition code for Jcc
type Cond uint8

const (
	CondE Cond = iota
	CondNE
	CondL
	CondGE
	CondLE
	CondG
	CondZ
	CondNZ
)

var condInfo = [...]struct {
	name string
	code byte
}{
	CondE:  {"je", 0x84},
	CondNE: {"jne", 0x85},
	CondL:  {"jl", 0x8C},
	CondGE: {"jge", 0x8D},
	CondLE: {"jle", 0x8E},
	CondG:  {"jg", 0x8F},
	CondZ:  {"jz", 0x84},
	CondNZ: {"jnz", 0x85},
}

func (c Cond) String() string {
	if int(c) >= len(condInfo) {
		return "j?"
	}
	return condInfo[c].name
}

// Jcc encodes a conditional jump as 0F 8x cd
func Jcc(c Cond, rel int32) Instruction {
	if int(c) >= len(condInfo) {
		panic("x86: unknown condition code")
	}
	var ins Instruction
	ins.setOpcode(0x0F, condInfo[c].code)
	ins.Imm = int64(rel)
	ins.ImmSize = 4
	ins.Mnemonic = c.String()
	return ins
}

// Jmp encodes jmp rel32 (E9 cd)
func Jmp(rel int32) Instruction {
	return rel32(0xE9, "jmp", rel)
}

// Call encodes call rel32 (E8 cd)
func Call(rel int32) Instruction {
	return rel32(0xE8, "call", rel)
}

// Ret encodes a near return (C3)
func Ret() Instruction {
	var ins Instruction
	ins.setOpcode(0xC3)
	ins.Mnemonic = "ret"
	return ins
}

// Syscall encodes syscall (0F 05)
func Syscall() Instruction {
	var ins Instruction
	ins.setOpcode(0x0F, 0x05)
	ins.Mnemonic = "syscall"
	return ins
}

func rel32(op byte, mnemonic string, rel int32) Instruction {
	var ins Instruction
	ins.setOpcode(op)
	ins.Imm = int64(rel)
	ins.ImmSize = 4
	ins.Mnemonic = mnemonic
	return ins
}
