// Completion: 100% - Instruction implementation complete
package x86

// PUSH/POP for stack management. Used by function prologues/epilogues,
// argument passing and saving the accumulator around nested expressions.

// Push encodes push r64 as 50+r. r8-r15 need REX.B; the operand size is
// 64 bits by default so REX.W is never set.
func Push(r Reg) Instruction {
	return stackOp(0x50, "push", r)
}

// Pop encodes pop r64 as 58+r
func Pop(r Reg) Instruction {
	return stackOp(0x58, "pop", r)
}

func stackOp(base byte, mnemonic string, r Reg) Instruction {
	mustReg(r)
	ins := Instruction{Mnemonic: mnemonic, Operands: r.String()}
	if r.Extended() {
		ins.Rex = Rex{B: true}
		ins.RexUsed = true
	}
	ins.setOpcode(base + r.Low3())
	return ins
}
