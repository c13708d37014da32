// Completion: 100% - Instruction implementation complete
package x86

import "fmt"

// MOV family: register, immediate and memory forms

// MovRegReg encodes mov dst, src as REX.W 89 /r (ModRM.reg=src, rm=dst)
func MovRegReg(dst, src Reg) Instruction {
	mustReg(src)
	ins := rexW()
	ins.setOpcode(0x89)
	ins.regDirect(src.Low3(), src.Extended(), dst)
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("%s, %s", dst, src)
	return ins
}

// MovRegImm64 encodes mov dst, imm64 as REX.W B8+r io
func MovRegImm64(dst Reg, imm int64) Instruction {
	mustReg(dst)
	ins := rexW()
	if dst.Extended() {
		ins.Rex.B = true
	}
	ins.setOpcode(0xB8 + dst.Low3())
	ins.Imm = imm
	ins.ImmSize = 8
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("%s, %d", dst, imm)
	return ins
}

// MovMemReg encodes mov qword [m], src as REX.W 89 /r
func MovMemReg(m Mem, src Reg) Instruction {
	mustReg(src)
	ins := rexW()
	ins.setOpcode(0x89)
	ins.memory(src.Low3(), src.Extended(), m)
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("qword %s, %s", m, src)
	return ins
}

// MovRegMem encodes mov dst, qword [m] as REX.W 8B /r
func MovRegMem(dst Reg, m Mem) Instruction {
	mustReg(dst)
	ins := rexW()
	ins.setOpcode(0x8B)
	ins.memory(dst.Low3(), dst.Extended(), m)
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("%s, qword %s", dst, m)
	return ins
}

// MovMem8Reg encodes mov byte [m], src8 as 88 /r. spl/bpl/sil/dil are only
// reachable with a REX prefix present, so an empty one is emitted for them.
func MovMem8Reg(m Mem, src Reg) Instruction {
	mustReg(src)
	var ins Instruction
	if src >= RSP && src <= RDI {
		ins.RexUsed = true
	}
	ins.setOpcode(0x88)
	ins.memory(src.Low3(), src.Extended(), m)
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("byte %s, %s", m, src.Byte())
	return ins
}

// MovMem8Imm encodes mov byte [m], imm8 as C6 /0 ib
func MovMem8Imm(m Mem, imm uint8) Instruction {
	var ins Instruction
	ins.setOpcode(0xC6)
	ins.memory(0, false, m)
	ins.Imm = int64(imm)
	ins.ImmSize = 1
	ins.Mnemonic = "mov"
	ins.Operands = fmt.Sprintf("byte %s, %d", m, imm)
	return ins
}

// MovzxRegMem8 encodes movzx dst, byte [m] as REX.W 0F B6 /r
func MovzxRegMem8(dst Reg, m Mem) Instruction {
	mustReg(dst)
	ins := rexW()
	ins.setOpcode(0x0F, 0xB6)
	ins.memory(dst.Low3(), dst.Extended(), m)
	ins.Mnemonic = "movzx"
	ins.Operands = fmt.Sprintf("%s, byte %s", dst, m)
	return ins
}

// Lea encodes lea dst, [m] as REX.W 8D /r
func Lea(dst Reg, m Mem) Instruction {
	mustReg(dst)
	ins := rexW()
	ins.setOpcode(0x8D)
	ins.memory(dst.Low3(), dst.Extended(), m)
	ins.Mnemonic = "lea"
	ins.Operands = fmt.Sprintf("%s, %s", dst, m)
	return ins
}
