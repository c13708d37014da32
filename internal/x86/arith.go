// Completion: 100% - Instruction implementation complete
package x86

import "fmt"

// Two-operand integer arithmetic and logic. All forms use 64-bit operand size.

// AddRegReg encodes add dst, src (REX.W 01 /r)
func AddRegReg(dst, src Reg) Instruction { return regReg(0x01, "add", dst, src) }

// SubRegReg encodes sub dst, src (REX.W 29 /r)
func SubRegReg(dst, src Reg) Instruction { return regReg(0x29, "sub", dst, src) }

// XorRegReg encodes xor dst, src (REX.W 31 /r)
func XorRegReg(dst, src Reg) Instruction { return regReg(0x31, "xor", dst, src) }

// CmpRegReg encodes cmp a, b (REX.W 39 /r)
func CmpRegReg(a, b Reg) Instruction { return regReg(0x39, "cmp", a, b) }

// TestRegReg encodes test a, b (REX.W 85 /r)
func TestRegReg(a, b Reg) Instruction { return regReg(0x85, "test", a, b) }

// AddRegImm32 encodes add dst, imm32 (REX.W 81 /0 id)
func AddRegImm32(dst Reg, imm int32) Instruction { return regImm32(0, "add", dst, imm) }

// SubRegImm32 encodes sub dst, imm32 (REX.W 81 /5 id)
func SubRegImm32(dst Reg, imm int32) Instruction { return regImm32(5, "sub", dst, imm) }

// CmpRegImm32 encodes cmp dst, imm32 (REX.W 81 /7 id)
func CmpRegImm32(dst Reg, imm int32) Instruction { return regImm32(7, "cmp", dst, imm) }

// SalRegImm8 encodes sal dst, imm8 (REX.W C1 /4 ib)
func SalRegImm8(dst Reg, imm uint8) Instruction {
	ins := rexW()
	ins.setOpcode(0xC1)
	ins.regDirect(4, false, dst)
	ins.Imm = int64(imm)
	ins.ImmSize = 1
	ins.Mnemonic = "sal"
	ins.Operands = fmt.Sprintf("%s, %d", dst, imm)
	return ins
}

// regReg is the "op r/m64, r64" form: ModRM.reg=src, ModRM.rm=dst
func regReg(op byte, mnemonic string, dst, src Reg) Instruction {
	mustReg(src)
	ins := rexW()
	ins.setOpcode(op)
	ins.regDirect(src.Low3(), src.Extended(), dst)
	ins.Mnemonic = mnemonic
	ins.Operands = fmt.Sprintf("%s, %s", dst, src)
	return ins
}

// regImm32 is the 81 /ext form where ModRM.reg selects the operation
func regImm32(ext uint8, mnemonic string, dst Reg, imm int32) Instruction {
	ins := rexW()
	ins.setOpcode(0x81)
	ins.regDirect(ext, false, dst)
	ins.Imm = int64(imm)
	ins.ImmSize = 4
	ins.Mnemonic = mnemonic
	ins.Operands = fmt.Sprintf("%s, %d", dst, imm)
	return ins
}
