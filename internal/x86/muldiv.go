// Completion: 100% - Instruction implementation complete
package x86

import "fmt"

// ImulRegReg encodes imul dst, src as REX.W 0F AF /r. Unlike the 01/29/31
// family, ModRM.reg is the destination here.
func ImulRegReg(dst, src Reg) Instruction {
	mustReg(dst)
	ins := rexW()
	ins.setOpcode(0x0F, 0xAF)
	ins.regDirect(dst.Low3(), dst.Extended(), src)
	ins.Mnemonic = "imul"
	ins.Operands = fmt.Sprintf("%s, %s", dst, src)
	return ins
}

// Idiv encodes idiv src (REX.W F7 /7): rdx:rax / src, quotient in rax,
// remainder in rdx
func Idiv(src Reg) Instruction { return unary(0xF7, 7, "idiv", src) }

// Neg encodes neg r (REX.W F7 /3)
func Neg(r Reg) Instruction { return unary(0xF7, 3, "neg", r) }

// Inc encodes inc r (REX.W FF /0)
func Inc(r Reg) Instruction { return unary(0xFF, 0, "inc", r) }

// Dec encodes dec r (REX.W FF /1)
func Dec(r Reg) Instruction { return unary(0xFF, 1, "dec", r) }

// Cqo sign-extends rax into rdx:rax (REX.W 99)
func Cqo() Instruction {
	ins := rexW()
	ins.setOpcode(0x99)
	ins.Mnemonic = "cqo"
	return ins
}

func unary(op byte, ext uint8, mnemonic string, r Reg) Instruction {
	ins := rexW()
	ins.setOpcode(op)
	ins.regDirect(ext, false, r)
	ins.Mnemonic = mnemonic
	ins.Operands = r.String()
	return ins
}
