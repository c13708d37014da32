// Completion: 100% - Instruction implementation complete
package x86

import (
	"encoding/binary"
	"fmt"
)

// Rex is the 0x40-0x4F prefix
type Rex struct {
	W, R, X, B bool
}

// Byte packs the prefix as 0100WRXB
func (r Rex) Byte() byte {
	b := byte(0x40)
	if r.W {
		b |= 0x08
	}
	if r.R {
		b |= 0x04
	}
	if r.X {
		b |= 0x02
	}
	if r.B {
		b |= 0x01
	}
	return b
}

// ModRM is the mod(2) reg(3) rm(3) addressing byte
type ModRM struct {
	Mod, Reg, RM uint8
}

func (m ModRM) Byte() byte {
	return (m.Mod&3)<<6 | (m.Reg&7)<<3 | m.RM&7
}

// SIB is the scale(2) index(3) base(3) addressing byte
type SIB struct {
	Scale, Index, Base uint8
}

func (s SIB) Byte() byte {
	return (s.Scale&3)<<6 | (s.Index&7)<<3 | s.Base&7
}

// Instruction is a single encoded operation. It is built by one of the
// constructors in this package and consumed right away by an emitter.
type Instruction struct {
	Opcode    [3]byte
	OpcodeLen int

	Rex     Rex
	RexUsed bool

	ModRM     ModRM
	ModRMUsed bool

	SIB     SIB
	SIBUsed bool

	Disp     int64
	DispSize int

	Imm     int64
	ImmSize int

	// Mnemonic and Operands are the listing form
	Mnemonic string
	Operands string
}

// Len is the statically declared length of the instruction in bytes
func (ins *Instruction) Len() int {
	n := ins.OpcodeLen + ins.DispSize + ins.ImmSize
	if ins.RexUsed {
		n++
	}
	if ins.ModRMUsed {
		n++
	}
	if ins.SIBUsed {
		n++
	}
	return n
}

// Encode appends the machine code for ins to dst
func (ins *Instruction) Encode(dst []byte) []byte {
	if ins.RexUsed {
		dst = append(dst, ins.Rex.Byte())
	}
	dst = append(dst, ins.Opcode[:ins.OpcodeLen]...)
	if ins.ModRMUsed {
		dst = append(dst, ins.ModRM.Byte())
	}
	if ins.SIBUsed {
		dst = append(dst, ins.SIB.Byte())
	}
	dst = appendLittleEndian(dst, ins.Disp, ins.DispSize)
	dst = appendLittleEndian(dst, ins.Imm, ins.ImmSize)
	return dst
}

// Bytes returns the machine code for ins
func (ins *Instruction) Bytes() []byte {
	return ins.Encode(make([]byte, 0, ins.Len()))
}

// SetRel32 stores a rel32 displacement computed from the instruction's own
// address and the target address
func (ins *Instruction) SetRel32(offset, target uint64) {
	if ins.ImmSize != 4 {
		panic(fmt.Sprintf("x86: %s has no rel32 operand", ins.Mnemonic))
	}
	ins.Imm = int64(target) - int64(offset) - int64(ins.Len())
}

func (ins *Instruction) String() string {
	if ins.Operands == "" {
		return ins.Mnemonic
	}
	return ins.Mnemonic + " " + ins.Operands
}

func appendLittleEndian(dst []byte, v int64, size int) []byte {
	switch size {
	case 0:
		return dst
	case 1:
		return append(dst, byte(v))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(v))
	case 4:
		return binary.LittleEndian.AppendUint32(dst, uint32(v))
	case 8:
		return binary.LittleEndian.AppendUint64(dst, uint64(v))
	}
	panic(fmt.Sprintf("x86: invalid field size %d", size))
}

func (ins *Instruction) setOpcode(op ...byte) {
	if len(op) == 0 || len(op) > 3 {
		panic("x86: opcode must be 1-3 bytes")
	}
	ins.OpcodeLen = copy(ins.Opcode[:], op)
}

// rexW starts an instruction with 64-bit operand size
func rexW() Instruction {
	return Instruction{Rex: Rex{W: true}, RexUsed: true}
}

// regDirect fills ModRM for a register-direct form: reg field, rm register
func (ins *Instruction) regDirect(reg uint8, regExt bool, rm Reg) {
	mustReg(rm)
	ins.ModRM = ModRM{Mod: 0b11, Reg: reg, RM: rm.Low3()}
	ins.ModRMUsed = true
	if regExt {
		ins.Rex.R = true
		ins.RexUsed = true
	}
	if rm.Extended() {
		ins.Rex.B = true
		ins.RexUsed = true
	}
}

// memory fills ModRM/SIB/disp from a resolved memory operand
func (ins *Instruction) memory(reg uint8, regExt bool, m Mem) {
	a, err := Resolve(m)
	if err != nil {
		panic(fmt.Sprintf("x86: %v", err))
	}
	ins.ModRM = ModRM{Mod: a.Mod, Reg: reg, RM: a.RM}
	ins.ModRMUsed = true
	ins.SIB = a.SIB
	ins.SIBUsed = a.SIBUsed
	ins.Disp = int64(a.Disp)
	ins.DispSize = a.DispSize
	if regExt {
		ins.Rex.R = true
		ins.RexUsed = true
	}
	if a.RexX {
		ins.Rex.X = true
		ins.RexUsed = true
	}
	if a.RexB {
		ins.Rex.B = true
		ins.RexUsed = true
	}
}

func mustReg(r Reg) {
	if !r.Valid() {
		panic(fmt.Sprintf("x86: invalid register %d", r))
	}
}
