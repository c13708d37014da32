// Completion: 100% - Instruction implementation complete
package x86

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrIndexRSP is returned when rsp is requested as an index register.
	// ModRM/SIB has no way to express it: index=100 means "no index".
	ErrIndexRSP = errors.New("rsp cannot be used as index register")

	ErrInvalidScale = errors.New("scale must be 1, 2, 4 or 8")
)

// Mem is a [base + index*scale + disp] memory operand. Base and Index may be
// NoReg. Scale is ignored without an index.
type Mem struct {
	Base      Reg
	Index     Reg
	Scale     uint8
	Disp      int32
	ForceDisp bool
}

// BaseDisp returns [base + disp]
func BaseDisp(base Reg, disp int32) Mem {
	return Mem{Base: base, Index: NoReg, Scale: 1, Disp: disp}
}

// BaseIndex returns [base + index*scale + disp]
func BaseIndex(base, index Reg, scale uint8, disp int32) Mem {
	return Mem{Base: base, Index: index, Scale: scale, Disp: disp}
}

func (m Mem) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	wrote := false
	if m.Base.Valid() {
		sb.WriteString(m.Base.String())
		wrote = true
	}
	if m.Index.Valid() {
		if wrote {
			sb.WriteString(" + ")
		}
		fmt.Fprintf(&sb, "%s*%d", m.Index, m.scale())
		wrote = true
	}
	switch {
	case !wrote:
		fmt.Fprintf(&sb, "0x%x", uint32(m.Disp))
	case m.Disp > 0:
		fmt.Fprintf(&sb, " + %d", m.Disp)
	case m.Disp < 0:
		fmt.Fprintf(&sb, " - %d", -int64(m.Disp))
	}
	sb.WriteByte(']')
	return sb.String()
}

func (m Mem) scale() uint8 {
	if m.Scale == 0 {
		return 1
	}
	return m.Scale
}

// Addressing is the resolved form of a Mem: the ModRM mod/rm fields, an
// optional SIB byte, an optional disp32 and the REX.X/REX.B bits.
// ModRM.reg is left to the instruction.
type Addressing struct {
	Mod, RM uint8

	SIB     SIB
	SIBUsed bool

	Disp     int32
	DispSize int

	RexX, RexB bool
}

// Resolve computes the addressing bytes for m
func Resolve(m Mem) (Addressing, error) {
	var a Addressing

	hasBase := m.Base.Valid()
	hasIndex := m.Index.Valid()

	if hasIndex && m.Index == RSP {
		return a, ErrIndexRSP
	}

	var scaleBits uint8
	if hasIndex {
		switch m.scale() {
		case 1:
			scaleBits = 0b00
		case 2:
			scaleBits = 0b01
		case 4:
			scaleBits = 0b10
		case 8:
			scaleBits = 0b11
		default:
			return a, ErrInvalidScale
		}
	}

	indexBits := uint8(0b100) // no index
	if hasIndex {
		indexBits = m.Index.Low3()
		a.RexX = m.Index.Extended()
	}

	if !hasBase {
		// mod=00 with SIB.base=101 means disp32 and no base
		a.Mod = 0b00
		a.RM = 0b100
		a.SIB = SIB{Scale: scaleBits, Index: indexBits, Base: 0b101}
		a.SIBUsed = true
		a.Disp = m.Disp
		a.DispSize = 4
		return a, nil
	}

	a.RexB = m.Base.Extended()

	// rbp and r13 as base with mod=00 would mean rip-relative / no base
	dispUsed := m.Disp != 0 || m.ForceDisp || m.Base.Low3() == 0b101
	if dispUsed {
		a.Mod = 0b10
		a.Disp = m.Disp
		a.DispSize = 4
	}

	// rm=100 means "SIB follows", so rsp and r12 always need one
	if hasIndex || m.Base.Low3() == 0b100 {
		a.RM = 0b100
		a.SIB = SIB{Scale: scaleBits, Index: indexBits, Base: m.Base.Low3()}
		a.SIBUsed = true
	} else {
		a.RM = m.Base.Low3()
	}

	return a, nil
}
