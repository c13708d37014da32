package x86

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveBaseOnly(t *testing.T) {
	a, err := Resolve(BaseDisp(RAX, 0))
	require.NoError(t, err)
	assert.Equal(t, uint8(0b00), a.Mod)
	assert.Equal(t, RAX.Low3(), a.RM)
	assert.False(t, a.SIBUsed)
	assert.Zero(t, a.DispSize)
}

func TestResolveBaseWithDisplacement(t *testing.T) {
	a, err := Resolve(BaseDisp(RBX, -16))
	require.NoError(t, err)
	assert.Equal(t, uint8(0b10), a.Mod)
	assert.Equal(t, 4, a.DispSize)
	assert.Equal(t, int32(-16), a.Disp)
}

// TestResolveFrameRegisterForcesDisplacement covers rbp and r13, which
// cannot be encoded with mod=00
func TestResolveFrameRegisterForcesDisplacement(t *testing.T) {
	for _, base := range []Reg{RBP, R13} {
		a, err := Resolve(BaseDisp(base, 0))
		require.NoError(t, err)
		assert.Equal(t, uint8(0b10), a.Mod, base.String())
		assert.Equal(t, 4, a.DispSize, base.String())
		assert.Equal(t, uint8(0b101), a.RM, base.String())
		assert.Equal(t, base == R13, a.RexB, base.String())
	}
}

// TestResolveStackRegisterNeedsSIB covers rsp and r12, whose rm value 100
// is taken by "SIB follows"
func TestResolveStackRegisterNeedsSIB(t *testing.T) {
	for _, base := range []Reg{RSP, R12} {
		a, err := Resolve(BaseDisp(base, 0))
		require.NoError(t, err)
		assert.Equal(t, uint8(0b100), a.RM)
		require.True(t, a.SIBUsed)
		assert.Equal(t, SIB{Scale: 0, Index: 0b100, Base: 0b100}, a.SIB)
		assert.Equal(t, base == R12, a.RexB)
	}
}

func TestResolveScaledIndex(t *testing.T) {
	scales := map[uint8]uint8{1: 0b00, 2: 0b01, 4: 0b10, 8: 0b11}
	for scale, bits := range scales {
		a, err := Resolve(BaseIndex(RAX, RBX, scale, 0))
		require.NoError(t, err)
		require.True(t, a.SIBUsed)
		assert.Equal(t, bits, a.SIB.Scale)
		assert.Equal(t, RBX.Low3(), a.SIB.Index)
		assert.Equal(t, RAX.Low3(), a.SIB.Base)
		assert.Equal(t, uint8(0b100), a.RM)
	}

	a, err := Resolve(BaseIndex(R8, R9, 8, 0))
	require.NoError(t, err)
	assert.True(t, a.RexB)
	assert.True(t, a.RexX)
}

func TestResolveWithoutBase(t *testing.T) {
	a, err := Resolve(Mem{Base: NoReg, Index: RCX, Scale: 4, Disp: 0x40})
	require.NoError(t, err)
	assert.Equal(t, uint8(0b00), a.Mod)
	assert.Equal(t, uint8(0b101), a.SIB.Base)
	assert.Equal(t, uint8(0b10), a.SIB.Scale)
	assert.Equal(t, 4, a.DispSize)
	assert.Equal(t, int32(0x40), a.Disp)
}

func TestResolveRejectsRSPIndex(t *testing.T) {
	_, err := Resolve(BaseIndex(RAX, RSP, 1, 0))
	assert.ErrorIs(t, err, ErrIndexRSP)

	// r12 shares the low bits with rsp but is a valid index thanks to REX.X
	_, err = Resolve(BaseIndex(RAX, R12, 1, 0))
	assert.NoError(t, err)
}

func TestResolveRejectsBadScale(t *testing.T) {
	_, err := Resolve(BaseIndex(RAX, RBX, 3, 0))
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestMemString(t *testing.T) {
	assert.Equal(t, "[rbp - 8]", BaseDisp(RBP, -8).String())
	assert.Equal(t, "[rbp + 16]", BaseDisp(RBP, 16).String())
	assert.Equal(t, "[rax + rbx*8]", BaseIndex(RAX, RBX, 8, 0).String())
	assert.Equal(t, "[rax - 24]", BaseDisp(RAX, -24).String())
	assert.Equal(t, "[0x1000]", Mem{Base: NoReg, Index: NoReg, Disp: 0x1000}.String())
}
