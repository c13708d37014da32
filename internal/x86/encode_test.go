package x86

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/arch/x86/x86asm"
)

type encodingCase struct {
	name string
	ins  Instruction
	want []byte
}

func encodingCases() []encodingCase {
	return []encodingCase{
		{"push rax", Push(RAX), []byte{0x50}},
		{"push rbp", Push(RBP), []byte{0x55}},
		{"push r12", Push(R12), []byte{0x41, 0x54}},
		{"pop rbp", Pop(RBP), []byte{0x5D}},
		{"pop r15", Pop(R15), []byte{0x41, 0x5F}},

		{"mov rbp, rsp", MovRegReg(RBP, RSP), []byte{0x48, 0x89, 0xE5}},
		{"mov rsp, rbp", MovRegReg(RSP, RBP), []byte{0x48, 0x89, 0xEC}},
		{"mov rbx, rax", MovRegReg(RBX, RAX), []byte{0x48, 0x89, 0xC3}},
		{"mov r8, rax", MovRegReg(R8, RAX), []byte{0x49, 0x89, 0xC0}},
		{"mov rax, r9", MovRegReg(RAX, R9), []byte{0x4C, 0x89, 0xC8}},
		{"mov rax, 60", MovRegImm64(RAX, 60), []byte{0x48, 0xB8, 0x3C, 0, 0, 0, 0, 0, 0, 0}},
		{"mov r10, 1", MovRegImm64(R10, 1), []byte{0x49, 0xBA, 0x01, 0, 0, 0, 0, 0, 0, 0}},

		{"mov rax, [rbp-8]", MovRegMem(RAX, BaseDisp(RBP, -8)), []byte{0x48, 0x8B, 0x85, 0xF8, 0xFF, 0xFF, 0xFF}},
		{"mov [rbp+16], rax", MovMemReg(BaseDisp(RBP, 16), RAX), []byte{0x48, 0x89, 0x85, 0x10, 0, 0, 0}},
		{"mov rax, [rsp]", MovRegMem(RAX, BaseDisp(RSP, 0)), []byte{0x48, 0x8B, 0x04, 0x24}},
		{"mov rax, [r12]", MovRegMem(RAX, BaseDisp(R12, 0)), []byte{0x49, 0x8B, 0x04, 0x24}},
		{"mov rax, [r13]", MovRegMem(RAX, BaseDisp(R13, 0)), []byte{0x49, 0x8B, 0x85, 0, 0, 0, 0}},
		{"mov rax, [rax+rbx*8]", MovRegMem(RAX, BaseIndex(RAX, RBX, 8, 0)), []byte{0x48, 0x8B, 0x04, 0xD8}},
		{"mov rax, [rax+r9*8-24]", MovRegMem(RAX, BaseIndex(RAX, R9, 8, -24)), []byte{0x4A, 0x8B, 0x84, 0xC8, 0xE8, 0xFF, 0xFF, 0xFF}},
		{"mov rax, [0x1000]", MovRegMem(RAX, Mem{Base: NoReg, Index: NoReg, Disp: 0x1000}), []byte{0x48, 0x8B, 0x04, 0x25, 0x00, 0x10, 0, 0}},
		{"mov [rsi], dl", MovMem8Reg(BaseDisp(RSI, 0), RDX), []byte{0x88, 0x16}},
		{"mov [rax], sil", MovMem8Reg(BaseDisp(RAX, 0), RSI), []byte{0x40, 0x88, 0x30}},
		{"mov byte [rsi], 10", MovMem8Imm(BaseDisp(RSI, 0), 10), []byte{0xC6, 0x06, 0x0A}},
		{"movzx rbx, byte [rsi]", MovzxRegMem8(RBX, BaseDisp(RSI, 0)), []byte{0x48, 0x0F, 0xB6, 0x1E}},
		{"lea rsi, [rsi+256]", Lea(RSI, BaseDisp(RSI, 256)), []byte{0x48, 0x8D, 0xB6, 0x00, 0x01, 0, 0}},

		{"add rax, rbx", AddRegReg(RAX, RBX), []byte{0x48, 0x01, 0xD8}},
		{"sub rsp, rax", SubRegReg(RSP, RAX), []byte{0x48, 0x29, 0xC4}},
		{"xor rdx, rdx", XorRegReg(RDX, RDX), []byte{0x48, 0x31, 0xD2}},
		{"cmp rax, rbx", CmpRegReg(RAX, RBX), []byte{0x48, 0x39, 0xD8}},
		{"cmp rcx, r9", CmpRegReg(RCX, R9), []byte{0x4C, 0x39, 0xC9}},
		{"test rax, rax", TestRegReg(RAX, RAX), []byte{0x48, 0x85, 0xC0}},
		{"add rsp, 16", AddRegImm32(RSP, 16), []byte{0x48, 0x81, 0xC4, 0x10, 0, 0, 0}},
		{"sub rsp, 8", SubRegImm32(RSP, 8), []byte{0x48, 0x81, 0xEC, 0x08, 0, 0, 0}},
		{"cmp rbx, 9", CmpRegImm32(RBX, 9), []byte{0x48, 0x81, 0xFB, 0x09, 0, 0, 0}},
		{"sal rax, 3", SalRegImm8(RAX, 3), []byte{0x48, 0xC1, 0xE0, 0x03}},

		{"imul rax, rbx", ImulRegReg(RAX, RBX), []byte{0x48, 0x0F, 0xAF, 0xC3}},
		{"idiv rbx", Idiv(RBX), []byte{0x48, 0xF7, 0xFB}},
		{"neg rax", Neg(RAX), []byte{0x48, 0xF7, 0xD8}},
		{"inc rsi", Inc(RSI), []byte{0x48, 0xFF, 0xC6}},
		{"dec rsi", Dec(RSI), []byte{0x48, 0xFF, 0xCE}},
		{"cqo", Cqo(), []byte{0x48, 0x99}},

		{"jmp", Jmp(0), []byte{0xE9, 0, 0, 0, 0}},
		{"call", Call(-5), []byte{0xE8, 0xFB, 0xFF, 0xFF, 0xFF}},
		{"jz", Jcc(CondZ, 0x10), []byte{0x0F, 0x84, 0x10, 0, 0, 0}},
		{"jne", Jcc(CondNE, 0), []byte{0x0F, 0x85, 0, 0, 0, 0}},
		{"jl", Jcc(CondL, 0), []byte{0x0F, 0x8C, 0, 0, 0, 0}},
		{"jge", Jcc(CondGE, 0), []byte{0x0F, 0x8D, 0, 0, 0, 0}},
		{"jle", Jcc(CondLE, 0), []byte{0x0F, 0x8E, 0, 0, 0, 0}},
		{"jg", Jcc(CondG, 0), []byte{0x0F, 0x8F, 0, 0, 0, 0}},
		{"ret", Ret(), []byte{0xC3}},
		{"syscall", Syscall(), []byte{0x0F, 0x05}},
	}
}

// TestEncodings checks every supported form against hand-assembled bytes
func TestEncodings(t *testing.T) {
	for _, tc := range encodingCases() {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.ins.Bytes()
			assert.Equal(t, tc.want, got, "encoding of %s", tc.ins.String())
		})
	}
}

// TestLengthMatchesEncoding verifies that Len() is exactly the number of
// bytes Encode() produces
func TestLengthMatchesEncoding(t *testing.T) {
	for _, tc := range encodingCases() {
		ins := tc.ins
		assert.Len(t, ins.Bytes(), ins.Len(), tc.name)

		// appending to a non-empty buffer must not change the count either
		prefix := []byte{0xAA, 0xBB}
		out := ins.Encode(prefix)
		assert.Len(t, out, len(prefix)+ins.Len(), tc.name)
	}
}

var decoderAliases = map[string]string{
	"sal": "shl",
	"jz":  "je",
	"jnz": "jne",
}

// TestDecodesWithX86asm decodes every encoding with an independent decoder
// and checks the instruction length and the opcode
func TestDecodesWithX86asm(t *testing.T) {
	for _, tc := range encodingCases() {
		t.Run(tc.name, func(t *testing.T) {
			code := tc.ins.Bytes()
			inst, err := x86asm.Decode(code, 64)
			require.NoError(t, err)
			assert.Equal(t, len(code), inst.Len)

			want := tc.ins.Mnemonic
			if alias, ok := decoderAliases[want]; ok {
				want = alias
			}
			assert.Equal(t, want, strings.ToLower(inst.Op.String()))
		})
	}
}

// TestRegisterFormsMatchIntelSyntax compares the listing text of register-only
// instructions with the decoder's Intel syntax
func TestRegisterFormsMatchIntelSyntax(t *testing.T) {
	cases := []Instruction{
		Push(RBP),
		Pop(R15),
		MovRegReg(RBP, RSP),
		MovRegReg(R8, RAX),
		AddRegReg(RAX, RBX),
		SubRegReg(RSP, RAX),
		XorRegReg(RDX, RDX),
		CmpRegReg(RCX, R9),
		TestRegReg(RAX, RAX),
		ImulRegReg(RAX, RBX),
		Idiv(RBX),
		Neg(RAX),
	}
	for _, ins := range cases {
		inst, err := x86asm.Decode(ins.Bytes(), 64)
		require.NoError(t, err)
		assert.Equal(t, ins.String(), x86asm.IntelSyntax(inst, 0, nil))
	}
}

func TestRel32(t *testing.T) {
	ins := Jmp(0)
	ins.SetRel32(0x100, 0x100)
	assert.Equal(t, int64(-5), ins.Imm)

	call := Call(0)
	call.SetRel32(0x1000, 0x1100)
	assert.Equal(t, int64(0x100-5), call.Imm)

	jz := Jcc(CondZ, 0)
	jz.SetRel32(0x2000, 0x1000)
	assert.Equal(t, int64(-0x1000-6), jz.Imm)

	// a decoder agrees on where the jump lands
	inst, err := x86asm.Decode(call.Bytes(), 64)
	require.NoError(t, err)
	rel, ok := inst.Args[0].(x86asm.Rel)
	require.True(t, ok)
	assert.Equal(t, uint64(0x1100), uint64(0x1000+int64(inst.Len)+int64(rel)))
}

func TestSetRel32PanicsWithoutImmediate(t *testing.T) {
	ins := Ret()
	assert.Panics(t, func() { ins.SetRel32(0, 0) })
}

func TestInvalidRegisterPanics(t *testing.T) {
	assert.Panics(t, func() { Push(NoReg) })
	assert.Panics(t, func() { MovRegReg(RAX, Reg(16)) })
	assert.Panics(t, func() { MovRegMem(RAX, BaseIndex(RAX, RSP, 8, 0)) })
}

func TestRexByte(t *testing.T) {
	assert.Equal(t, byte(0x40), Rex{}.Byte())
	assert.Equal(t, byte(0x48), Rex{W: true}.Byte())
	assert.Equal(t, byte(0x4F), Rex{W: true, R: true, X: true, B: true}.Byte())
	assert.Equal(t, byte(0x41), Rex{B: true}.Byte())
}
