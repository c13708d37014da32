package elfbuild

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSample lays out a text segment with code, a bss reservation and a
// data segment holding a string
func buildSample(t *testing.T) (*Builder, []byte) {
	t.Helper()
	b := New(0)

	b.StartSegment(Text)
	b.WriteBytes([]byte{0x48, 0x31, 0xFF}) // xor rdi, rdi
	require.NoError(t, b.WriteByte(0xC3))
	b.WriteU16(0x050F)
	b.WriteU32(0xDEADBEEF)
	b.WriteU64(0x0102030405060708)
	b.EndSegment(Text)

	b.StartSegment(BSS)
	b.Reserve(256)
	b.EndSegment(BSS)

	b.StartSegment(Data)
	_, err := b.Write([]byte("hi\x00"))
	require.NoError(t, err)
	b.EndSegment(Data)

	img, err := b.Finalize()
	require.NoError(t, err)
	return b, img
}

// TestELFMagicNumber verifies the identification bytes and header counts
func TestELFMagicNumber(t *testing.T) {
	_, img := buildSample(t)

	require.GreaterOrEqual(t, len(img), HeadersSize)
	assert.Equal(t, []byte{0x7F, 'E', 'L', 'F'}, img[:4])
	assert.Equal(t, byte(2), img[elf.EI_CLASS], "64-bit")
	assert.Equal(t, byte(1), img[elf.EI_DATA], "little endian")
	assert.Equal(t, byte(1), img[elf.EI_VERSION])

	assert.Equal(t, uint16(elf.ET_EXEC), binary.LittleEndian.Uint16(img[16:]))
	assert.Equal(t, uint16(elf.EM_X86_64), binary.LittleEndian.Uint16(img[18:]))
	assert.Equal(t, uint16(3), binary.LittleEndian.Uint16(img[56:]), "e_phnum")
}

// TestELFReadBack parses the image with debug/elf and checks every segment
func TestELFReadBack(t *testing.T) {
	_, img := buildSample(t)

	f, err := elf.NewFile(bytes.NewReader(img))
	require.NoError(t, err)

	assert.Equal(t, elf.ELFCLASS64, f.Class)
	assert.Equal(t, elf.ET_EXEC, f.Type)
	assert.Equal(t, elf.EM_X86_64, f.Machine)
	assert.Equal(t, uint64(Entry), f.Entry)
	assert.Equal(t, uint64(0x401000), f.Entry)

	require.Len(t, f.Progs, 3)

	text, bss, data := f.Progs[0], f.Progs[1], f.Progs[2]

	assert.Equal(t, elf.PT_LOAD, text.Type)
	assert.Equal(t, elf.PF_X|elf.PF_R, text.Flags)
	assert.Equal(t, uint64(0x1000), text.Off)
	assert.Equal(t, uint64(0x401000), text.Vaddr)
	assert.Equal(t, uint64(18), text.Filesz)
	assert.Equal(t, text.Filesz, text.Memsz)

	assert.Equal(t, elf.PF_W|elf.PF_R, bss.Flags)
	assert.Equal(t, uint64(0x2000), bss.Off)
	assert.Equal(t, uint64(0x402000), bss.Vaddr)
	assert.Equal(t, uint64(256), bss.Memsz)

	assert.Equal(t, elf.PF_R, data.Flags)
	assert.Equal(t, uint64(0x3000), data.Off)
	assert.Equal(t, uint64(0x403000), data.Vaddr)
	assert.Equal(t, uint64(3), data.Filesz)

	for _, p := range f.Progs {
		assert.Equal(t, uint64(PageSize), p.Align)
		assert.Zero(t, p.Off%PageSize, "segments are page aligned")
		assert.Equal(t, p.Off+LoadBias, p.Vaddr)
	}

	assert.Len(t, img, 0x3003)
	assert.Equal(t, []byte("hi\x00"), img[0x3000:])
	assert.Equal(t, []byte{0x48, 0x31, 0xFF, 0xC3, 0x0F, 0x05, 0xEF, 0xBE, 0xAD, 0xDE}, img[0x1000:0x100A])
}

func TestBSSIsZero(t *testing.T) {
	_, img := buildSample(t)
	assert.Equal(t, make([]byte, 256), img[0x2000:0x2100])
}

func TestSegmentStartsOnNextPage(t *testing.T) {
	b := New(0)
	b.StartSegment(Text)
	b.Reserve(PageSize) // cursor lands exactly on 0x2000
	b.EndSegment(Text)

	b.StartSegment(BSS)
	assert.Equal(t, uint64(0x3000), b.Offset())
	assert.Equal(t, uint64(0x403000), b.Addr())
}

func TestAddrOfTextStartIsEntry(t *testing.T) {
	b := New(0)
	b.StartSegment(Text)
	assert.Equal(t, uint64(Entry), b.Addr())
}

// TestGrowthPreservesBytes writes far past the initial capacity
func TestGrowthPreservesBytes(t *testing.T) {
	b := New(16)
	b.StartSegment(Text)

	payload := make([]byte, 3*PageSize)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	for i := 0; i < len(payload); i += 100 {
		end := min(i+100, len(payload))
		b.WriteBytes(payload[i:end])
	}
	b.EndSegment(Text)
	b.StartSegment(BSS)
	b.EndSegment(BSS)
	b.StartSegment(Data)
	b.EndSegment(Data)

	img, err := b.Finalize()
	require.NoError(t, err)

	assert.Greater(t, b.Grows(), 1)
	assert.Greater(t, b.Cap(), TextOffset+len(payload))
	assert.Equal(t, payload, img[TextOffset:TextOffset+len(payload)])
}

func TestResetForgetsPreviousPass(t *testing.T) {
	b, _ := buildSample(t)
	b.Reset()

	assert.Equal(t, uint64(TextOffset), b.Offset())
	assert.Equal(t, Segment{Kind: BSS, Flags: elf.PF_W | elf.PF_R}, b.Segment(BSS))

	b.StartSegment(Text)
	b.EndSegment(Text)
	b.StartSegment(BSS)
	b.EndSegment(BSS)
	b.StartSegment(Data)
	b.EndSegment(Data)
	img, err := b.Finalize()
	require.NoError(t, err)

	// nothing from the previous pass leaks into the payload area
	assert.Len(t, img, 0x3000)
	assert.Equal(t, make([]byte, 0x3000-TextOffset), img[TextOffset:])
}

func TestFinalizeRejectsOpenSegment(t *testing.T) {
	b := New(0)
	b.StartSegment(Text)
	_, err := b.Finalize()
	assert.ErrorIs(t, err, ErrSegmentOpen)
}

func TestSegmentMisuse(t *testing.T) {
	b := New(0)
	assert.Panics(t, func() { b.EndSegment(Data) })

	b.StartSegment(Text)
	assert.Panics(t, func() { b.StartSegment(Text) })
}
