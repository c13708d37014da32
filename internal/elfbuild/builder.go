// Completion: 100% - Platform support complete

// Package elfbuild lays out a static x86-64 Linux executable with three
// PT_LOAD segments (text, bss, data) and serializes its headers.
//
// File offsets and virtual addresses differ by a fixed load bias, so the
// address of anything written into the image is known at the moment it is
// written. There is no relocation step.
package elfbuild

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	elfHeaderSize  = 64 // ELF64 header size
	progHeaderSize = 56 // Program header entry size (ELF64)
	segmentCount   = 3

	// LoadBias is added to a file offset to get its virtual address
	LoadBias = 0x400000
	// PageSize is the segment alignment
	PageSize = 0x1000
	// TextOffset is where the first segment starts in the file
	TextOffset = PageSize
	// Entry is the virtual address of the first text byte
	Entry = TextOffset + LoadBias

	growthFactor    = 1.6
	defaultCapacity = 2 * PageSize
)

// HeadersSize is the space taken by the ELF header and program headers
const HeadersSize = elfHeaderSize + segmentCount*progHeaderSize

var ErrSegmentOpen = errors.New("segment was started but never ended")

// Kind names one of the three segments. The order is the program header order.
type Kind int

const (
	Text Kind = iota
	BSS
	Data
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case BSS:
		return "bss"
	case Data:
		return "data"
	default:
		return "unknown"
	}
}

func (k Kind) flags() elf.ProgFlag {
	switch k {
	case Text:
		return elf.PF_X | elf.PF_R
	case BSS:
		return elf.PF_W | elf.PF_R
	default:
		return elf.PF_R
	}
}

// Segment is the layout of one PT_LOAD entry
type Segment struct {
	Kind   Kind
	Flags  elf.ProgFlag
	Offset uint64
	Vaddr  uint64
	Filesz uint64
	Memsz  uint64

	started bool
	ended   bool
}

// Builder is a growable output image plus a write cursor
type Builder struct {
	buf    []byte // len(buf) is the capacity; bytes past high are zero
	offset uint64
	high   uint64
	segs   [segmentCount]Segment
	grows  int
}

// New creates a builder with at least initialCapacity bytes of room
func New(initialCapacity int) *Builder {
	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	b := &Builder{buf: make([]byte, initialCapacity)}
	b.Reset()
	return b
}

// Reset rewinds the cursor to the text segment start and forgets all
// segment layout, so a new pass can re-emit the whole image
func (b *Builder) Reset() {
	clear(b.buf[:b.high])
	b.high = 0
	for k := range b.segs {
		b.segs[k] = Segment{Kind: Kind(k), Flags: Kind(k).flags()}
	}
	b.offset = 0
	b.ensure(TextOffset + 1)
	b.offset = TextOffset
	b.touch()
}

// Offset returns the current file offset
func (b *Builder) Offset() uint64 {
	return b.offset
}

// Addr returns the virtual address of the current offset
func (b *Builder) Addr() uint64 {
	return b.offset + LoadBias
}

// Cap returns the current capacity of the backing buffer
func (b *Builder) Cap() int {
	return len(b.buf)
}

// Grows returns how many times the backing buffer has been reallocated
func (b *Builder) Grows() int {
	return b.grows
}

// Segment returns the layout recorded for k
func (b *Builder) Segment(k Kind) Segment {
	return b.segs[k]
}

// StartSegment moves the cursor to the start of segment k. Text always
// starts at TextOffset; the others start on the page after the cursor.
func (b *Builder) StartSegment(k Kind) {
	seg := &b.segs[k]
	if seg.started {
		panic(fmt.Sprintf("elfbuild: %s segment started twice", k))
	}

	var start uint64
	if k == Text {
		start = TextOffset
	} else {
		start = (b.offset &^ (PageSize - 1)) + PageSize
	}

	if start > b.offset {
		b.ensure(start - b.offset + 1)
	}
	b.offset = start
	b.touch()

	seg.Offset = start
	seg.Vaddr = start + LoadBias
	seg.started = true
}

// EndSegment closes segment k at the cursor
func (b *Builder) EndSegment(k Kind) {
	seg := &b.segs[k]
	if !seg.started || seg.ended {
		panic(fmt.Sprintf("elfbuild: %s segment ended without being started", k))
	}
	if b.offset < seg.Offset {
		panic(fmt.Sprintf("elfbuild: cursor 0x%x is before %s segment start 0x%x", b.offset, k, seg.Offset))
	}
	seg.Filesz = b.offset - seg.Offset
	seg.Memsz = seg.Filesz
	seg.ended = true
}

// Write appends p at the cursor. The whole slice lands in one contiguous
// region: capacity is reserved before anything is copied.
func (b *Builder) Write(p []byte) (int, error) {
	b.WriteBytes(p)
	return len(p), nil
}

// WriteBytes appends p at the cursor
func (b *Builder) WriteBytes(p []byte) {
	b.ensure(uint64(len(p)))
	copy(b.buf[b.offset:], p)
	b.offset += uint64(len(p))
	b.touch()
}

// WriteByte appends a single byte
func (b *Builder) WriteByte(c byte) error {
	b.WriteBytes([]byte{c})
	return nil
}

// WriteU16 appends a little-endian uint16
func (b *Builder) WriteU16(v uint16) {
	b.WriteBytes(binary.LittleEndian.AppendUint16(nil, v))
}

// WriteU32 appends a little-endian uint32
func (b *Builder) WriteU32(v uint32) {
	b.WriteBytes(binary.LittleEndian.AppendUint32(nil, v))
}

// WriteU64 appends a little-endian uint64
func (b *Builder) WriteU64(v uint64) {
	b.WriteBytes(binary.LittleEndian.AppendUint64(nil, v))
}

// Reserve advances the cursor by n zero bytes without writing them
func (b *Builder) Reserve(n uint64) {
	b.ensure(n)
	b.offset += n
	b.touch()
}

// Finalize writes the ELF header and the three program headers in front of
// the payload and returns a copy of the image
func (b *Builder) Finalize() ([]byte, error) {
	for _, seg := range b.segs {
		if seg.started && !seg.ended {
			return nil, fmt.Errorf("%s: %w", seg.Kind, ErrSegmentOpen)
		}
	}

	hdr := make([]byte, 0, HeadersSize)
	hdr = b.appendELFHeader(hdr)
	for _, seg := range b.segs {
		hdr = appendProgHeader(hdr, seg)
	}
	copy(b.buf, hdr)

	out := make([]byte, b.high)
	copy(out, b.buf[:b.high])
	return out, nil
}

func (b *Builder) appendELFHeader(w []byte) []byte {
	le := binary.LittleEndian

	var ident [elf.EI_NIDENT]byte
	copy(ident[:], elf.ELFMAG)
	ident[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	ident[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	ident[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	ident[elf.EI_OSABI] = byte(elf.ELFOSABI_NONE)
	w = append(w, ident[:]...)

	w = le.AppendUint16(w, uint16(elf.ET_EXEC))
	w = le.AppendUint16(w, uint16(elf.EM_X86_64))
	w = le.AppendUint32(w, uint32(elf.EV_CURRENT))
	w = le.AppendUint64(w, b.segs[Text].Vaddr) // entry
	w = le.AppendUint64(w, elfHeaderSize)      // phoff
	w = le.AppendUint64(w, 0)                  // shoff
	w = le.AppendUint32(w, 0)                  // flags
	w = le.AppendUint16(w, elfHeaderSize)
	w = le.AppendUint16(w, progHeaderSize)
	w = le.AppendUint16(w, segmentCount)
	w = le.AppendUint16(w, 0) // shentsize
	w = le.AppendUint16(w, 0) // shnum
	w = le.AppendUint16(w, 0) // shstrndx
	return w
}

func appendProgHeader(w []byte, seg Segment) []byte {
	le := binary.LittleEndian
	w = le.AppendUint32(w, uint32(elf.PT_LOAD))
	w = le.AppendUint32(w, uint32(seg.Flags))
	w = le.AppendUint64(w, seg.Offset)
	w = le.AppendUint64(w, seg.Vaddr)
	w = le.AppendUint64(w, seg.Vaddr) // paddr
	w = le.AppendUint64(w, seg.Filesz)
	w = le.AppendUint64(w, seg.Memsz)
	w = le.AppendUint64(w, PageSize)
	return w
}

// ensure makes room for n more bytes at the cursor, growing geometrically
// and keeping everything written so far
func (b *Builder) ensure(n uint64) {
	need := b.offset + n
	if need < uint64(len(b.buf)) {
		return
	}
	capacity := len(b.buf)
	for need >= uint64(capacity) {
		next := int(float64(capacity) * growthFactor)
		if next <= capacity {
			next = capacity + 1
		}
		capacity = next
	}
	grown := make([]byte, capacity)
	copy(grown, b.buf[:b.high])
	b.buf = grown
	b.grows++
}

func (b *Builder) touch() {
	if b.offset > b.high {
		b.high = b.offset
	}
}
