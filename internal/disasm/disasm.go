// Completion: 100% - Utility module complete

// Package disasm decodes the text segment of a generated executable back
// into Intel syntax, as an independent check of the encoder
package disasm

import (
	"bytes"
	"debug/elf"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

var ErrNoText = errors.New("no executable segment")

// Symbols maps virtual addresses to label names
type Symbols map[uint64]string

func (s Symbols) lookup(addr uint64) (string, uint64) {
	if name, ok := s[addr]; ok {
		return name, addr
	}
	return "", 0
}

// Line is one decoded instruction
type Line struct {
	Addr  uint64
	Bytes []byte
	Text  string
	Valid bool
}

// Decode walks code, which is loaded at base. Bytes that do not decode are
// returned one at a time with Valid unset.
func Decode(code []byte, base uint64, syms Symbols) []Line {
	var lines []Line
	offset := 0
	for offset < len(code) {
		addr := base + uint64(offset)
		inst, err := x86asm.Decode(code[offset:], 64)
		if err != nil {
			lines = append(lines, Line{
				Addr:  addr,
				Bytes: code[offset : offset+1],
				Text:  fmt.Sprintf("db 0x%02x", code[offset]),
			})
			offset++
			continue
		}
		lines = append(lines, Line{
			Addr:  addr,
			Bytes: code[offset : offset+inst.Len],
			Text:  x86asm.IntelSyntax(inst, addr, syms.lookup),
			Valid: true,
		})
		offset += inst.Len
	}
	return lines
}

// Disassemble renders code as one instruction per line, with a label line
// in front of every address found in syms
func Disassemble(code []byte, base uint64, syms Symbols) string {
	var sb strings.Builder
	for _, l := range Decode(code, base, syms) {
		if name, ok := syms[l.Addr]; ok {
			sb.WriteString(name + ":\n")
		}
		hexBytes := make([]string, len(l.Bytes))
		for i, b := range l.Bytes {
			hexBytes[i] = fmt.Sprintf("%02x", b)
		}
		fmt.Fprintf(&sb, "0x%04x: %-30s %s\n", l.Addr, strings.Join(hexBytes, " "), l.Text)
	}
	return sb.String()
}

// Text returns the contents and load address of the executable segment of
// an ELF image
func Text(image []byte) ([]byte, uint64, error) {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return nil, 0, fmt.Errorf("reading ELF: %w", err)
	}
	defer f.Close()
	for _, p := range f.Progs {
		if p.Type != elf.PT_LOAD || p.Flags&elf.PF_X == 0 {
			continue
		}
		code := make([]byte, p.Filesz)
		if _, err := p.ReadAt(code, 0); err != nil {
			return nil, 0, fmt.Errorf("reading text segment: %w", err)
		}
		return code, p.Vaddr, nil
	}
	return nil, 0, ErrNoText
}
