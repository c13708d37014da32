// Completion: 100% - Writer module complete
package codegen

import (
	"fmt"
	"strings"

	"github.com/xyproto/potter/internal/elfbuild"
	"github.com/xyproto/potter/internal/label"
	"github.com/xyproto/potter/internal/symtab"
	"github.com/xyproto/potter/internal/x86"
)

const (
	indent      = "                "
	bannerRule  = "; =================================================="
	commentCol  = 32
	runtimeNote = "standard I/O"
)

// Emitter writes instructions into the ELF image and, when a listing is
// requested, the matching assembly line. Every byte of code goes through
// Emit, so the two outputs cannot drift apart.
type Emitter struct {
	b       *elfbuild.Builder
	labels  *label.Manager
	listing *strings.Builder

	instructions int
}

// NewEmitter creates an emitter for one pass
func NewEmitter(b *elfbuild.Builder, labels *label.Manager, listing bool) *Emitter {
	e := &Emitter{b: b, labels: labels}
	if listing {
		e.listing = &strings.Builder{}
	}
	return e
}

// Listing returns the text written so far, or "" if listing is disabled
func (e *Emitter) Listing() string {
	if e.listing == nil {
		return ""
	}
	return e.listing.String()
}

// Instructions returns how many instructions were emitted
func (e *Emitter) Instructions() int {
	return e.instructions
}

// Offset returns the current file offset
func (e *Emitter) Offset() uint64 {
	return e.b.Offset()
}

func (e *Emitter) line(s string) {
	if e.listing == nil {
		return
	}
	e.listing.WriteString(s)
	e.listing.WriteByte('\n')
}

// Emit writes ins at the cursor
func (e *Emitter) Emit(ins x86.Instruction, comment string) {
	e.b.WriteBytes(ins.Bytes())
	e.instructions++
	if e.listing == nil {
		return
	}
	if comment == "" {
		e.line(indent + ins.String())
		return
	}
	e.line(fmt.Sprintf("%s%-*s; %s", indent, commentCol, ins.String(), comment))
}

// branch resolves the rel32 of a jump or call against key and emits it.
// A target that is not known yet leaves a zero displacement; the next pass
// will have the offset.
func (e *Emitter) branch(ins x86.Instruction, key label.Key, comment string) {
	target := e.labels.Reference(key)
	if target.Known {
		ins.SetRel32(e.b.Offset(), target.Offset)
	}
	ins.Operands = key.String()
	e.Emit(ins, comment)
}

// Jcc emits a conditional jump to key
func (e *Emitter) Jcc(c x86.Cond, key label.Key, comment string) {
	e.branch(x86.Jcc(c, 0), key, comment)
}

// Jmp emits an unconditional jump to key
func (e *Emitter) Jmp(key label.Key, comment string) {
	e.branch(x86.Jmp(0), key, comment)
}

// Call emits a call to key
func (e *Emitter) Call(key label.Key, comment string) {
	e.branch(x86.Call(0), key, comment)
}

// LoadAddress emits mov reg, imm64 with the virtual address of key
func (e *Emitter) LoadAddress(reg x86.Reg, key label.Key, comment string) {
	var addr int64
	if target := e.labels.Reference(key); target.Known {
		addr = int64(target.Offset + elfbuild.LoadBias)
	}
	ins := x86.MovRegImm64(reg, addr)
	ins.Operands = fmt.Sprintf("%s, %s", reg, key)
	e.Emit(ins, comment)
}

// Define places key at the cursor
func (e *Emitter) Define(key label.Key) {
	e.labels.Define(key, e.b.Offset())
	e.line(key.String() + ":")
}

// Comment writes a listing-only comment line
func (e *Emitter) Comment(format string, args ...any) {
	e.line(indent + "; " + fmt.Sprintf(format, args...))
}

// Directive writes a listing-only line such as "global _start"
func (e *Emitter) Directive(s string) {
	e.line(s)
}

// Banner writes the comment block that opens a function in the listing
func (e *Emitter) Banner(fn *symtab.Function) {
	title := fn.Name
	switch {
	case fn.Builtin:
		title += " (" + runtimeNote + ")"
	case fn.Void:
		title += " (void)"
	}
	e.line("")
	e.line(bannerRule)
	e.line("; " + title)
	e.line(";")
	e.line("; params: " + joinOrDash(fn.Params()))
	e.line("; vars:   " + joinOrDash(fn.Locals()))
	e.line(bannerRule)
}

func joinOrDash(names []string) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(names, ", ")
}

// StartSection opens segment k and writes its section header
func (e *Emitter) StartSection(k elfbuild.Kind) {
	e.b.StartSegment(k)
	if e.listing != nil && e.listing.Len() > 0 {
		e.line("")
	}
	e.line("section ." + k.String())
}

// EndSection closes segment k
func (e *Emitter) EndSection(k elfbuild.Kind) {
	e.b.EndSegment(k)
}

// Reserve defines key and skips n zero bytes, as resb does
func (e *Emitter) Reserve(key label.Key, n uint64) {
	e.Define(key)
	e.b.Reserve(n)
	e.line(fmt.Sprintf("%sresb %d", indent, n))
}

// String defines key and writes content followed by a NUL byte
func (e *Emitter) String(key label.Key, content string) {
	e.Define(key)
	e.b.WriteBytes([]byte(content))
	_ = e.b.WriteByte(0)
	e.line(fmt.Sprintf("%sdb %s, 0", indent, quoteNASM(content)))
}

// quoteNASM renders s as a NASM string constant. Plain text uses double
// quotes; anything needing an escape uses backquotes, where NASM expands
// C-style escapes.
func quoteNASM(s string) string {
	plain := true
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c >= 0x7f || c == '"' {
			plain = false
			break
		}
	}
	if plain {
		return `"` + s + `"`
	}
	var sb strings.Builder
	sb.WriteByte('`')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\\':
			sb.WriteString(`\\`)
		case '`':
			sb.WriteString("\\`")
		default:
			if c < 0x20 || c >= 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('`')
	return sb.String()
}
