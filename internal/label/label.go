// Completion: 100% - Module complete

// Package label tracks code locations by name across emission passes.
//
// A label is identified by an optional function scope, a name and an optional
// number. During a pass, jumps and calls reference labels that may not have
// been defined yet; those references see the offset recorded in the previous
// pass (or zero on the first pass). The driver repeats passes until every
// offset matches the previous pass.
package label

import (
	"fmt"
	"sort"
)

// NoNumber marks a label without a numeric suffix
const NoNumber = -1

// Purpose selects one of the per-function counters used to number generated
// control-flow labels
type Purpose int

const (
	Cond Purpose = iota
	Loop
	Compare
	Return
	purposeCount
)

func (p Purpose) String() string {
	switch p {
	case Cond:
		return "cond"
	case Loop:
		return "loop"
	case Compare:
		return "compare"
	case Return:
		return "return"
	default:
		return "unknown"
	}
}

// Key is the identity of a label
type Key struct {
	Scope  string // enclosing function, "" for global labels
	Name   string
	Number int // NoNumber if unnumbered
}

// Global returns the key of an unscoped, unnumbered label
func Global(name string) Key {
	return Key{Name: name, Number: NoNumber}
}

// Local returns the key of an unnumbered label inside a function
func Local(scope, name string) Key {
	return Key{Scope: scope, Name: name, Number: NoNumber}
}

// Numbered returns the key of a numbered label inside a function
func Numbered(scope, name string, n int) Key {
	return Key{Scope: scope, Name: name, Number: n}
}

// String renders the label the way it is written in an assembly listing.
// Scoped labels start with a dot in their Name, so the scope is implied by
// the preceding global label just like in NASM.
func (k Key) String() string {
	if k.Number == NoNumber {
		return k.Name
	}
	return fmt.Sprintf("%s%d", k.Name, k.Number)
}

// Qualified renders the label including its scope
func (k Key) Qualified() string {
	if k.Scope == "" {
		return k.String()
	}
	return k.Scope + k.String()
}

// Label is a Key plus its offset in the output image
type Label struct {
	Key
	Offset uint64
	// Known is false when no pass has defined the label yet
	Known bool
}

// Manager owns the label registry and purpose counters of one compilation
type Manager struct {
	current    map[Key]uint64
	previous   map[Key]uint64
	referenced map[Key]struct{}
	counters   [purposeCount]int
	pass       int
}

// New creates an empty manager. Call BeginPass before emitting.
func New() *Manager {
	return &Manager{
		current:    make(map[Key]uint64),
		previous:   make(map[Key]uint64),
		referenced: make(map[Key]struct{}),
		pass:       -1,
	}
}

// BeginPass starts a new emission pass. Offsets defined so far become the
// previous-pass view, the registry is cleared and the counters restart at 0.
func (m *Manager) BeginPass() {
	m.previous = m.current
	m.current = make(map[Key]uint64, len(m.previous))
	m.referenced = make(map[Key]struct{}, len(m.previous))
	m.ResetCounters()
	m.pass++
}

// Pass returns the zero-based number of the current pass
func (m *Manager) Pass() int {
	return m.pass
}

// ResetCounters restarts every purpose counter at 0
func (m *Manager) ResetCounters() {
	for i := range m.counters {
		m.counters[i] = 0
	}
}

// Next returns the next number for the purpose and advances the counter
func (m *Manager) Next(p Purpose) int {
	if p < 0 || p >= purposeCount {
		panic(fmt.Sprintf("label: unknown purpose %d", p))
	}
	n := m.counters[p]
	m.counters[p]++
	return n
}

// Define records offset as the location of key in the current pass.
// Redefining a label within one pass is a generator bug.
func (m *Manager) Define(key Key, offset uint64) {
	if _, ok := m.current[key]; ok {
		panic(fmt.Sprintf("label: %s defined twice in pass %d", key.Qualified(), m.pass))
	}
	m.current[key] = offset
}

// Reference looks key up. A label defined earlier in this pass wins, then
// the previous pass, otherwise the offset is 0 and Known is false.
func (m *Manager) Reference(key Key) Label {
	m.referenced[key] = struct{}{}
	if off, ok := m.current[key]; ok {
		return Label{Key: key, Offset: off, Known: true}
	}
	if off, ok := m.previous[key]; ok {
		return Label{Key: key, Offset: off, Known: true}
	}
	return Label{Key: key}
}

// Converged reports whether the current pass defined exactly the same labels
// at exactly the same offsets as the previous one
func (m *Manager) Converged() bool {
	if len(m.current) != len(m.previous) {
		return false
	}
	for k, off := range m.current {
		if prev, ok := m.previous[k]; !ok || prev != off {
			return false
		}
	}
	return true
}

// Unresolved lists labels referenced but not defined in the current pass,
// sorted for stable error messages
func (m *Manager) Unresolved() []Key {
	var missing []Key
	for k := range m.referenced {
		if _, ok := m.current[k]; !ok {
			missing = append(missing, k)
		}
	}
	sortKeys(missing)
	return missing
}

// Labels returns a snapshot of the current pass, ordered by offset
func (m *Manager) Labels() []Label {
	out := make([]Label, 0, len(m.current))
	for k, off := range m.current {
		out = append(out, Label{Key: k, Offset: off, Known: true})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Offset != out[j].Offset {
			return out[i].Offset < out[j].Offset
		}
		return less(out[i].Key, out[j].Key)
	})
	return out
}

// Len returns the number of labels defined in the current pass
func (m *Manager) Len() int {
	return len(m.current)
}

func sortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
}

func less(a, b Key) bool {
	if a.Scope != b.Scope {
		return a.Scope < b.Scope
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.Number < b.Number
}
