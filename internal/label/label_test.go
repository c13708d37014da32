package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyString(t *testing.T) {
	assert.Equal(t, ".ELSE_3", Numbered("love", ".ELSE_", 3).String())
	assert.Equal(t, "love.ELSE_3", Numbered("love", ".ELSE_", 3).Qualified())
	assert.Equal(t, ".RETURN", Local("love", ".RETURN").String())
	assert.Equal(t, "STR0", Global("STR0").String())
	assert.Equal(t, "STR0", Global("STR0").Qualified())
}

func TestIdentityIncludesScopeAndNumber(t *testing.T) {
	m := New()
	m.BeginPass()

	m.Define(Local("f", ".RETURN"), 10)
	m.Define(Local("g", ".RETURN"), 20)
	m.Define(Numbered("f", ".WHILE_", 0), 30)
	m.Define(Numbered("f", ".WHILE_", 1), 40)

	assert.Equal(t, uint64(10), m.Reference(Local("f", ".RETURN")).Offset)
	assert.Equal(t, uint64(20), m.Reference(Local("g", ".RETURN")).Offset)
	assert.Equal(t, uint64(30), m.Reference(Numbered("f", ".WHILE_", 0)).Offset)
	assert.Equal(t, uint64(40), m.Reference(Numbered("f", ".WHILE_", 1)).Offset)
	assert.Equal(t, 4, m.Len())
}

func TestForwardReferenceUsesPreviousPass(t *testing.T) {
	m := New()
	key := Numbered("love", ".END_WHILE_", 0)

	m.BeginPass()
	first := m.Reference(key)
	assert.False(t, first.Known)
	assert.Zero(t, first.Offset)
	m.Define(key, 0x1040)
	assert.False(t, m.Converged())

	m.BeginPass()
	second := m.Reference(key)
	assert.True(t, second.Known)
	assert.Equal(t, uint64(0x1040), second.Offset)
	m.Define(key, 0x1040)
	assert.True(t, m.Converged())
}

func TestBackwardReferenceUsesCurrentPass(t *testing.T) {
	m := New()
	key := Numbered("love", ".WHILE_", 0)

	m.BeginPass()
	m.Define(key, 100)

	m.BeginPass()
	m.Define(key, 200)
	assert.Equal(t, uint64(200), m.Reference(key).Offset)
	assert.False(t, m.Converged())
}

func TestCountersResetEveryPass(t *testing.T) {
	m := New()
	m.BeginPass()
	assert.Equal(t, 0, m.Next(Cond))
	assert.Equal(t, 1, m.Next(Cond))
	assert.Equal(t, 0, m.Next(Loop))
	assert.Equal(t, 0, m.Next(Compare))
	assert.Equal(t, 2, m.Next(Cond))

	m.BeginPass()
	assert.Equal(t, 0, m.Next(Cond))
	assert.Equal(t, 0, m.Next(Loop))
	assert.Equal(t, 1, m.Pass())
}

func TestNextPanicsOnUnknownPurpose(t *testing.T) {
	m := New()
	m.BeginPass()
	assert.Panics(t, func() { m.Next(Purpose(42)) })
}

func TestDefineTwicePanics(t *testing.T) {
	m := New()
	m.BeginPass()
	m.Define(Global("love"), 1)
	assert.Panics(t, func() { m.Define(Global("love"), 2) })
}

func TestUnresolved(t *testing.T) {
	m := New()
	m.BeginPass()
	m.Reference(Global("missing"))
	m.Reference(Global("love"))
	m.Define(Global("love"), 0x1000)

	missing := m.Unresolved()
	require.Len(t, missing, 1)
	assert.Equal(t, "missing", missing[0].Name)

	// references are tracked per pass
	m.BeginPass()
	assert.Empty(t, m.Unresolved())
}

func TestConvergedNeedsSameKeySet(t *testing.T) {
	m := New()
	m.BeginPass()
	m.Define(Global("a"), 1)

	m.BeginPass()
	m.Define(Global("a"), 1)
	m.Define(Global("b"), 2)
	assert.False(t, m.Converged())

	m.BeginPass()
	m.Define(Global("a"), 1)
	m.Define(Global("b"), 2)
	assert.True(t, m.Converged())
}

func TestLabelsSortedByOffset(t *testing.T) {
	m := New()
	m.BeginPass()
	m.Define(Global("c"), 30)
	m.Define(Global("a"), 10)
	m.Define(Global("b"), 20)

	labels := m.Labels()
	require.Len(t, labels, 3)
	assert.Equal(t, "a", labels[0].Name)
	assert.Equal(t, "b", labels[1].Name)
	assert.Equal(t, "c", labels[2].Name)
	assert.Equal(t, uint64(20), labels[1].Offset)
}
