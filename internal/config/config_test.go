package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xyproto/potter/internal/codegen"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"POTTER_VERBOSE", "POTTER_MIN_PASSES", "POTTER_MAX_PASSES",
		"POTTER_OUTPUT", "POTTER_LISTING", "POTTER_NO_RUNTIME",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	c := Load()
	assert.False(t, c.Verbose)
	assert.Equal(t, codegen.DefaultMinPasses, c.MinPasses)
	assert.Equal(t, codegen.DefaultMaxPasses, c.MaxPasses)
	assert.Equal(t, DefaultOutput, c.Output)
	assert.Empty(t, c.Listing)
	assert.False(t, c.NoRuntime)

	opts := c.Options("spell.yaml")
	assert.False(t, opts.Listing)
	assert.Equal(t, "spell.yaml", opts.File)
}

func TestFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("POTTER_VERBOSE", "1")
	t.Setenv("POTTER_MIN_PASSES", "3")
	t.Setenv("POTTER_MAX_PASSES", "5")
	t.Setenv("POTTER_OUTPUT", "spell")
	t.Setenv("POTTER_LISTING", "spell.asm")
	t.Setenv("POTTER_NO_RUNTIME", "true")
	t.Setenv("NO_COLOR", "1")

	c := Load()
	assert.True(t, c.Verbose)
	assert.Equal(t, 3, c.MinPasses)
	assert.Equal(t, 5, c.MaxPasses)
	assert.Equal(t, "spell", c.Output)
	assert.Equal(t, "spell.asm", c.Listing)
	assert.True(t, c.NoRuntime)
	assert.True(t, c.NoColor)

	opts := c.Options("")
	assert.True(t, opts.Listing)
	assert.True(t, opts.NoRuntime)
	assert.True(t, opts.Verbose)
	assert.Equal(t, 3, opts.MinPasses)
}

func TestPassBoundsClamped(t *testing.T) {
	clearEnv(t)
	t.Setenv("POTTER_MIN_PASSES", "0")
	t.Setenv("POTTER_MAX_PASSES", "1")
	c := Load()
	assert.Equal(t, codegen.DefaultMinPasses, c.MinPasses)
	assert.Equal(t, c.MinPasses, c.MaxPasses)
}

func TestReloadSeesChanges(t *testing.T) {
	clearEnv(t)
	assert.Equal(t, DefaultOutput, Load().Output)

	t.Setenv("POTTER_OUTPUT", "spell")
	t.Setenv("POTTER_MIN_PASSES", "4")
	c := Load()
	assert.Equal(t, "spell", c.Output)
	assert.Equal(t, 4, c.MinPasses)
}
