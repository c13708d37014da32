// Completion: 100% - Utility module complete

// Package config reads the compiler defaults from the environment
package config

import (
	"github.com/xyproto/env/v2"

	"github.com/xyproto/potter/internal/codegen"
)

const (
	DefaultOutput  = "a.out"
	DefaultListing = "a.asm"
)

// Config holds the settings that can come from the environment. Command line
// flags are applied on top.
type Config struct {
	Verbose   bool
	MinPasses int
	MaxPasses int
	Output    string
	Listing   string // empty for no listing
	NoColor   bool
	NoRuntime bool
}

// Load reads POTTER_* and NO_COLOR. The environment is re-read on every
// call, so a watch session picks up changed settings.
func Load() Config {
	env.Load()
	c := Config{
		Verbose:   env.Bool("POTTER_VERBOSE"),
		MinPasses: env.Int("POTTER_MIN_PASSES", codegen.DefaultMinPasses),
		MaxPasses: env.Int("POTTER_MAX_PASSES", codegen.DefaultMaxPasses),
		Output:    env.Str("POTTER_OUTPUT", DefaultOutput),
		Listing:   env.Str("POTTER_LISTING"),
		NoColor:   env.Has("NO_COLOR"),
		NoRuntime: env.Bool("POTTER_NO_RUNTIME"),
	}
	if c.MinPasses < 1 {
		c.MinPasses = codegen.DefaultMinPasses
	}
	if c.MaxPasses < c.MinPasses {
		c.MaxPasses = c.MinPasses
	}
	return c
}

// Options converts the configuration into code generator options for file
func (c Config) Options(file string) codegen.Options {
	return codegen.Options{
		MinPasses: c.MinPasses,
		MaxPasses: c.MaxPasses,
		Listing:   c.Listing != "",
		NoRuntime: c.NoRuntime,
		Verbose:   c.Verbose,
		File:      file,
	}
}
