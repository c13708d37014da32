package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xyproto/potter/internal/config"
	"github.com/xyproto/potter/internal/diag"
)

const sampleProgram = `
strings:
  - name: GREETING
    content: "hello\n"
functions:
  - name: add
    params: [a, b]
    body:
      - return: {op: add, left: a, right: b}
  - name: love
    body:
      - let: {name: x, value: 5}
      - array: {name: arr, size: 4}
      - store: {array: arr, index: 3, value: {call: add, args: [x, 2]}}
      - while:
          cond: {op: ">", left: x, right: 0}
          do:
            - set: {name: x, value: {op: sub, left: x, right: 1}}
      - if:
          cond: {op: equal, left: {array: arr, index: 3}, right: 7}
          then:
            - call: {name: flagrate_s, args: [GREETING]}
          else:
            - call: {name: flagrate_s, args: [{str: "no"}]}
      - return: 0
`

const typoProgram = `
functions:
  - name: love
    body:
      - call: {name: flagrat, args: [1]}
      - return: 0
`

func writeProgram(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

// potter runs the command line with args and returns stdout and stderr
func potter(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuildWritesExecutable(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	dir := t.TempDir()
	out := filepath.Join(dir, "spell")
	lst := filepath.Join(dir, "spell.asm")

	_, stderr, err := potter(t, "build", src, "-o", out, "--listing="+lst)
	require.NoError(t, err, stderr)

	image, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x7F, 'E', 'L', 'F'}, image[:4])
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111)

	listing, err := os.ReadFile(lst)
	require.NoError(t, err)
	assert.Contains(t, string(listing), "\nlove:\n")
	assert.Contains(t, string(listing), "section .data")
}

func TestBuildMany(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.yaml")
	b := filepath.Join(dir, "b.yaml")
	require.NoError(t, os.WriteFile(a, []byte(sampleProgram), 0o644))
	require.NoError(t, os.WriteFile(b, []byte(sampleProgram), 0o644))

	_, stderr, err := potter(t, "build", a, b, "--listing")
	require.NoError(t, err, stderr)
	for _, name := range []string{"a", "b", "a.asm", "b.asm"} {
		assert.FileExists(t, filepath.Join(dir, name))
	}

	_, _, err = potter(t, "build", a, b, "-o", filepath.Join(dir, "x"))
	assert.ErrorContains(t, err, "single input file")
}

func TestBuildManyCarriesOn(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(good, []byte(sampleProgram), 0o644))
	require.NoError(t, os.WriteFile(bad, []byte(typoProgram), 0o644))

	_, stderr, err := potter(t, "build", bad, good)
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.FileExists(t, filepath.Join(dir, "good"))
	assert.NoFileExists(t, filepath.Join(dir, "bad"))
	assert.Contains(t, stderr, "flagrat")
}

func TestBuildReportsDiagnostics(t *testing.T) {
	src := writeProgram(t, "typo.yaml", typoProgram)
	out := filepath.Join(t.TempDir(), "typo")

	_, stderr, err := potter(t, "build", src, "-o", out)
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, stderr, "undefined function 'flagrat'")
	assert.Contains(t, stderr, "did you mean 'flagrate'?")
	assert.Contains(t, stderr, "1 error(s) found")
	assert.NotContains(t, stderr, "\033[")
	assert.NoFileExists(t, out)
}

func TestMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nowhere.yaml")
	_, stderr, err := potter(t, "build", missing)
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, stderr, "nowhere.yaml")
}

func TestUnwritableOutput(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	missingDir := filepath.Join(t.TempDir(), "no", "such", "dir")

	_, stderr, err := potter(t, "build", src, "-o", filepath.Join(missingDir, "spell"))
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, stderr, missingDir)
	assert.Contains(t, stderr, "1 error(s) found")

	out := filepath.Join(t.TempDir(), "spell")
	_, stderr, err = potter(t, "build", src, "-o", out, "--listing="+filepath.Join(missingDir, "spell.asm"))
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, stderr, "spell.asm")

	s := &session{cfg: config.Load(), stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	u, err := s.compile(src, false)
	require.NoError(t, err)
	err = s.writeOutputs(u, filepath.Join(missingDir, "spell"), "")
	assert.Equal(t, diag.ErrFileOpen, diag.KindOf(err))
}

func TestReservedFunctionName(t *testing.T) {
	src := writeProgram(t, "start.yaml", `
functions:
  - name: _start
    body:
      - return: 0
  - name: love
    body:
      - return: 0
`)
	_, stderr, err := potter(t, "build", src, "-o", filepath.Join(t.TempDir(), "start"))
	require.Error(t, err)
	assert.True(t, reported(err))
	assert.Contains(t, stderr, "function _start clashes with the entry point")
}

func TestSyntaxError(t *testing.T) {
	src := writeProgram(t, "broken.yaml", "functions:\n  - name: love\n    body:\n      - nope: 1\n")
	_, stderr, err := potter(t, "tree", src)
	require.Error(t, err)
	assert.Contains(t, stderr, "broken.yaml:4")
}

func TestListingCommand(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	stdout, _, err := potter(t, "listing", src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "section .text\nglobal _start\n_start:\n"), stdout)
	assert.Contains(t, stdout, "; flagrate (standard I/O)")
	assert.Contains(t, stdout, "call love")

	stdout, _, err = potter(t, "listing", "--no-runtime", src)
	require.Error(t, err, stdout)
}

func TestDisasmCommand(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	stdout, _, err := potter(t, "disasm", src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "_start:\n0x401000: "), stdout)
	assert.Contains(t, stdout, "syscall")
	assert.Contains(t, stdout, "love:\n")
	assert.NotContains(t, stdout, "db 0x")
}

func TestSymbolsCommand(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	stdout, _, err := potter(t, "symbols", src)
	require.NoError(t, err)
	for _, want := range []string{
		"STACK FRAMES", "STRINGS", "LABELS",
		"rbp+16", "rbp+24", "rbp-8",
		"GREETING", `"hello\n"`, "IO_BUFFER", "love.RETURN", "standard I/O",
	} {
		assert.Contains(t, strings.ToUpper(stdout), strings.ToUpper(want))
	}
}

func TestTreeCommand(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	stdout, _, err := potter(t, "tree", src)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "SDECL"), stdout)
	assert.Contains(t, stdout, "FDECL")
	assert.Contains(t, stdout, "ID love")
}

func TestVersion(t *testing.T) {
	stdout, _, err := potter(t, "version")
	require.NoError(t, err)
	assert.Equal(t, versionString+"\n", stdout)

	stdout, _, err = potter(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, versionString+"\n", stdout)
}

func TestFlagValidation(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)

	_, _, err := potter(t, "listing", "--target", "arm64-linux", src)
	assert.ErrorContains(t, err, "unsupported target")

	_, _, err = potter(t, "listing", "--target", "x86_64", src)
	assert.NoError(t, err)

	_, _, err = potter(t, "listing", "--passes", "0", src)
	assert.Error(t, err)

	_, _, err = potter(t, "listing", "--passes", "4", "--max-passes", "3", src)
	assert.Error(t, err)
}

func TestEnvironmentDefaults(t *testing.T) {
	src := writeProgram(t, "spell.yaml", sampleProgram)
	out := filepath.Join(t.TempDir(), "from-env")
	t.Setenv("POTTER_OUTPUT", out)

	_, stderr, err := potter(t, "build", src)
	require.NoError(t, err, stderr)
	assert.FileExists(t, out)
}

func TestVerboseBuild(t *testing.T) {
	t.Cleanup(func() { VerboseMode = false })
	src := writeProgram(t, "spell.yaml", sampleProgram)
	out := filepath.Join(t.TempDir(), "spell")

	_, stderr, err := potter(t, "build", "-v", src, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stderr, "pass 2:")
	assert.Contains(t, stderr, "wrote "+out)
}

func TestRunCommand(t *testing.T) {
	if runtime.GOOS != "linux" || runtime.GOARCH != "amd64" {
		t.Skip("generated executables only run on linux/amd64")
	}
	src := writeProgram(t, "spell.yaml", sampleProgram)
	stdout, stderr, err := potter(t, "run", src)
	require.NoError(t, err, stderr)
	assert.Equal(t, "hello\n", stdout)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "dir/spell", outputName("dir/spell.yaml"))
	assert.Equal(t, "spell", outputName("spell.yml"))
	assert.Equal(t, "spell.out", outputName("spell"))
	assert.Equal(t, ".hidden.out", outputName(".hidden"))
}

// syncBuffer is a bytes.Buffer safe for the watcher's goroutines
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatchRebuilds(t *testing.T) {
	src := writeProgram(t, "spell.yaml", typoProgram)
	out := filepath.Join(t.TempDir(), "spell")

	var stderr syncBuffer
	s := &session{cfg: config.Load(), stdout: &stderr, stderr: &stderr}
	s.cfg.Listing = ""

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.watch(ctx, src, out) }()

	// the first build fails and watching goes on
	require.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), "did you mean")
	}, 5*time.Second, 50*time.Millisecond)
	assert.NoFileExists(t, out)

	// give the watcher time to register before the fix lands
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(src, []byte(sampleProgram), 0o644))
	require.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 10*time.Second, 50*time.Millisecond)
	assert.Contains(t, stderr.String(), "File changed: spell.yaml")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
