// Completion: 100% - Utility module complete
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/xyproto/potter/internal/ast"
	"github.com/xyproto/potter/internal/config"
	"github.com/xyproto/potter/internal/disasm"
	"github.com/xyproto/potter/internal/elfbuild"
	"github.com/xyproto/potter/internal/engine"
)

// cli.go - command-line interface for potter
//
// Subcommands:
// - potter build <file>... (compile to executables)
// - potter run <file> (compile and run immediately)
// - potter listing <file> (print the assembly listing)
// - potter disasm <file> (decode the generated machine code)
// - potter symbols <file> (frames, strings and labels)
// - potter tree <file> (dump the syntax tree)
// - potter watch <file> (rebuild on change)

func newRootCommand() *cobra.Command {
	s := &session{}

	var (
		verbose   bool
		noColor   bool
		minPasses int
		maxPasses int
		noRuntime bool
		target    string
	)

	root := &cobra.Command{
		Use:           "potter",
		Short:         "Native x86-64 Linux compiler for the potter tongue",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			s.cfg = config.Load()
			s.stdout = cmd.OutOrStdout()
			s.stderr = cmd.ErrOrStderr()

			flags := cmd.Flags()
			if flags.Changed("verbose") {
				s.cfg.Verbose = verbose
			}
			if flags.Changed("no-color") {
				s.cfg.NoColor = noColor
			}
			if flags.Changed("passes") {
				s.cfg.MinPasses = minPasses
			}
			if flags.Changed("max-passes") {
				s.cfg.MaxPasses = maxPasses
			}
			if flags.Changed("no-runtime") {
				s.cfg.NoRuntime = noRuntime
			}
			if s.cfg.MinPasses < 1 {
				return fmt.Errorf("--passes must be at least 1, got %d", s.cfg.MinPasses)
			}
			if s.cfg.MaxPasses < s.cfg.MinPasses {
				return fmt.Errorf("--max-passes (%d) is below --passes (%d)", s.cfg.MaxPasses, s.cfg.MinPasses)
			}
			VerboseMode = s.cfg.Verbose

			platform, err := engine.ParsePlatform(target)
			if err != nil {
				return err
			}
			return platform.Supported()
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate("{{.Version}}\n")

	pf := root.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "verbose mode (show build messages and pass details)")
	pf.BoolVar(&noColor, "no-color", false, "disable coloured diagnostics")
	pf.IntVar(&minPasses, "passes", 2, "minimum number of code generation passes")
	pf.IntVar(&maxPasses, "max-passes", 8, "give up when labels have not settled after this many passes")
	pf.BoolVar(&noRuntime, "no-runtime", false, "leave out the standard I/O functions")
	pf.StringVar(&target, "target", engine.Target.String(), "target platform (only amd64-linux is supported)")

	root.AddCommand(
		buildCommand(s),
		runCommand(s),
		listingCommand(s),
		disasmCommand(s),
		symbolsCommand(s),
		treeCommand(s),
		watchCommand(s),
		versionCommand(),
	)
	return root
}

func buildCommand(s *session) *cobra.Command {
	var output, listing string
	cmd := &cobra.Command{
		Use:   "build <file>...",
		Short: "Compile program files to executables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				s.cfg.Output = output
			}
			if cmd.Flags().Changed("listing") {
				s.cfg.Listing = listing
			}

			if len(args) == 1 {
				s.logf("Building %s -> %s\n", args[0], s.cfg.Output)
				return s.build(args[0], s.cfg.Output, s.cfg.Listing)
			}
			if cmd.Flags().Changed("output") {
				return errors.New("-o needs a single input file")
			}
			return s.buildMany(args)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultOutput, "output executable filename")
	cmd.Flags().StringVar(&listing, "listing", "", "also write the assembly listing (default file "+config.DefaultListing+")")
	cmd.Flags().Lookup("listing").NoOptDefVal = config.DefaultListing
	return cmd
}

// buildMany builds every file next to its source, carrying on after
// failures
func (s *session) buildMany(paths []string) error {
	var bar *progressbar.ProgressBar
	if !VerboseMode {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetWriter(s.stderr),
			progressbar.OptionSetDescription("building"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Close()
	}

	failed := 0
	for _, path := range paths {
		output := outputName(path)
		listing := ""
		if s.cfg.Listing != "" {
			listing = output + ".asm"
		}
		s.logf("Building %s -> %s\n", path, output)
		if err := s.build(path, output, listing); err != nil {
			if !reported(err) {
				fmt.Fprintf(s.stderr, "%s: %v\n", path, err)
			}
			failed++
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if failed > 0 {
		return reportedError{count: failed}
	}
	return nil
}

func runCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file> [args...]",
		Short: "Compile a program file and run it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !engine.CanRun() {
				return fmt.Errorf("cannot run %s executables on %s", engine.Target, engine.Host())
			}
			u, err := s.mustCompile(args[0], false)
			if err != nil {
				return err
			}

			// Fall back to the temp directory if /dev/shm doesn't exist
			tmpDir := "/dev/shm"
			if _, err := os.Stat(tmpDir); err != nil {
				tmpDir = os.TempDir()
			}
			base := filepath.Base(outputName(args[0]))
			tmpExec := filepath.Join(tmpDir, fmt.Sprintf("potter_run_%s_%d", base, os.Getpid()))
			if err := s.writeOutputs(u, tmpExec, ""); err != nil {
				return s.report(nil, err)
			}
			defer os.Remove(tmpExec)

			s.logf("Running %s\n", tmpExec)
			run := exec.Command(tmpExec, args[1:]...)
			run.Stdin = cmd.InOrStdin()
			run.Stdout = s.stdout
			run.Stderr = s.stderr
			if err := run.Run(); err != nil {
				return fmt.Errorf("execution failed: %w", err)
			}
			return nil
		},
	}
}

func listingCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "listing <file>",
		Short: "Print the assembly listing of a program file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.mustCompile(args[0], true)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(s.stdout, u.result.Listing)
			return err
		},
	}
}

func disasmCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "disasm <file>",
		Short: "Decode the generated machine code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.mustCompile(args[0], false)
			if err != nil {
				return err
			}
			code, base, err := disasm.Text(u.result.ELF)
			if err != nil {
				return err
			}
			syms := make(disasm.Symbols)
			for _, l := range u.result.Labels {
				syms[l.Offset+elfbuild.LoadBias] = l.Qualified()
			}
			_, err = fmt.Fprint(s.stdout, disasm.Disassemble(code, base, syms))
			return err
		},
	}
}

func symbolsCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "symbols <file>",
		Short: "Show stack frames, strings and labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.mustCompile(args[0], false)
			if err != nil {
				return err
			}
			return writeSymbols(s.stdout, u)
		},
	}
}

func treeCommand(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "tree <file>",
		Short: "Dump the syntax tree of a program file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.parse(args[0])
			if err != nil {
				return s.report(u, err)
			}
			return ast.Dump(s.stdout, u.root)
		},
	}
}

func watchCommand(s *session) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Rebuild whenever the program file changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("output") {
				s.cfg.Output = output
			}
			return s.watch(cmd.Context(), args[0], s.cfg.Output)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", config.DefaultOutput, "output executable filename")
	return cmd
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
		},
	}
}
