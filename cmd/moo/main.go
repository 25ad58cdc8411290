// moo CLI - the main entry point for running COW programs
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/moo/compiler"
	"github.com/chazu/moo/manifest"
	"github.com/chazu/moo/server"
	"github.com/chazu/moo/vm"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// options holds parsed command-line flags.
type options struct {
	safe      bool
	memory    int
	maxSteps  uint64
	maxMemory uint64
	maxOutput uint64
	optimize  bool
	resolver  string
	debug     bool
	quiet     bool
	check     bool
	disasm    bool
	trace     bool
	compile   bool
	output    string
	config    string
	verbose   int
	logFile   string
	lsp       bool

	set map[string]bool // flags given explicitly
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("moo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}

	fs.BoolVar(&o.safe, "s", false, "Safe mode (shorthand)")
	fs.BoolVar(&o.safe, "safe", false, "Enable safe mode (limits execution)")
	fs.IntVar(&o.memory, "m", vm.DefaultMemory, "Initial memory size in cells (shorthand)")
	fs.IntVar(&o.memory, "memory", vm.DefaultMemory, "Initial memory size in cells")
	fs.Uint64Var(&o.maxSteps, "max-steps", 0, "Maximum execution steps (0 = unlimited)")
	fs.Uint64Var(&o.maxMemory, "max-memory", 0, "Maximum memory cells (0 = unlimited)")
	fs.Uint64Var(&o.maxOutput, "max-output", 0, "Maximum output bytes (0 = unlimited)")
	fs.BoolVar(&o.optimize, "O", false, "Fold runs of MoO/MOo into counted instructions")
	fs.StringVar(&o.resolver, "resolver", "table", "Loop resolution: table or scan")
	fs.BoolVar(&o.debug, "d", false, "Debug mode (shorthand)")
	fs.BoolVar(&o.debug, "debug", false, "Debug mode (step-by-step execution)")
	fs.BoolVar(&o.quiet, "q", false, "Quiet mode (shorthand)")
	fs.BoolVar(&o.quiet, "quiet", false, "Quiet mode (no greetings)")
	fs.BoolVar(&o.check, "check", false, "Check syntax only; do not execute")
	fs.BoolVar(&o.disasm, "disasm", false, "Print the instruction listing and exit")
	fs.BoolVar(&o.trace, "trace", false, "Log every executed instruction (needs -v 2)")
	fs.BoolVar(&o.compile, "compile", false, "Write a compiled program image and exit")
	fs.StringVar(&o.output, "o", "", "Image path for -compile (default: manifest or <program>.moob)")
	fs.StringVar(&o.config, "config", "", "Directory containing moo.toml (default: search upward)")
	fs.IntVar(&o.verbose, "v", 0, "Log verbosity (1 = info, 2 = debug)")
	fs.StringVar(&o.logFile, "log", "", "Write logs to this file instead of stderr")
	fs.BoolVar(&o.lsp, "lsp", false, "Start the language server on stdio")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "COW Programming Language Interpreter\n\n")
		fmt.Fprintf(stderr, "Usage: moo [options] <program.cow|program.moob>\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  moo hello.cow               # Run a program\n")
		fmt.Fprintf(stderr, "  moo -s -max-steps 1000 x.cow  # Run with limits\n")
		fmt.Fprintf(stderr, "  moo -check x.cow            # Syntax check only\n")
		fmt.Fprintf(stderr, "  moo -O -compile x.cow       # Compile to x.moob\n")
		fmt.Fprintf(stderr, "  moo -d x.cow                # Step debugger\n")
		fmt.Fprintf(stderr, "  moo -lsp                    # Language server\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, fs.Args(), nil
}

// configure merges flags over the manifest. Only flags given explicitly
// override manifest values.
func (o *options) configure(m *manifest.Manifest) error {
	if o.set["s"] || o.set["safe"] {
		m.Run.Safe = o.safe
	}
	if o.set["m"] || o.set["memory"] {
		m.Run.Memory = o.memory
	}
	if o.set["max-steps"] {
		m.Limits.MaxSteps = o.maxSteps
	}
	if o.set["max-memory"] {
		m.Limits.MaxMemory = o.maxMemory
	}
	if o.set["max-output"] {
		m.Limits.MaxOutput = o.maxOutput
	}
	if o.set["O"] {
		m.Run.Optimize = o.optimize
	}
	if o.set["resolver"] {
		if _, ok := vm.ParseResolverKind(o.resolver); !ok {
			return fmt.Errorf("unknown resolver %q (want table or scan)", o.resolver)
		}
		m.Run.Resolver = o.resolver
	}
	if o.set["trace"] {
		m.Run.Trace = o.trace
	}
	if o.set["v"] {
		m.Log.Verbosity = o.verbose
	}
	if o.set["log"] {
		m.Log.File = o.logFile
	}
	if o.set["o"] {
		m.Image.Output = o.output
	}
	return nil
}

func loadManifest(o *options, source string) (*manifest.Manifest, error) {
	if o.config != "" {
		return manifest.Load(o.config)
	}
	start := "."
	if source != "" {
		start = filepath.Dir(source)
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil || m != nil {
		return m, err
	}
	return manifest.Default(), nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}

	var source string
	if len(paths) > 0 {
		source = paths[0]
	}
	if len(paths) > 1 {
		fmt.Fprintf(stderr, "Error: expected one program, got %d\n", len(paths))
		return 1
	}

	m, err := loadManifest(o, source)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if err := o.configure(m); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	configureLogging(m.Log)
	log := commonlog.GetLogger("moo.cli")

	if o.lsp {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	if source == "" {
		source = m.EntryPath()
	}
	if source == "" {
		fmt.Fprintf(stderr, "Error: No input file specified\n\n")
		return 1
	}

	greet := !o.quiet && !o.check && !o.disasm && !o.compile
	if greet {
		fmt.Fprintf(stdout, "Loading program: %s...\n", source)
	}

	prog, err := loadProgram(source, compiler.Options{Optimize: m.Run.Optimize})
	if err != nil {
		return report(stderr, err)
	}
	log.Infof("%s: %d instructions", source, len(prog))

	switch {
	case o.check:
		if !o.quiet {
			fmt.Fprintf(stdout, "%s: OK (%d instructions)\n", source, len(prog))
		}
		return 0
	case o.disasm:
		fmt.Fprint(stdout, vm.DisassembleWithName(prog, source))
		return 0
	case o.compile:
		out := imagePath(m, source)
		if err := vm.WriteImage(out, prog, m.Run.Optimize); err != nil {
			return report(stderr, err)
		}
		if !o.quiet {
			fmt.Fprintf(stdout, "Wrote %s (%d instructions)\n", out, len(prog))
		}
		return 0
	}

	if greet {
		fmt.Fprintf(stdout, "Parsed %d instructions\n", len(prog))
	}

	in := bufio.NewReader(stdin)
	machine := vm.New(append(m.VMOptions(), vm.WithConsole(vm.NewConsole(in, stdout)))...)
	machine.Load(prog)

	if greet {
		fmt.Fprintf(stdout, "\nExecuting program...\n")
		if m.Run.Safe {
			printLimits(stdout, machine.Limits(), m.Run.Memory)
		}
		fmt.Fprintln(stdout)
	}

	if o.debug {
		err = newDebugger(machine, in, stdout).loop()
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = machine.RunContext(ctx)
		stop()
	}
	if err != nil {
		return report(stderr, err)
	}

	if greet {
		fmt.Fprintf(stdout, "\nExecution completed.\n")
		fmt.Fprintf(stdout, "Total steps: %d\n", machine.Steps())
	}
	return 0
}

// loadProgram reads a program image or parses COW source.
func loadProgram(path string, opts compiler.Options) (vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &vm.IOError{Op: "open", Path: path, Err: err}
	}
	if vm.IsImage(data) {
		prog, err := vm.UnmarshalImage(data)
		if err != nil {
			return nil, &vm.IOError{Op: "decode", Path: path, Err: err}
		}
		return prog, nil
	}
	prog, err := compiler.Parse(string(data), opts)
	var perr *compiler.ParseError
	if errors.As(err, &perr) {
		perr.Path = path
	}
	return prog, err
}

// imagePath picks where -compile writes: -o, then the manifest, then the
// source path with a .moob extension.
func imagePath(m *manifest.Manifest, source string) string {
	if m.Image.Output != "" {
		return m.Image.Output
	}
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".moob"
}

func configureLogging(cfg manifest.Log) {
	var path *string
	if cfg.File != "" {
		path = &cfg.File
	}
	commonlog.Configure(cfg.Verbosity, path)
}

func printLimits(w io.Writer, l vm.Limits, memory int) {
	limit := func(n uint64, unit string) string {
		if n == 0 {
			return "unlimited"
		}
		return strings.TrimSpace(fmt.Sprintf("%d %s", n, unit))
	}
	fmt.Fprintf(w, "Safe mode enabled:\n")
	fmt.Fprintf(w, "  Memory: %d cells (limit: %s)\n", memory, limit(l.MaxMemory, "cells"))
	fmt.Fprintf(w, "  Step limit: %s\n", limit(l.MaxSteps, ""))
	fmt.Fprintf(w, "  Output limit: %s\n", limit(l.MaxOutput, "bytes"))
}

// report prints err with a prefix naming its category and returns the exit
// status.
func report(w io.Writer, err error) int {
	var (
		perr *compiler.ParseError
		lerr *vm.LimitError
		rerr *vm.RuntimeError
		ioe  *vm.IOError
	)
	switch {
	case errors.As(err, &perr):
		fmt.Fprintf(w, "Parse error: %v\n", err)
	case errors.As(err, &lerr):
		fmt.Fprintf(w, "Execution limit exceeded: %v\n", err)
	case errors.As(err, &rerr):
		fmt.Fprintf(w, "Runtime error: %v\n", err)
	case errors.As(err, &ioe):
		fmt.Fprintf(w, "I/O error: %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(w, "Interrupted\n")
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
	return 1
}
