package compiler

import (
	"errors"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/moo/vm"
)

// ---------------------------------------------------------------------------
// Parser: tokenize, validate, encode
// ---------------------------------------------------------------------------

var log = commonlog.GetLogger("moo.compiler")

// Options controls how source is turned into a program.
type Options struct {
	// Optimize folds runs of MoO/MOo into single counted instructions.
	Optimize bool
}

// Parse tokenizes src, validates its loops and encodes it.
func Parse(src string, opts Options) (vm.Program, error) {
	toks := Lex(src)
	if err := ValidateTokens(toks); err != nil {
		return nil, err
	}
	ops := Opcodes(toks)
	var prog vm.Program
	if opts.Optimize {
		prog = Fold(ops)
	} else {
		prog = Plain(ops)
	}
	log.Debugf("parsed %d tokens into %d instructions", len(toks), len(prog))
	return prog, nil
}

// ParseString parses src one instruction per token.
func ParseString(src string) (vm.Program, error) {
	return Parse(src, Options{})
}

// ParseOptimized parses src with run-length folding.
func ParseOptimized(src string) (vm.Program, error) {
	return Parse(src, Options{Optimize: true})
}

// ParseReader reads all of r and parses it.
func ParseReader(r io.Reader, opts Options) (vm.Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &vm.IOError{Op: "read", Err: err}
	}
	return Parse(string(data), opts)
}

// ParseFile parses the source file at path. Parse errors carry the path.
func ParseFile(path string, opts Options) (vm.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &vm.IOError{Op: "open", Path: path, Err: err}
	}
	prog, err := Parse(string(data), opts)
	var perr *ParseError
	if errors.As(err, &perr) {
		perr.Path = path
	}
	return prog, err
}

// Check parses src only to report errors.
func Check(src string) error {
	return ValidateTokens(Lex(src))
}
