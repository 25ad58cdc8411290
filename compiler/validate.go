package compiler

import (
	"errors"
	"fmt"

	"github.com/chazu/moo/vm"
)

var (
	ErrUnmatchedLoopEnd   = errors.New("unmatched 'moo'")
	ErrUnmatchedLoopStart = errors.New("unmatched 'MOO'")
)

// ParseError reports malformed loop nesting.
type ParseError struct {
	Kind  error     // ErrUnmatchedLoopEnd or ErrUnmatchedLoopStart
	Index int       // position in the token or instruction sequence
	Pos   *Position // source location, when known
	Path  string    // source file, when known
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%v instruction at position %d", e.Kind, e.Index)
	if e.Pos != nil {
		msg += fmt.Sprintf(" (%s)", e.Pos)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Kind }

// Validate checks that the loops in prog nest like parentheses.
func Validate(prog vm.Program) error {
	return validate(len(prog), func(i int) vm.Opcode { return prog[i].Op }, nil)
}

// ValidateTokens is Validate over a token stream; errors carry positions.
func ValidateTokens(toks []Token) error {
	return validate(len(toks),
		func(i int) vm.Opcode { return toks[i].Op },
		func(i int) *Position { p := toks[i].Pos; return &p })
}

// validate scans once with a stack of open loop indices. The first loop end
// with nothing open fails immediately; leftovers fail with the earliest one.
func validate(n int, at func(int) vm.Opcode, pos func(int) *Position) error {
	fail := func(kind error, i int) error {
		e := &ParseError{Kind: kind, Index: i}
		if pos != nil {
			e.Pos = pos(i)
		}
		return e
	}

	var open []int
	for i := 0; i < n; i++ {
		switch at(i) {
		case vm.OpLoopStart:
			open = append(open, i)
		case vm.OpLoopEnd:
			if len(open) == 0 {
				return fail(ErrUnmatchedLoopEnd, i)
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		return fail(ErrUnmatchedLoopStart, open[0])
	}
	return nil
}
