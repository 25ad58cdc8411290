package compiler

import (
	"iter"

	"github.com/chazu/moo/vm"
)

// ---------------------------------------------------------------------------
// Lexer: three-character window scanner
// ---------------------------------------------------------------------------

// Tokens returns a lazy sequence of the instructions in src with the
// position at which each one completes. Any byte that does not end up in a
// matched token is dropped, which is COW's only comment syntax.
//
// The window holds the last three bytes. A match empties it, so bytes of a
// matched token never start the next one. The sequence can be ranged over
// any number of times.
func Tokens(src string) iter.Seq2[vm.Opcode, Position] {
	return func(yield func(vm.Opcode, Position) bool) {
		var win [TokenLen]byte
		n := 0
		line, col := 1, 1
		for i := 0; i < len(src); i++ {
			c := src[i]
			pos := Position{Offset: i, Line: line, Column: col}
			if c == '\n' {
				line++
				col = 1
			} else {
				col++
			}

			if n == TokenLen {
				copy(win[:], win[1:])
				n--
			}
			win[n] = c
			n++
			if n < TokenLen {
				continue
			}
			if op := vm.OpcodeFromBytes(win[:]); op != vm.OpInvalid {
				n = 0
				if !yield(op, pos) {
					return
				}
			}
		}
	}
}

// Tokenize returns the opcodes in src without positions.
func Tokenize(src string) []vm.Opcode {
	var ops []vm.Opcode
	for op := range Tokens(src) {
		ops = append(ops, op)
	}
	return ops
}

// Lex returns the tokens in src with their completing positions.
func Lex(src string) []Token {
	var toks []Token
	for op, pos := range Tokens(src) {
		toks = append(toks, Token{Op: op, Pos: pos})
	}
	return toks
}

// Opcodes strips positions from toks.
func Opcodes(toks []Token) []vm.Opcode {
	ops := make([]vm.Opcode, len(toks))
	for i, t := range toks {
		ops[i] = t.Op
	}
	return ops
}
