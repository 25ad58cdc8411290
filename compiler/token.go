package compiler

import (
	"fmt"

	"github.com/chazu/moo/vm"
)

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

func (p Position) String() string {
	return fmt.Sprintf("line %d, column %d", p.Line, p.Column)
}

// Token is one recognized instruction and the position of the character
// that completed it.
type Token struct {
	Op  vm.Opcode
	Pos Position
}

// Start returns the position of the token's first character. Tokens never
// span a newline, so this is always on the same line.
func (t Token) Start() Position {
	return Position{
		Offset: t.Pos.Offset - (TokenLen - 1),
		Line:   t.Pos.Line,
		Column: t.Pos.Column - (TokenLen - 1),
	}
}

func (t Token) String() string {
	return fmt.Sprintf("%s@%d:%d", t.Op.Token(), t.Pos.Line, t.Pos.Column)
}

// TokenLen is the length of every instruction token.
const TokenLen = 3
