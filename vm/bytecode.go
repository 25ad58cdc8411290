package vm

import "fmt"

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode identifies one of the twelve COW instructions. The numeric value of
// each opcode is its COW ordinal, which mOO uses to execute a cell's value.
type Opcode int8

const (
	OpLoopEnd   Opcode = 0  // moo: jump back to matching MOO if cell != 0
	OpMoveLeft  Opcode = 1  // mOo: tape pointer - 1
	OpMoveRight Opcode = 2  // moO: tape pointer + 1
	OpExecCell  Opcode = 3  // mOO: execute cell value as an instruction
	OpCharIO    Opcode = 4  // Moo: print cell as char, or read a char if cell == 0
	OpDecrement Opcode = 5  // MOo: cell -= argument
	OpIncrement Opcode = 6  // MoO: cell += argument
	OpLoopStart Opcode = 7  // MOO: jump past matching moo if cell == 0
	OpZero      Opcode = 8  // OOO: cell = 0
	OpRegister  Opcode = 9  // MMM: register exchange
	OpPrintInt  Opcode = 10 // OOM: print cell as integer
	OpReadInt   Opcode = 11 // oom: read integer into cell

	// OpInvalid marks "no token recognized" and dispatch failure.
	OpInvalid Opcode = -1
)

// NumOpcodes is the size of the instruction set.
const NumOpcodes = 12

// OpcodeInfo provides metadata about each opcode for listings and editors.
type OpcodeInfo struct {
	Name  string // Human-readable name
	Token string // Three-character source token
	Doc   string // One-line description
}

var opcodeInfoTable = [NumOpcodes]OpcodeInfo{
	OpLoopEnd:   {"LOOP_END", "moo", "If the current cell is non-zero, jump back to the matching MOO."},
	OpMoveLeft:  {"MOVE_LEFT", "mOo", "Move the tape pointer one cell to the left."},
	OpMoveRight: {"MOVE_RIGHT", "moO", "Move the tape pointer one cell to the right, growing the tape."},
	OpExecCell:  {"EXEC_CELL", "mOO", "Execute the current cell's value as an instruction; 3 halts."},
	OpCharIO:    {"CHAR_IO", "Moo", "Print the cell as a character, or read one if the cell is 0."},
	OpDecrement: {"DECREMENT", "MOo", "Decrement the current cell."},
	OpIncrement: {"INCREMENT", "MoO", "Increment the current cell."},
	OpLoopStart: {"LOOP_START", "MOO", "If the current cell is 0, skip to the matching moo."},
	OpZero:      {"ZERO", "OOO", "Set the current cell to 0."},
	OpRegister:  {"REGISTER", "MMM", "Copy the cell into the register, or the register back into the cell."},
	OpPrintInt:  {"PRINT_INT", "OOM", "Print the current cell as a decimal integer."},
	OpReadInt:   {"READ_INT", "oom", "Read a decimal integer from input into the current cell."},
}

var tokenTable = func() map[string]Opcode {
	m := make(map[string]Opcode, NumOpcodes)
	for i, info := range opcodeInfoTable {
		m[info.Token] = Opcode(i)
	}
	return m
}()

// OpcodeFromToken returns the opcode spelled by tok, or OpInvalid.
// Matching is exact and case-sensitive.
func OpcodeFromToken(tok string) Opcode {
	if op, ok := tokenTable[tok]; ok {
		return op
	}
	return OpInvalid
}

// OpcodeFromBytes is OpcodeFromToken for a byte window.
func OpcodeFromBytes(b []byte) Opcode {
	if op, ok := tokenTable[string(b)]; ok {
		return op
	}
	return OpInvalid
}

// OpcodeFromOrdinal maps a cell value onto an opcode for mOO.
// Values outside 0-11 yield OpInvalid.
func OpcodeFromOrdinal(v Cell) Opcode {
	if v < 0 || v >= NumOpcodes {
		return OpInvalid
	}
	return Opcode(v)
}

// GetOpcodeInfo returns metadata for an opcode.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if !op.Valid() {
		return OpcodeInfo{Name: fmt.Sprintf("INVALID(%d)", int(op)), Token: "???"}
	}
	return opcodeInfoTable[op]
}

// Valid reports whether op is one of the twelve instructions.
func (op Opcode) Valid() bool {
	return op >= 0 && op < NumOpcodes
}

// Token returns the three-character source spelling of op.
func (op Opcode) Token() string {
	return GetOpcodeInfo(op).Token
}

// String returns the human-readable name of op.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsLoop reports whether op brackets a loop.
func (op Opcode) IsLoop() bool {
	return op == OpLoopStart || op == OpLoopEnd
}

// IsArithmetic reports whether op is folded by the run-length encoder.
func (op Opcode) IsArithmetic() bool {
	return op == OpIncrement || op == OpDecrement
}

// AllOpcodes returns the twelve opcodes in ordinal order.
func AllOpcodes() []Opcode {
	ops := make([]Opcode, NumOpcodes)
	for i := range ops {
		ops[i] = Opcode(i)
	}
	return ops
}

// ---------------------------------------------------------------------------
// Instructions
// ---------------------------------------------------------------------------

// Instruction is an opcode plus its repeat count. Arg is only meaningful for
// OpIncrement and OpDecrement after run-length folding; it is always positive
// and the direction comes from the opcode.
type Instruction struct {
	Op  Opcode `cbor:"1,keyasint"`
	Arg int32  `cbor:"2,keyasint,omitempty"`
}

// NewInstruction returns op with the default argument of 1.
func NewInstruction(op Opcode) Instruction {
	return Instruction{Op: op, Arg: 1}
}

// Repeat returns op carrying a repeat count of n.
func Repeat(op Opcode, n int32) Instruction {
	return Instruction{Op: op, Arg: n}
}

// Count returns the effective repeat count, treating non-positive
// arguments as 1.
func (ins Instruction) Count() Cell {
	if ins.Arg <= 0 {
		return 1
	}
	return Cell(ins.Arg)
}

func (ins Instruction) String() string {
	if ins.Op.IsArithmetic() && ins.Count() != 1 {
		return fmt.Sprintf("%s x%d", ins.Op.Token(), ins.Count())
	}
	return ins.Op.Token()
}

// Program is an ordered, loop-validated instruction sequence.
type Program []Instruction
