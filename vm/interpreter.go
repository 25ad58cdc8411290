package vm

import (
	"errors"
	"io"
)

// ---------------------------------------------------------------------------
// Dispatch
// ---------------------------------------------------------------------------

// apply executes one instruction against the machine state. It reports
// whether the instruction moved the program counter itself. apply never
// touches the step counter, so mOO can call it recursively.
func (m *VM) apply(ins Instruction) (bool, error) {
	switch ins.Op {
	case OpLoopEnd:
		if m.tape[m.ptr] != 0 {
			return m.jump(ins.Op)
		}

	case OpMoveLeft:
		if m.ptr == 0 {
			return false, m.fault(ins.Op, ErrTapeUnderflow)
		}
		m.ptr--

	case OpMoveRight:
		if m.ptr+1 >= len(m.tape) {
			if err := m.limits.checkGrow(len(m.tape) + 1); err != nil {
				return false, err
			}
			m.tape = append(m.tape, 0)
		}
		m.ptr++

	case OpExecCell:
		v := m.tape[m.ptr]
		if v == Cell(OpExecCell) {
			m.status = Halted
			return false, nil
		}
		if op := OpcodeFromOrdinal(v); op != OpInvalid {
			return m.apply(NewInstruction(op))
		}

	case OpCharIO:
		if c := m.tape[m.ptr]; c != 0 {
			return false, m.emitChar(byte(c))
		}
		b, eof, err := m.read()
		if err != nil {
			return false, err
		}
		m.tape[m.ptr] = Cell(b)
		if !eof && b != '\n' {
			return false, m.discardLine()
		}

	case OpDecrement:
		m.tape[m.ptr] -= ins.Count()

	case OpIncrement:
		m.tape[m.ptr] += ins.Count()

	case OpLoopStart:
		if m.tape[m.ptr] == 0 {
			return m.jump(ins.Op)
		}

	case OpZero:
		m.tape[m.ptr] = 0

	case OpRegister:
		if v, ok := m.reg.Value(); ok {
			m.tape[m.ptr] = v
			m.reg = Register{}
		} else {
			m.reg = Holding(m.tape[m.ptr])
		}

	case OpPrintInt:
		return false, m.emitInt(m.tape[m.ptr])

	case OpReadInt:
		n, err := m.readNumber()
		if err != nil {
			return false, err
		}
		m.tape[m.ptr] = n

	default:
		return false, m.fault(ins.Op, ErrInvalidOpcode)
	}
	return false, nil
}

func (m *VM) jump(op Opcode) (bool, error) {
	target, ok := m.loops.match(op, m.pc)
	if !ok {
		return false, m.fault(op, ErrUnmatchedLoop)
	}
	m.pc = target
	return true, nil
}

func (m *VM) fault(op Opcode, err error) error {
	return &RuntimeError{PC: m.pc, Op: op, Err: err}
}

// ---------------------------------------------------------------------------
// I/O helpers
// ---------------------------------------------------------------------------

// read returns the next input byte. End of input is reported as eof with a
// zero byte, not as an error.
func (m *VM) read() (b byte, eof bool, err error) {
	b, err = m.input()
	if errors.Is(err, io.EOF) {
		return 0, true, nil
	}
	if err != nil {
		return 0, false, ioErr("read", err)
	}
	return b, false, nil
}

// discardLine consumes input up to and including the next newline.
func (m *VM) discardLine() error {
	for {
		b, eof, err := m.read()
		if err != nil || eof || b == '\n' {
			return err
		}
	}
}

// readNumber reads one line of at most maxNumberInput bytes and parses it.
// Input beyond the buffer on the same line is dropped.
func (m *VM) readNumber() (Cell, error) {
	n := 0
	terminated := false
	for n < len(m.numBuf) {
		b, eof, err := m.read()
		if err != nil {
			return 0, err
		}
		if eof || b == '\n' {
			terminated = true
			break
		}
		m.numBuf[n] = b
		n++
	}
	if !terminated {
		if err := m.discardLine(); err != nil {
			return 0, err
		}
	}
	return parseCellInt(m.numBuf[:n]), nil
}

func (m *VM) emitChar(c byte) error {
	if err := m.limits.checkOutput(m.outBytes + 1); err != nil {
		return err
	}
	if err := m.outChar(c); err != nil {
		return ioErr("write", err)
	}
	m.outBytes++
	return nil
}

func (m *VM) emitInt(n Cell) error {
	size := intTextLen(n)
	if err := m.limits.checkOutput(m.outBytes + size); err != nil {
		return err
	}
	if err := m.outInt(n); err != nil {
		return ioErr("write", err)
	}
	m.outBytes += size
	return nil
}
