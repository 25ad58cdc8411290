package vm

import (
	"errors"
	"fmt"
)

var (
	ErrTapeUnderflow = errors.New("tape pointer underflow")
	ErrInvalidOpcode = errors.New("invalid instruction")
	ErrUnmatchedLoop = errors.New("no matching loop bracket")
	ErrLimitExceeded = errors.New("execution limit exceeded")
)

// RuntimeError reports a fault raised by the program itself.
type RuntimeError struct {
	PC  int    // instruction index being executed
	Op  Opcode // opcode that faulted (may differ from the program's when run via mOO)
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%v at instruction %d (%s)", e.Err, e.PC, e.Op.Token())
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// Limit names carried by LimitError.
const (
	LimitSteps  = "max_steps"
	LimitMemory = "max_memory_cells"
	LimitOutput = "max_output_bytes"
)

// LimitError reports that a run was stopped by a configured limit rather than
// by a fault in the program.
type LimitError struct {
	Limit     string
	Threshold uint64
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%s exceeded (limit: %d)", e.Limit, e.Threshold)
}

func (e *LimitError) Unwrap() error { return ErrLimitExceeded }

// IOError wraps a failure of a source file or an I/O hook. The underlying
// error is kept intact.
type IOError struct {
	Op   string // "read", "write", "open", ...
	Path string // file path, empty for hooks
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ioErr wraps err from a hook unless it is already an IOError.
func ioErr(op string, err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Err: err}
}
