package vm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// VM: the COW tape machine
// ---------------------------------------------------------------------------

// Cell is one tape slot. Arithmetic wraps at 32 bits.
type Cell = int32

// Status is the run state of a machine.
type Status int

const (
	Ready Status = iota
	Running
	Halted
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Halted:
		return "halted"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Register is the one-slot store used by MMM. The zero value is empty.
// Registers are only built by Holding or as the zero value, so an empty
// register never carries a stale value and two empty registers compare equal.
type Register struct {
	held  bool
	value Cell
}

// Holding returns a register that holds v.
func Holding(v Cell) Register {
	return Register{held: true, value: v}
}

// Value returns the held value and whether the register is occupied.
func (r Register) Value() (Cell, bool) {
	return r.value, r.held
}

// Empty reports whether the register holds nothing.
func (r Register) Empty() bool {
	return !r.held
}

func (r Register) String() string {
	if !r.held {
		return "empty"
	}
	return strconv.FormatInt(int64(r.value), 10)
}

// VM executes one loaded program. It is not safe for concurrent use.
type VM struct {
	prog   Program
	loops  resolver
	kind   ResolverKind
	limits Limits

	tape    []Cell
	initial int
	ptr     int
	pc      int
	reg     Register
	status  Status

	steps    uint64
	outBytes uint64

	input   InputFunc
	outChar OutputCharFunc
	outInt  OutputIntFunc
	console *Console
	numBuf  [maxNumberInput]byte

	log   commonlog.Logger
	trace bool
}

// Option configures a VM.
type Option func(*VM)

// WithLimits sets execution limits.
func WithLimits(l Limits) Option {
	return func(m *VM) { m.limits = l }
}

// WithMemory sets the initial tape length. It is clipped to the memory limit.
func WithMemory(cells int) Option {
	return func(m *VM) { m.initial = cells }
}

// WithResolver selects the loop resolution strategy.
func WithResolver(kind ResolverKind) Option {
	return func(m *VM) { m.kind = kind }
}

// WithConsole routes all three I/O hooks through c.
func WithConsole(c *Console) Option {
	return func(m *VM) {
		m.console = c
		m.input = c.ReadByte
		m.outChar = c.WriteChar
		m.outInt = c.WriteInt
	}
}

// WithInput sets the character input hook.
func WithInput(f InputFunc) Option {
	return func(m *VM) { m.input = f }
}

// WithOutputChar sets the character output hook.
func WithOutputChar(f OutputCharFunc) Option {
	return func(m *VM) { m.outChar = f }
}

// WithOutputInt sets the integer output hook.
func WithOutputInt(f OutputIntFunc) Option {
	return func(m *VM) { m.outInt = f }
}

// WithLogger replaces the "moo.vm" logger.
func WithLogger(l commonlog.Logger) Option {
	return func(m *VM) { m.log = l }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(m *VM) { m.trace = on }
}

// New creates a machine with an empty program. Hooks that are not configured
// fall back to the process's standard input and output.
func New(opts ...Option) *VM {
	m := &VM{
		initial: DefaultMemory,
		log:     commonlog.GetLogger("moo.vm"),
	}
	WithConsole(Stdio())(m)
	for _, opt := range opts {
		opt(m)
	}
	if m.limits.MaxMemory > 0 && uint64(m.initial) > m.limits.MaxMemory {
		m.initial = int(m.limits.MaxMemory)
	}
	if m.initial < 1 {
		m.initial = 1
	}
	m.tape = make([]Cell, m.initial)
	m.loops = newResolver(m.kind, nil)
	return m
}

// SetInput replaces the character input hook.
func (m *VM) SetInput(f InputFunc) { m.input = f }

// SetOutputChar replaces the character output hook.
func (m *VM) SetOutputChar(f OutputCharFunc) { m.outChar = f }

// SetOutputInt replaces the integer output hook.
func (m *VM) SetOutputInt(f OutputIntFunc) { m.outInt = f }

// Load installs prog and resets the machine. prog must already have passed
// loop validation.
func (m *VM) Load(prog Program) {
	m.prog = prog
	m.loops = newResolver(m.kind, prog)
	m.Reset()
	m.log.Debugf("loaded %d instructions (%s loop resolution)", len(prog), m.kind)
}

// Reset zeroes the tape and returns the machine to Ready without unloading
// the program.
func (m *VM) Reset() {
	clear(m.tape)
	m.ptr = 0
	m.pc = 0
	m.reg = Register{}
	m.status = Ready
	m.steps = 0
	m.outBytes = 0
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Step executes one instruction. A Ready machine starts running; a Halted
// machine is left untouched. Errors halt the machine.
func (m *VM) Step() error {
	switch m.status {
	case Halted:
		return nil
	case Ready:
		m.status = Running
	}
	if m.pc >= len(m.prog) {
		return m.stop(nil)
	}
	if err := m.limits.checkSteps(m.steps); err != nil {
		return m.stop(err)
	}
	m.steps++

	ins := m.prog[m.pc]
	if m.trace {
		m.log.Debugf("[%04d] %-10s ptr=%d cell=%d", m.pc, ins, m.ptr, m.tape[m.ptr])
	}
	jumped, err := m.apply(ins)
	if err != nil {
		return m.stop(err)
	}
	if m.status == Halted {
		return m.stop(nil)
	}
	if !jumped {
		m.pc++
	}
	if m.pc >= len(m.prog) {
		return m.stop(nil)
	}
	return nil
}

// Run steps until the machine halts or fails.
func (m *VM) Run() error {
	return m.RunContext(context.Background())
}

// checkEvery is how many steps RunContext executes between context checks.
const checkEvery = 1024

// RunContext is Run with cooperative cancellation between steps. A cancelled
// run halts the machine and flushes its output like any other error.
func (m *VM) RunContext(ctx context.Context) error {
	if len(m.prog) == 0 {
		m.status = Halted
		return nil
	}
	for n := 0; m.status != Halted; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return m.stop(err)
			}
		}
		if err := m.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (m *VM) stop(err error) error {
	m.status = Halted
	if ferr := m.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	if err != nil {
		m.log.Infof("halted after %d steps: %v", m.steps, err)
	} else {
		m.log.Debugf("halted after %d steps", m.steps)
	}
	return err
}

// Flush writes any output buffered by the console. Custom hooks are left to
// the caller.
func (m *VM) Flush() error {
	if m.console == nil {
		return nil
	}
	if err := m.console.Flush(); err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Inspection
// ---------------------------------------------------------------------------

// State is a point-in-time view of the machine for debuggers.
type State struct {
	Status   Status
	PC       int
	Pointer  int
	Cell     Cell
	Register Register
	Steps    uint64
	TapeLen  int
}

// Snapshot returns the current state.
func (m *VM) Snapshot() State {
	return State{
		Status:   m.status,
		PC:       m.pc,
		Pointer:  m.ptr,
		Cell:     m.tape[m.ptr],
		Register: m.reg,
		Steps:    m.steps,
		TapeLen:  len(m.tape),
	}
}

func (s State) String() string {
	return fmt.Sprintf("PC=%d MP=%d MEM=%d REG=%s", s.PC, s.Pointer, s.Cell, s.Register)
}

func (m *VM) Status() Status         { return m.status }
func (m *VM) IsRunning() bool        { return m.status == Running }
func (m *VM) PC() int                { return m.pc }
func (m *VM) Pointer() int           { return m.ptr }
func (m *VM) Cell() Cell             { return m.tape[m.ptr] }
func (m *VM) Register() Register     { return m.reg }
func (m *VM) Steps() uint64          { return m.steps }
func (m *VM) OutputBytes() uint64    { return m.outBytes }
func (m *VM) Program() Program       { return m.prog }
func (m *VM) Limits() Limits         { return m.limits }
func (m *VM) Resolver() ResolverKind { return m.kind }

// CellAt returns the cell at index i, if the tape is that long.
func (m *VM) CellAt(i int) (Cell, bool) {
	if i < 0 || i >= len(m.tape) {
		return 0, false
	}
	return m.tape[i], true
}

// Tape returns a copy of the tape.
func (m *VM) Tape() []Cell {
	out := make([]Cell, len(m.tape))
	copy(out, m.tape)
	return out
}
