package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/moo/vm"
)

// debugger is the interactive single-step loop. Commands and program input
// share one reader so neither steals the other's buffered bytes.
type debugger struct {
	m   *vm.VM
	in  *bufio.Reader
	out io.Writer
}

func newDebugger(m *vm.VM, in *bufio.Reader, out io.Writer) *debugger {
	return &debugger{m: m, in: in, out: out}
}

const debugHelp = `Commands:
  s, step, <enter>   execute one instruction
  run, c             run to completion
  tape [n]           show the first n cells (default 10)
  dis                show the program listing
  q, quit            stop debugging
`

// loop prompts until the program halts, the user quits or input ends.
func (d *debugger) loop() error {
	for d.m.Status() != vm.Halted {
		fmt.Fprintf(d.out, "%s > ", d.m.Snapshot())
		line, err := d.in.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return &vm.IOError{Op: "read", Err: err}
			}
			if line == "" {
				fmt.Fprintln(d.out)
				return nil
			}
		}

		fields := strings.Fields(line)
		cmd := ""
		if len(fields) > 0 {
			cmd = fields[0]
		}
		switch cmd {
		case "", "s", "step":
			if err := d.m.Step(); err != nil {
				return err
			}
			if err := d.m.Flush(); err != nil {
				return err
			}
		case "run", "c":
			return d.m.Run()
		case "q", "quit":
			return nil
		case "tape":
			d.printTape(fields[1:])
		case "dis":
			d.printListing()
		case "h", "help", "?":
			fmt.Fprint(d.out, debugHelp)
		default:
			fmt.Fprintf(d.out, "unknown command %q (try help)\n", cmd)
		}
	}
	return nil
}

func (d *debugger) printTape(args []string) {
	n := 10
	if len(args) > 0 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			n = v
		}
	}
	ptr := d.m.Pointer()
	for i := 0; i < n; i++ {
		v, ok := d.m.CellAt(i)
		if !ok {
			break
		}
		mark := " "
		if i == ptr {
			mark = "*"
		}
		fmt.Fprintf(d.out, "%s[%d] %d\n", mark, i, v)
	}
}

func (d *debugger) printListing() {
	pc := d.m.PC()
	marker := fmt.Sprintf("%04d ", pc)
	for _, line := range strings.Split(strings.TrimRight(vm.Disassemble(d.m.Program()), "\n"), "\n") {
		if strings.HasPrefix(line, marker) {
			fmt.Fprintf(d.out, "> %s\n", line)
		} else {
			fmt.Fprintf(d.out, "  %s\n", line)
		}
	}
}
