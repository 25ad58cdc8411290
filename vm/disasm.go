package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of prog.
func Disassemble(prog Program) string {
	return DisassembleWithName(prog, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(prog Program, name string) string {
	var sb strings.Builder

	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %d instructions\n\n", len(prog)))

	loops := newTableResolver(prog)
	for i, ins := range prog {
		sb.WriteString(fmt.Sprintf("%04d  %s  %-10s", i, ins.Op.Token(), ins.Op))
		switch {
		case ins.Op.IsArithmetic() && ins.Count() != 1:
			sb.WriteString(fmt.Sprintf(" x%d", ins.Count()))
		case ins.Op.IsLoop():
			if t, ok := loops.match(ins.Op, i); ok {
				sb.WriteString(fmt.Sprintf(" -> %04d", t))
			} else {
				sb.WriteString(" -> ????")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
