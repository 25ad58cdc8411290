package compiler

import "github.com/chazu/moo/vm"

// Plain maps each opcode to one instruction with the default argument.
func Plain(ops []vm.Opcode) vm.Program {
	prog := make(vm.Program, len(ops))
	for i, op := range ops {
		prog[i] = vm.NewInstruction(op)
	}
	return prog
}

// Fold is Plain with run-length folding: each maximal run of MoO and MOo
// becomes at most one instruction carrying the run's net count. A run that
// cancels out emits nothing. All other opcodes keep their order.
func Fold(ops []vm.Opcode) vm.Program {
	prog := make(vm.Program, 0, len(ops))
	var net int32
	flush := func() {
		switch {
		case net > 0:
			prog = append(prog, vm.Repeat(vm.OpIncrement, net))
		case net < 0:
			prog = append(prog, vm.Repeat(vm.OpDecrement, -net))
		}
		net = 0
	}

	for _, op := range ops {
		switch op {
		case vm.OpIncrement:
			net++
		case vm.OpDecrement:
			net--
		default:
			flush()
			prog = append(prog, vm.NewInstruction(op))
		}
	}
	flush()
	return prog
}
