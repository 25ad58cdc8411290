package vm

// ResolverKind selects how the machine finds matching loop brackets.
type ResolverKind int

const (
	// ResolveTable precomputes a mutual jump table when a program is loaded.
	ResolveTable ResolverKind = iota
	// ResolveScan walks the instruction sequence on every jump.
	ResolveScan
)

func (k ResolverKind) String() string {
	switch k {
	case ResolveTable:
		return "table"
	case ResolveScan:
		return "scan"
	default:
		return "unknown"
	}
}

// ParseResolverKind maps "table" or "scan" to a ResolverKind.
func ParseResolverKind(s string) (ResolverKind, bool) {
	switch s {
	case "table", "":
		return ResolveTable, true
	case "scan":
		return ResolveScan, true
	}
	return 0, false
}

// resolver finds the jump target for a loop opcode executed at index at.
// For OpLoopStart the target is the matching OpLoopEnd; for OpLoopEnd it is
// the matching OpLoopStart. The opcode need not be the one stored at at:
// mOO executes loop opcodes in place of itself.
type resolver interface {
	match(op Opcode, at int) (int, bool)
}

func newResolver(kind ResolverKind, prog Program) resolver {
	if kind == ResolveScan {
		return scanResolver{prog: prog}
	}
	return newTableResolver(prog)
}

// scanResolver counts bracket depth outward from at.
type scanResolver struct {
	prog Program
}

func (r scanResolver) match(op Opcode, at int) (int, bool) {
	depth := 1
	switch op {
	case OpLoopStart:
		for i := at + 1; i < len(r.prog); i++ {
			switch r.prog[i].Op {
			case OpLoopStart:
				depth++
			case OpLoopEnd:
				depth--
				if depth == 0 {
					return i, true
				}
			}
		}
	case OpLoopEnd:
		for i := at - 1; i >= 0; i-- {
			switch r.prog[i].Op {
			case OpLoopEnd:
				depth++
			case OpLoopStart:
				depth--
				if depth == 0 {
					return i, true
				}
			}
		}
	}
	return 0, false
}

// tableResolver answers from targets built once at load time. Positions that
// do not hold op (a loop opcode run from memory) fall back to scanning.
type tableResolver struct {
	scan    scanResolver
	targets []int // -1 where the instruction is not a matched bracket
}

func newTableResolver(prog Program) *tableResolver {
	r := &tableResolver{
		scan:    scanResolver{prog: prog},
		targets: make([]int, len(prog)),
	}
	var stack []int
	for i, ins := range prog {
		r.targets[i] = -1
		switch ins.Op {
		case OpLoopStart:
			stack = append(stack, i)
		case OpLoopEnd:
			if len(stack) == 0 {
				continue
			}
			start := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			r.targets[i] = start
			r.targets[start] = i
		}
	}
	return r
}

func (r *tableResolver) match(op Opcode, at int) (int, bool) {
	if at >= 0 && at < len(r.targets) && r.scan.prog[at].Op == op {
		if t := r.targets[at]; t >= 0 {
			return t, true
		}
		return 0, false
	}
	return r.scan.match(op, at)
}
