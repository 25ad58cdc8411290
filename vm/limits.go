package vm

// DefaultMemory is the initial tape length in cells.
const DefaultMemory = 30000

// Limits bounds a run. A zero field means unlimited.
type Limits struct {
	MaxSteps  uint64 `toml:"max-steps"`
	MaxMemory uint64 `toml:"max-memory-cells"`
	MaxOutput uint64 `toml:"max-output-bytes"`
}

// Unlimited returns limits that never trigger.
func Unlimited() Limits {
	return Limits{}
}

// SafeDefaults returns the limits used by safe mode.
func SafeDefaults() Limits {
	return Limits{
		MaxSteps:  10_000_000,
		MaxMemory: 1 << 20,
		MaxOutput: 1 << 20,
	}
}

// IsUnlimited reports whether no limit is set.
func (l Limits) IsUnlimited() bool {
	return l == Limits{}
}

func (l Limits) checkSteps(done uint64) error {
	if l.MaxSteps > 0 && done >= l.MaxSteps {
		return &LimitError{Limit: LimitSteps, Threshold: l.MaxSteps}
	}
	return nil
}

// checkGrow is called before the tape is extended to newLen cells.
func (l Limits) checkGrow(newLen int) error {
	if l.MaxMemory > 0 && uint64(newLen) > l.MaxMemory {
		return &LimitError{Limit: LimitMemory, Threshold: l.MaxMemory}
	}
	return nil
}

func (l Limits) checkOutput(total uint64) error {
	if l.MaxOutput > 0 && total > l.MaxOutput {
		return &LimitError{Limit: LimitOutput, Threshold: l.MaxOutput}
	}
	return nil
}
