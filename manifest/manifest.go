// Package manifest handles moo.toml run configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/moo/vm"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "moo.toml"

// Manifest represents a moo.toml configuration.
type Manifest struct {
	Program Program   `toml:"program"`
	Run     Run       `toml:"run"`
	Limits  vm.Limits `toml:"limits"`
	Image   Image     `toml:"image"`
	Log     Log       `toml:"log"`

	// Dir is the directory containing the moo.toml file (set at load time).
	Dir string `toml:"-"`
}

// Program names the source to run when none is given on the command line.
type Program struct {
	Entry string `toml:"entry"`
}

// Run configures the machine.
type Run struct {
	Memory   int    `toml:"memory"`
	Optimize bool   `toml:"optimize"`
	Resolver string `toml:"resolver"`
	Safe     bool   `toml:"safe"`
	Trace    bool   `toml:"trace"`
}

// Image configures compiled program output.
type Image struct {
	Output string `toml:"output"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the configuration used when no moo.toml exists.
func Default() *Manifest {
	return &Manifest{
		Run: Run{
			Memory:   vm.DefaultMemory,
			Resolver: vm.ResolveTable.String(),
		},
	}
}

// Load parses a moo.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Run.Memory <= 0 {
		m.Run.Memory = vm.DefaultMemory
	}
	if m.Image.Output != "" && !filepath.IsAbs(m.Image.Output) {
		m.Image.Output = filepath.Join(m.Dir, m.Image.Output)
	}
	if _, ok := vm.ParseResolverKind(m.Run.Resolver); !ok {
		return nil, fmt.Errorf("%s: unknown resolver %q (want table or scan)", path, m.Run.Resolver)
	}

	return m, nil
}

// FindAndLoad walks up from startDir to find a moo.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// EntryPath returns the absolute path of the configured entry program, or
// "" when none is set.
func (m *Manifest) EntryPath() string {
	if m.Program.Entry == "" {
		return ""
	}
	if filepath.IsAbs(m.Program.Entry) {
		return m.Program.Entry
	}
	return filepath.Join(m.Dir, m.Program.Entry)
}

// ResolverKind returns the configured loop resolution strategy.
func (m *Manifest) ResolverKind() vm.ResolverKind {
	k, _ := vm.ParseResolverKind(m.Run.Resolver)
	return k
}

// EffectiveLimits returns the configured limits, starting from the safe
// defaults when safe mode is on. Explicit non-zero values win.
func (m *Manifest) EffectiveLimits() vm.Limits {
	if !m.Run.Safe {
		return m.Limits
	}
	l := vm.SafeDefaults()
	if m.Limits.MaxSteps > 0 {
		l.MaxSteps = m.Limits.MaxSteps
	}
	if m.Limits.MaxMemory > 0 {
		l.MaxMemory = m.Limits.MaxMemory
	}
	if m.Limits.MaxOutput > 0 {
		l.MaxOutput = m.Limits.MaxOutput
	}
	return l
}

// VMOptions translates the run configuration into machine options.
func (m *Manifest) VMOptions() []vm.Option {
	return []vm.Option{
		vm.WithLimits(m.EffectiveLimits()),
		vm.WithMemory(m.Run.Memory),
		vm.WithResolver(m.ResolverKind()),
		vm.WithTrace(m.Run.Trace),
	}
}
