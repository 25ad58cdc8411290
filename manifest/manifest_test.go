package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/moo/vm"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[program]
entry = "fib.cow"

[run]
memory = 512
optimize = true
resolver = "scan"
safe = true
trace = true

[limits]
max-steps = 5000
max-output-bytes = 64

[image]
output = "build/fib.moob"

[log]
verbosity = 2
file = "moo.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Program.Entry != "fib.cow" {
		t.Errorf("entry = %q, want fib.cow", m.Program.Entry)
	}
	if m.Run.Memory != 512 {
		t.Errorf("memory = %d, want 512", m.Run.Memory)
	}
	if !m.Run.Optimize || !m.Run.Safe || !m.Run.Trace {
		t.Errorf("run flags = %+v", m.Run)
	}
	if m.ResolverKind() != vm.ResolveScan {
		t.Errorf("resolver = %v, want scan", m.ResolverKind())
	}
	if m.Limits.MaxSteps != 5000 || m.Limits.MaxOutput != 64 || m.Limits.MaxMemory != 0 {
		t.Errorf("limits = %+v", m.Limits)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "moo.log" {
		t.Errorf("log = %+v", m.Log)
	}

	absDir, _ := filepath.Abs(dir)
	if m.Dir != absDir {
		t.Errorf("Dir = %q, want %q", m.Dir, absDir)
	}
	if want := filepath.Join(absDir, "build", "fib.moob"); m.Image.Output != want {
		t.Errorf("image output = %q, want %q", m.Image.Output, want)
	}
	if want := filepath.Join(absDir, "fib.cow"); m.EntryPath() != want {
		t.Errorf("EntryPath() = %q, want %q", m.EntryPath(), want)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `[program]
entry = "/abs/prog.cow"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Run.Memory != vm.DefaultMemory {
		t.Errorf("memory = %d, want %d", m.Run.Memory, vm.DefaultMemory)
	}
	if m.ResolverKind() != vm.ResolveTable {
		t.Errorf("resolver = %v, want table", m.ResolverKind())
	}
	if m.Run.Optimize || m.Run.Safe {
		t.Errorf("run flags = %+v, want all off", m.Run)
	}
	if m.EntryPath() != "/abs/prog.cow" {
		t.Errorf("EntryPath() = %q", m.EntryPath())
	}
	if !m.EffectiveLimits().IsUnlimited() {
		t.Errorf("EffectiveLimits() = %+v, want unlimited", m.EffectiveLimits())
	}
}

func TestLoadManifestErrors(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("Load of empty dir succeeded")
	}

	dir := t.TempDir()
	writeManifest(t, dir, "[run\nmemory = ")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "parse error") {
		t.Errorf("malformed toml: err = %v", err)
	}

	dir = t.TempDir()
	writeManifest(t, dir, "[run]\nresolver = \"jit\"\n")
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "unknown resolver") {
		t.Errorf("bad resolver: err = %v", err)
	}
}

func TestFindAndLoad(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[run]\nmemory = 77\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Run.Memory != 77 {
		t.Errorf("memory = %d, want 77", m.Run.Memory)
	}
}

func TestEffectiveLimits(t *testing.T) {
	m := Default()
	m.Run.Safe = true
	if got := m.EffectiveLimits(); got != vm.SafeDefaults() {
		t.Errorf("safe mode limits = %+v, want %+v", got, vm.SafeDefaults())
	}

	m.Limits.MaxSteps = 12
	got := m.EffectiveLimits()
	if got.MaxSteps != 12 || got.MaxMemory != vm.SafeDefaults().MaxMemory {
		t.Errorf("override = %+v", got)
	}

	m.Run.Safe = false
	if got := m.EffectiveLimits(); got != (vm.Limits{MaxSteps: 12}) {
		t.Errorf("non-safe limits = %+v", got)
	}
}

func TestVMOptions(t *testing.T) {
	m := Default()
	m.Run.Memory = 8
	m.Run.Resolver = "scan"
	m.Limits.MaxSteps = 3

	machine := vm.New(m.VMOptions()...)
	if got := len(machine.Tape()); got != 8 {
		t.Errorf("tape length = %d, want 8", got)
	}
	if machine.Resolver() != vm.ResolveScan {
		t.Errorf("resolver = %v, want scan", machine.Resolver())
	}
	if machine.Limits().MaxSteps != 3 {
		t.Errorf("limits = %+v", machine.Limits())
	}
}
