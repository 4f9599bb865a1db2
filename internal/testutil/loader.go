package testutil

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/roach88/orcsym/internal/opcode"
)

// FakeLoader is a scripted plugin loader for tests.
//
// Libraries are keyed by their base file name ("libfoo.so"). A successful
// load registers the library's scripted opcodes into the registrar; a
// scripted failure is returned as-is. Every attempt is recorded.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type FakeLoader struct {
	mu        sync.Mutex
	registrar opcode.Registrar
	provides  map[string][]string
	failures  map[string]error
	calls     []string
}

// NewFakeLoader creates a loader that registers opcodes into reg.
// reg may be nil if the test only counts load attempts.
func NewFakeLoader(reg opcode.Registrar) *FakeLoader {
	return &FakeLoader{
		registrar: reg,
		provides:  make(map[string][]string),
		failures:  make(map[string]error),
	}
}

// Provide scripts library lib to register the named opcodes.
func (f *FakeLoader) Provide(lib string, opcodes ...string) *FakeLoader {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provides[lib] = opcodes
	return f
}

// Fail scripts library lib to fail with err.
func (f *FakeLoader) Fail(lib string, err error) *FakeLoader {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[lib] = err
	return f
}

// Load implements plugin.Loader.
func (f *FakeLoader) Load(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	lib := filepath.Base(path)
	f.calls = append(f.calls, path)
	if err, ok := f.failures[lib]; ok {
		return err
	}
	if f.registrar == nil {
		return nil
	}
	for _, name := range f.provides[lib] {
		if err := f.registrar.AddOpcode(opcode.Def{Name: name, Impl: lib}); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}
	return nil
}

// Calls returns the paths of every load attempt in order.
func (f *FakeLoader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// LoadCount returns the number of load attempts of library lib.
func (f *FakeLoader) LoadCount(lib string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.calls {
		if filepath.Base(p) == lib {
			n++
		}
	}
	return n
}
