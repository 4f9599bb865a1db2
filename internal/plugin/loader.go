package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	goplugin "plugin"

	"github.com/roach88/orcsym/internal/opcode"
)

// EntryPoint is the symbol a plugin library exports to register its
// opcodes. Its type must be func(opcode.Registrar) error.
const EntryPoint = "RegisterOpcodes"

// Loader loads one library file and registers the opcodes it provides.
type Loader interface {
	Load(path string) error
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(path string) error

// Load calls f(path).
func (f LoaderFunc) Load(path string) error {
	return f(path)
}

// GoLoader loads Go plugins built with -buildmode=plugin.
type GoLoader struct {
	registrar opcode.Registrar
}

// NewGoLoader creates a loader that hands reg to each library's
// RegisterOpcodes function.
func NewGoLoader(reg opcode.Registrar) *GoLoader {
	return &GoLoader{registrar: reg}
}

// Load opens the plugin at path and runs its entry point.
func (l *GoLoader) Load(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrLibraryNotFound, path)
		}
		return err
	}
	p, err := goplugin.Open(path)
	if err != nil {
		return fmt.Errorf("open plugin: %w", err)
	}
	sym, err := p.Lookup(EntryPoint)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", EntryPoint, err)
	}
	register, ok := sym.(func(opcode.Registrar) error)
	if !ok {
		return fmt.Errorf("%s: %s has type %T, want func(opcode.Registrar) error", path, EntryPoint, sym)
	}
	if err := register(l.registrar); err != nil {
		return fmt.Errorf("%s: %w", EntryPoint, err)
	}
	return nil
}
