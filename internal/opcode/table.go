// Package opcode holds the live opcode table of an engine instance.
//
// Opcodes are addressed by index. Index 0 is reserved and means "not found",
// so Find can be used directly as a truth value by callers.
package opcode

import (
	"sort"

	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
)

// Def describes an opcode. The DSP entry points are opaque to the registry.
type Def struct {
	// Name is the opcode name as used in orchestra code.
	Name string

	// Outputs and Inputs are the argument type signatures.
	Outputs string
	Inputs  string

	// Impl is the implementation attached by the library that provides it.
	Impl any
}

// Registrar receives opcode definitions from a plugin library.
type Registrar interface {
	AddOpcode(def Def) error
}

// Table is the live opcode table.
type Table struct {
	defs  []Def // index 0 reserved
	index namehash.Table[int]
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{defs: make([]Def, 1)}
}

// Add appends def and returns its index.
func (t *Table) Add(def Def) (int, error) {
	const op = "opcode.Add"
	if def.Name == "" {
		return 0, regerr.New(regerr.InvalidName, op, "", "empty opcode name")
	}
	if _, exists := t.index.Lookup(def.Name); exists {
		return 0, regerr.New(regerr.AlreadyExists, op, def.Name, "opcode already defined")
	}
	i := len(t.defs)
	t.defs = append(t.defs, def)
	t.index.Insert(def.Name, i)
	return i, nil
}

// AddOpcode implements Registrar.
func (t *Table) AddOpcode(def Def) error {
	_, err := t.Add(def)
	return err
}

// Find returns the index of name, or 0 if it is not in the table.
func (t *Table) Find(name string) int {
	i, _ := t.index.Lookup(name)
	return i
}

// Get returns the definition at index i.
func (t *Table) Get(i int) (Def, bool) {
	if i < 1 || i >= len(t.defs) {
		return Def{}, false
	}
	return t.defs[i], true
}

// Len returns the number of opcodes, excluding the reserved slot.
func (t *Table) Len() int {
	return len(t.defs) - 1
}

// Names returns every opcode name, sorted.
func (t *Table) Names() []string {
	out := make([]string, 0, t.Len())
	for _, d := range t.defs[1:] {
		out = append(out, d.Name)
	}
	sort.Strings(out)
	return out
}

// Reset drops every opcode.
func (t *Table) Reset() {
	t.defs = t.defs[:1]
	t.index.Reset()
}
