// Package globals is the engine-wide store of named opaque byte buffers.
//
// Opcodes and host code use it to share state by name ("csRtClock",
// "_RTAUDIO", ...). A buffer is zero-initialised when created and keeps its
// size until it is destroyed or the store is cleared at engine reset.
//
// Query and QueryUnchecked are safe to call from the performance goroutine
// once a variable exists; Create and Destroy belong to setup.
package globals

import (
	"fmt"
	"sort"

	"github.com/roach88/orcsym/internal/budget"
	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
)

// MaxSize is the exclusive upper bound on a variable's size in bytes.
const MaxSize = 0x7F000000

// Store maps names to buffers.
type Store struct {
	vars   namehash.Table[[]byte]
	budget *budget.Budget
}

// New creates an empty store charging its buffers to b.
// A nil budget means unlimited.
func New(b *budget.Budget) *Store {
	if b == nil {
		b = budget.New(0)
	}
	return &Store{budget: b}
}

// validName reports whether name is non-empty 7-bit ASCII.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] >= 0x80 {
			return false
		}
	}
	return true
}

// Create allocates a zeroed buffer of size bytes under name.
//
// Errors:
//   - InvalidName: empty or not 7-bit ASCII
//   - InvalidArgument: size < 1 or size >= MaxSize
//   - AlreadyExists: name is in use
//   - OutOfMemory: the memory budget cannot cover size; nothing is stored
func (s *Store) Create(name string, size int) error {
	const op = "globals.Create"
	if !validName(name) {
		return regerr.New(regerr.InvalidName, op, name, "name must be non-empty 7-bit ASCII")
	}
	if size < 1 || size >= MaxSize {
		return regerr.New(regerr.InvalidArgument, op, name, fmt.Sprintf("invalid size %d", size))
	}
	if _, exists := s.vars.Lookup(name); exists {
		return regerr.New(regerr.AlreadyExists, op, name, "name already in use")
	}
	if err := s.budget.Reserve(int64(size)); err != nil {
		return regerr.Wrap(regerr.OutOfMemory, op, name, err)
	}
	// Own the key: callers may pass strings that alias mutable memory.
	key := string([]byte(name))
	s.vars.Insert(key, make([]byte, size))
	return nil
}

// Query returns the buffer stored under name, or nil if there is none.
func (s *Store) Query(name string) []byte {
	if !validName(name) {
		return nil
	}
	buf, _ := s.vars.Lookup(name)
	return buf
}

// QueryUnchecked returns the buffer stored under name without validating
// the name. The caller guarantees the variable exists; QueryUnchecked
// panics otherwise.
func (s *Store) QueryUnchecked(name string) []byte {
	buf, ok := s.vars.Lookup(name)
	if !ok {
		panic("globals: QueryUnchecked on undefined variable " + name)
	}
	return buf
}

// Destroy frees the buffer stored under name and removes the binding.
func (s *Store) Destroy(name string) error {
	if !validName(name) {
		return regerr.New(regerr.NotFound, "globals.Destroy", name, "variable not defined")
	}
	buf, ok := s.vars.Delete(name)
	if !ok {
		return regerr.New(regerr.NotFound, "globals.Destroy", name, "variable not defined")
	}
	s.budget.Release(int64(len(buf)))
	return nil
}

// ClearAll frees every buffer. Used at full engine reset.
func (s *Store) ClearAll() {
	s.vars.Each(func(_ string, buf []byte) bool {
		s.budget.Release(int64(len(buf)))
		return true
	})
	s.vars.Reset()
}

// Len returns the number of variables.
func (s *Store) Len() int {
	return s.vars.Len()
}

// Names returns the variable names in lexicographic order.
func (s *Store) Names() []string {
	names := make([]string, 0, s.vars.Len())
	s.vars.Each(func(name string, _ []byte) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
