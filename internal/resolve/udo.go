package resolve

import (
	"fmt"
	"sort"

	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
)

// UserOpcodes maps user-defined opcode names to the instrument numbers
// that implement them. It is a separate namespace from named instruments.
type UserOpcodes struct {
	names namehash.Table[int]
}

// NewUserOpcodes creates an empty table.
func NewUserOpcodes() *UserOpcodes {
	return &UserOpcodes{}
}

// Define registers a user-defined opcode implemented by instrument id.
func (u *UserOpcodes) Define(name string, id int) error {
	const op = "resolve.Define"
	if !instr.ValidName(name) {
		return regerr.New(regerr.InvalidName, op, name, "invalid opcode name")
	}
	if id < 1 {
		return regerr.New(regerr.InvalidArgument, op, name, fmt.Sprintf("invalid instrument number %d", id))
	}
	if !u.names.Insert(name, id) {
		return regerr.New(regerr.AlreadyExists, op, name, "opcode already defined")
	}
	return nil
}

// Lookup returns the instrument number implementing name, or 0.
func (u *UserOpcodes) Lookup(name string) int {
	id, _ := u.names.Lookup(name)
	return id
}

// Len returns the number of user-defined opcodes.
func (u *UserOpcodes) Len() int {
	return u.names.Len()
}

// Names returns every user-defined opcode name, sorted.
func (u *UserOpcodes) Names() []string {
	out := make([]string, 0, u.names.Len())
	u.names.Each(func(name string, _ int) bool {
		out = append(out, name)
		return true
	})
	sort.Strings(out)
	return out
}

// Reset drops every definition.
func (u *UserOpcodes) Reset() {
	u.names.Reset()
}
