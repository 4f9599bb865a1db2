package instr

import (
	"fmt"
	"log/slog"

	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
	"github.com/roach88/orcsym/internal/strpool"
)

// entry is a named instrument. While numbers are unassigned it is also a
// member of the staging list.
type entry struct {
	name   string
	body   any
	req    Request
	number int // 0 until published by AssignNumbers
}

// Assignment is the final number of a named instrument.
type Assignment struct {
	Name    string
	Number  int
	Request Request
}

// Registry holds the named instruments of one engine instance together
// with its instrument-number table.
//
// Registry is not safe for concurrent mutation. Lookup is safe to call from
// the performance goroutine once AssignNumbers has returned.
type Registry struct {
	names     namehash.Table[*entry]
	staging   []*entry // declaration order, nil after assignment
	table     *Table
	pool      *strpool.Pool
	order     Order
	maxNumber int
	assigned  bool
	log       *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithGrowth sets the table's initial capacity and growth increment.
func WithGrowth(n int) Option {
	return func(r *Registry) {
		r.table = NewTable(n)
	}
}

// WithMaxNumber sets the highest instrument number the registry accepts.
// Values below 1 keep DefaultMaxNumber.
func WithMaxNumber(n int) Option {
	return func(r *Registry) {
		if n >= 1 {
			r.maxNumber = n
		}
	}
}

// WithOrder selects the tier order used by AssignNumbers.
func WithOrder(o Order) Option {
	return func(r *Registry) {
		r.order = o
	}
}

// WithPool interns instrument names into p.
func WithPool(p *strpool.Pool) Option {
	return func(r *Registry) {
		r.pool = p
	}
}

// WithLogger sets the logger used for assignment reports.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		table:     NewTable(DefaultGrowth),
		order:     TopFirst,
		maxNumber: DefaultMaxNumber,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.pool == nil {
		r.pool = strpool.New()
	}
	return r
}

// ValidName reports whether s is a valid instrument or opcode name: a
// letter or '_' followed by letters, digits or '_'.
func ValidName(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	if !isAlpha(c) && c != '_' {
		return false
	}
	for i := 1; i < len(s); i++ {
		c = s[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Register adds a named instrument.
//
// Errors:
//   - InvalidName: name does not follow the instrument name syntax
//   - InvalidArgument: Explicit(n) with n < 1 or above MaxNumber
//   - AlreadyExists: name is already registered
//   - Conflict: the explicit slot is taken, or numbers were already assigned
func (r *Registry) Register(name string, body any, req Request) error {
	const op = "instr.Register"
	if r.assigned {
		return regerr.New(regerr.Conflict, op, name, "instrument numbers already assigned")
	}
	if !ValidName(name) {
		return regerr.New(regerr.InvalidName, op, name, "invalid instrument name")
	}
	if req.kind == KindExplicit {
		if err := r.checkNumber(op, name, req.number); err != nil {
			return err
		}
	}
	if _, exists := r.names.Lookup(name); exists {
		return regerr.New(regerr.AlreadyExists, op, name, "instrument already defined")
	}
	if req.kind == KindExplicit && r.table.Occupied(req.number) {
		return regerr.New(regerr.Conflict, op, name, fmt.Sprintf("instrument number %d already in use", req.number))
	}

	e := &entry{name: r.pool.Intern(name), body: body, req: req}
	if req.kind == KindExplicit {
		r.table.install(req.number, &Slot{Name: e.name, Body: body})
	}
	r.names.Insert(e.name, e)
	r.staging = append(r.staging, e)
	r.log.Debug("named instr registered", "name", e.name, "hash", namehash.Hash(e.name), "request", req.String())
	return nil
}

// checkNumber rejects n unless it lies in 1..MaxNumber.
func (r *Registry) checkNumber(op, name string, n int) error {
	if n < 1 {
		return regerr.New(regerr.InvalidArgument, op, name, fmt.Sprintf("invalid instrument number %d", n))
	}
	if n > r.maxNumber {
		return regerr.New(regerr.InvalidArgument, op, name,
			fmt.Sprintf("instrument number %d exceeds the limit of %d", n, r.maxNumber))
	}
	return nil
}

// MaxNumber returns the highest instrument number the registry accepts.
func (r *Registry) MaxNumber() int {
	return r.maxNumber
}

// DefineNumbered installs an unnamed instrument at slot n.
func (r *Registry) DefineNumbered(n int, body any) error {
	const op = "instr.DefineNumbered"
	if err := r.checkNumber(op, "", n); err != nil {
		return err
	}
	if r.table.Occupied(n) {
		return regerr.New(regerr.Conflict, op, "", fmt.Sprintf("instrument number %d already in use", n))
	}
	r.table.install(n, &Slot{Body: body})
	return nil
}

// Lookup returns the number assigned to name, or 0 if the name is unknown
// or numbers have not been assigned yet. It never allocates.
func (r *Registry) Lookup(name string) int {
	if e, ok := r.names.Lookup(name); ok {
		return e.number
	}
	return 0
}

// Known reports whether name is registered, assigned or not.
func (r *Registry) Known(name string) bool {
	_, ok := r.names.Lookup(name)
	return ok
}

// AssignNumbers gives every registered instrument its final number and
// installs its body in the table. It must run exactly once, after all
// instruments are registered; a second call returns Conflict.
//
// If the instruments do not fit up to MaxNumber it returns OutOfMemory and
// leaves the registry as it was, still unassigned.
func (r *Registry) AssignNumbers() error {
	const op = "instr.AssignNumbers"
	if r.assigned {
		return regerr.New(regerr.Conflict, op, "", "instrument numbers already assigned")
	}

	var placed []int
	for _, tier := range r.order.tiers() {
		cursor := 0
		if tier == KindReclaimFromTop {
			cursor = r.table.Highest()
		}
		for _, e := range r.staging {
			if e.req.kind != tier {
				continue
			}
			cursor = r.table.nextFree(cursor)
			if cursor > r.maxNumber {
				for _, n := range placed {
					r.table.clear(n)
				}
				return regerr.New(regerr.OutOfMemory, op, e.name,
					fmt.Sprintf("no free instrument number up to %d", r.maxNumber))
			}
			r.table.install(cursor, &Slot{Name: e.name, Body: e.body})
			placed = append(placed, cursor)
		}
	}

	r.assigned = true
	for _, e := range r.staging {
		if e.req.kind == KindExplicit {
			r.publish(e, e.req.number)
		}
	}
	i := 0
	for _, tier := range r.order.tiers() {
		for _, e := range r.staging {
			if e.req.kind == tier {
				r.publish(e, placed[i])
				i++
			}
		}
	}
	r.staging = nil
	return nil
}

// publish records n as the final number of e.
func (r *Registry) publish(e *entry, n int) {
	e.number = n
	r.log.Debug("instr uses instrument number", "name", e.name, "number", n)
}

// Assigned reports whether AssignNumbers has run.
func (r *Registry) Assigned() bool {
	return r.assigned
}

// Table returns the instrument-number table.
func (r *Registry) Table() *Table {
	return r.table
}

// Len returns the number of named instruments.
func (r *Registry) Len() int {
	return r.names.Len()
}

// Assignments returns every named instrument in ascending number order.
// Before AssignNumbers only explicit instruments appear.
func (r *Registry) Assignments() []Assignment {
	out := make([]Assignment, 0, r.names.Len())
	r.table.Each(func(n int, s *Slot) bool {
		if s.Name == "" {
			return true
		}
		if e, ok := r.names.Lookup(s.Name); ok {
			out = append(out, Assignment{Name: s.Name, Number: n, Request: e.req})
		}
		return true
	})
	return out
}

// Reset drops every instrument and returns the registry to its initial
// state, ready for a new compilation.
func (r *Registry) Reset() {
	r.names.Reset()
	r.staging = nil
	r.table.reset()
	r.assigned = false
}
