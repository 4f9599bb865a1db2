// Package resolve turns opcode arguments that name an instrument, by name
// or by number, into instrument numbers.
//
// Failures at initialization time carry regerr.InitError and abort only the
// setup operation that triggered them. Failures at performance time carry
// regerr.PerfError; callers report them per event and keep the audio
// callback running.
package resolve

import (
	"fmt"
	"math"
	"strconv"

	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/regerr"
)

// Ref is an instrument reference as it appears in an opcode argument.
type Ref struct {
	name    string
	number  float64
	numeric bool
}

// Name returns a symbolic reference.
func Name(s string) Ref { return Ref{name: s} }

// Number returns a numeric reference. The fractional part is ignored.
func Number(f float64) Ref { return Ref{number: f, numeric: true} }

// Numeric reports whether r is a numeric reference.
func (r Ref) Numeric() bool { return r.numeric }

// String renders the reference.
func (r Ref) String() string {
	if r.numeric {
		return strconv.FormatFloat(r.number, 'g', -1, 64)
	}
	return r.name
}

// Instruments is the view of the instrument registry the resolver needs.
type Instruments interface {
	Lookup(name string) int
	Table() *instr.Table
}

// Resolver resolves instrument and user-defined opcode references.
type Resolver struct {
	instruments Instruments
	udos        *UserOpcodes
}

// New creates a resolver. udos may be nil when no user-defined opcodes
// exist.
func New(instruments Instruments, udos *UserOpcodes) *Resolver {
	if udos == nil {
		udos = NewUserOpcodes()
	}
	return &Resolver{instruments: instruments, udos: udos}
}

// UserOpcodes returns the user-defined opcode table.
func (r *Resolver) UserOpcodes() *UserOpcodes {
	return r.udos
}

// numbered validates a numeric reference against the live table.
func (r *Resolver) numbered(f float64) (int, bool) {
	t := r.instruments.Table()
	f = math.Trunc(f)
	if !(f >= 1) || f > float64(t.Max()) {
		return clampInt(f), false
	}
	n := int(f)
	return n, t.Occupied(n)
}

func clampInt(f float64) int {
	switch {
	case math.IsNaN(f):
		return 0
	case f > math.MaxInt32:
		return math.MaxInt32
	case f < math.MinInt32:
		return math.MinInt32
	}
	return int(f)
}

// InstrumentAtInit resolves ref during initialization.
func (r *Resolver) InstrumentAtInit(ref Ref) (int, error) {
	const op = "resolve.InstrumentAtInit"
	if !ref.numeric {
		if n := r.instruments.Lookup(ref.name); n > 0 {
			return n, nil
		}
		return 0, regerr.New(regerr.InitError, op, ref.name, fmt.Sprintf("instr %s not found", ref.name))
	}
	n, ok := r.numbered(ref.number)
	if !ok {
		return 0, regerr.New(regerr.InitError, op, "", fmt.Sprintf("cannot find instrument %d", n))
	}
	return n, nil
}

// InstrumentAtPerformance resolves an instrument name during performance.
// It never allocates on success.
func (r *Resolver) InstrumentAtPerformance(name string) (int, error) {
	if n := r.instruments.Lookup(name); n > 0 {
		return n, nil
	}
	return 0, regerr.New(regerr.PerfError, "resolve.InstrumentAtPerformance", name, fmt.Sprintf("instr %s not found", name))
}

// InstrumentOrOpcode resolves ref as an instrument and then as a
// user-defined opcode. With forceOpcodeOnly the instrument namespace is
// skipped. Numeric references never match a user-defined opcode.
func (r *Resolver) InstrumentOrOpcode(ref Ref, forceOpcodeOnly bool) (int, error) {
	const op = "resolve.InstrumentOrOpcode"
	n := 0
	if !forceOpcodeOnly {
		if ref.numeric {
			var ok bool
			if n, ok = r.numbered(ref.number); !ok {
				return 0, regerr.New(regerr.InitError, op, "", fmt.Sprintf("cannot find instrument %d", n))
			}
		} else {
			n = r.instruments.Lookup(ref.name)
		}
	}
	if n == 0 && !ref.numeric {
		n = r.udos.Lookup(ref.name)
	}
	if n < 1 {
		return 0, regerr.New(regerr.InitError, op, ref.name, "cannot find the specified instrument or opcode")
	}
	return n, nil
}
