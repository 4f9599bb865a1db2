package manifest

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/orcsym/internal/channel"
	"github.com/roach88/orcsym/internal/instr"
)

// schema constrains a manifest. Definitions are closed, so unknown fields
// are rejected.
const schema = `
#Orchestra: {
	instr?: [string]: {
		number?: int & >=1
		assign?: "top" | "ascending"
		body?:   string
	}
	numbered?: [...int & >=1]
	opcode?: [string]: {
		body?: string
	}
	channel?: [string]: {
		type: "control" | "audio" | "string"
		dir?: "in" | "out" | "inout"
		meta?: {
			kind:    "int" | "lin" | "exp"
			default: number
			min:     number
			max:     number
		}
	}
	global?: [string]: int & >=1
}
`

// CompileError is a manifest error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying registry error, if any.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &CompileError{Field: "cue", Message: first.Error()}
}

// LoadFile compiles the manifest at path. A directory is loaded as a CUE
// package instance.
func LoadFile(path string) (*Orchestra, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	ctx := cuecontext.New()
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("no CUE instances in %s", path)
		}
		if err := instances[0].Err; err != nil {
			return nil, formatCUEError(err)
		}
		return Compile(ctx.BuildInstance(instances[0]))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Compile(ctx.CompileBytes(data, cue.Filename(path)))
}

// LoadString compiles manifest source. Used by tests and tools.
func LoadString(src string) (*Orchestra, error) {
	return Compile(cuecontext.New().CompileString(src, cue.Filename("manifest.cue")))
}

// Compile checks v against the manifest schema and extracts its
// declarations.
func Compile(v cue.Value) (*Orchestra, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := v.Context().CompileString(schema).LookupPath(cue.ParsePath("#Orchestra"))
	if err := def.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	o := &Orchestra{}
	var err error
	if o.Instruments, err = compileInstruments(v); err != nil {
		return nil, err
	}
	if o.Numbered, err = compileNumbered(v); err != nil {
		return nil, err
	}
	if o.Opcodes, err = compileOpcodes(v); err != nil {
		return nil, err
	}
	if o.Channels, err = compileChannels(v); err != nil {
		return nil, err
	}
	if o.Globals, err = compileGlobals(v); err != nil {
		return nil, err
	}
	return o, nil
}

// eachField calls fn for every regular field of v.name in declaration order.
func eachField(v cue.Value, name string, fn func(label string, fv cue.Value) error) error {
	section := v.LookupPath(cue.ParsePath(name))
	if !section.Exists() {
		return nil
	}
	iter, err := section.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Selector().Unquoted(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func compileInstruments(v cue.Value) ([]Instrument, error) {
	var out []Instrument
	err := eachField(v, "instr", func(name string, fv cue.Value) error {
		in := Instrument{Name: name, Request: instr.Ascending(), Pos: fv.Pos()}

		numVal := fv.LookupPath(cue.ParsePath("number"))
		assign, err := optionalString(fv, "assign")
		if err != nil {
			return err
		}
		switch {
		case numVal.Exists() && assign != "":
			return &CompileError{Field: "instr." + name, Message: "number and assign are mutually exclusive", Pos: fv.Pos()}
		case numVal.Exists():
			n, err := numVal.Int64()
			if err != nil {
				return formatCUEError(err)
			}
			in.Request = instr.Explicit(int(n))
		case assign == "top":
			in.Request = instr.ReclaimFromTop()
		}

		if in.Body, err = optionalString(fv, "body"); err != nil {
			return err
		}
		out = append(out, in)
		return nil
	})
	return out, err
}

func compileNumbered(v cue.Value) ([]Numbered, error) {
	list := v.LookupPath(cue.ParsePath("numbered"))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []Numbered
	for iter.Next() {
		n, err := iter.Value().Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, Numbered{Number: int(n), Pos: iter.Value().Pos()})
	}
	return out, nil
}

func compileOpcodes(v cue.Value) ([]Opcode, error) {
	var out []Opcode
	err := eachField(v, "opcode", func(name string, fv cue.Value) error {
		body, err := optionalString(fv, "body")
		if err != nil {
			return err
		}
		out = append(out, Opcode{Name: name, Body: body, Pos: fv.Pos()})
		return nil
	})
	return out, err
}

type metaFields struct {
	Kind    string  `json:"kind"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

func compileChannels(v cue.Value) ([]Channel, error) {
	var out []Channel
	err := eachField(v, "channel", func(name string, fv cue.Value) error {
		field := "channel." + name
		kindName, err := optionalString(fv, "type")
		if err != nil {
			return err
		}
		dirName, err := optionalString(fv, "dir")
		if err != nil {
			return err
		}
		kind, ok := channel.ParseKind(kindName)
		if !ok {
			return &CompileError{Field: field, Message: fmt.Sprintf("unknown channel type %q", kindName), Pos: fv.Pos()}
		}
		dir, ok := channel.ParseDir(dirName)
		if !ok {
			return &CompileError{Field: field, Message: fmt.Sprintf("unknown channel direction %q", dirName), Pos: fv.Pos()}
		}
		ch := Channel{Name: name, Type: kind | dir, Pos: fv.Pos()}

		if mv := fv.LookupPath(cue.ParsePath("meta")); mv.Exists() {
			if kind != channel.Control {
				return &CompileError{Field: field, Message: "meta is only valid on control channels", Pos: mv.Pos()}
			}
			var m metaFields
			if err := mv.Decode(&m); err != nil {
				return formatCUEError(err)
			}
			mk, _ := channel.ParseMetaKind(m.Kind)
			ch.Meta = &channel.Metadata{Kind: mk, Default: m.Default, Min: m.Min, Max: m.Max}
		}
		out = append(out, ch)
		return nil
	})
	return out, err
}

func compileGlobals(v cue.Value) ([]Global, error) {
	var out []Global
	err := eachField(v, "global", func(name string, fv cue.Value) error {
		n, err := fv.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, Global{Name: name, Size: int(n), Pos: fv.Pos()})
		return nil
	})
	return out, err
}
