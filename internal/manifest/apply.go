package manifest

import (
	"errors"

	"cuelang.org/go/cue/token"

	"github.com/roach88/orcsym/internal/engine"
)

// Apply registers every declaration with e and assigns instrument numbers.
//
// Numbered instruments are installed first, then named instruments in
// declaration order. After assignment each user-defined opcode gets the
// next slot above the highest instrument. Globals and channels follow.
//
// On failure the engine is reset, so no partial orchestra survives.
func (o *Orchestra) Apply(e *engine.Engine) error {
	if err := o.apply(e); err != nil {
		if rerr := e.Reset(); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func applyError(field string, pos token.Pos, err error) error {
	return &CompileError{Field: field, Message: err.Error(), Pos: pos, Err: err}
}

func (o *Orchestra) apply(e *engine.Engine) error {
	reg := e.Instruments()
	for _, n := range o.Numbered {
		if err := reg.DefineNumbered(n.Number, n); err != nil {
			return applyError("numbered", n.Pos, err)
		}
	}
	for _, in := range o.Instruments {
		if err := reg.Register(in.Name, in, in.Request); err != nil {
			return applyError("instr."+in.Name, in.Pos, err)
		}
	}
	if err := reg.AssignNumbers(); err != nil {
		return applyError("instr", token.NoPos, err)
	}

	for _, op := range o.Opcodes {
		n := reg.Table().Highest() + 1
		if err := reg.DefineNumbered(n, op); err != nil {
			return applyError("opcode."+op.Name, op.Pos, err)
		}
		if err := e.UserOpcodes().Define(op.Name, n); err != nil {
			return applyError("opcode."+op.Name, op.Pos, err)
		}
	}

	for _, g := range o.Globals {
		if err := e.Globals().Create(g.Name, g.Size); err != nil {
			return applyError("global."+g.Name, g.Pos, err)
		}
	}

	bus := e.Channels()
	for _, ch := range o.Channels {
		if _, err := bus.GetOrCreate(ch.Name, ch.Type); err != nil {
			return applyError("channel."+ch.Name, ch.Pos, err)
		}
		if ch.Meta == nil {
			continue
		}
		m := ch.Meta
		if err := bus.SetControlMetadata(ch.Name, m.Kind, m.Default, m.Min, m.Max); err != nil {
			return applyError("channel."+ch.Name, ch.Pos, err)
		}
	}
	return nil
}
