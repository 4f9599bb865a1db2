// Package manifest compiles CUE orchestra manifests.
//
// A manifest declares what an orchestra compiler would otherwise register
// while reading orchestra code:
//
//	instr: {
//		lead: {}
//		pad: assign: "top"
//		bass: number: 5
//	}
//	numbered: [1, 2]
//	opcode: Chorus: {}
//	channel: {
//		amp: {type: "control", dir: "in", meta: {kind: "lin", default: 0.5, min: 0, max: 1}}
//		left: {type: "audio", dir: "out"}
//	}
//	global: gbuf: 64
//
// Instruments are registered in declaration order. Apply replays the
// manifest against an engine and assigns instrument numbers.
package manifest

import (
	"cuelang.org/go/cue/token"

	"github.com/roach88/orcsym/internal/channel"
	"github.com/roach88/orcsym/internal/instr"
)

// Orchestra is a compiled manifest.
type Orchestra struct {
	Instruments []Instrument
	Numbered    []Numbered
	Opcodes     []Opcode
	Channels    []Channel
	Globals     []Global
}

// Instrument is a named instrument declaration.
type Instrument struct {
	Name    string
	Request instr.Request
	Body    string
	Pos     token.Pos
}

// Numbered is an unnamed instrument declared by number.
type Numbered struct {
	Number int
	Pos    token.Pos
}

// Opcode is a user-defined opcode declaration.
type Opcode struct {
	Name string
	Body string
	Pos  token.Pos
}

// Channel is a channel declaration.
type Channel struct {
	Name string
	Type channel.Type
	Meta *channel.Metadata
	Pos  token.Pos
}

// Global is a global variable declaration.
type Global struct {
	Name string
	Size int
	Pos  token.Pos
}
