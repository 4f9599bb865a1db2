package channel

import "strings"

// Type is a channel type bit field.
type Type int

const (
	// Control channels hold one sample.
	Control Type = 1
	// Audio channels hold one audio block of samples.
	Audio Type = 2
	// String channels hold a string of up to the configured maximum length.
	String Type = 4

	// KindMask selects the data kind bits.
	KindMask Type = 0x0F

	// Input marks a channel the host writes and the engine reads.
	Input Type = 0x10
	// Output marks a channel the engine writes and the host reads.
	Output Type = 0x20

	// DirMask selects the direction bits.
	DirMask = Input | Output
)

// Kind returns the data kind bits of t.
func (t Type) Kind() Type {
	return t & KindMask
}

// Dir returns the direction bits of t.
func (t Type) Dir() Type {
	return t & DirMask
}

// Valid reports whether t has exactly one data kind, at least one
// direction, and no other bits.
func (t Type) Valid() bool {
	if t&^(KindMask|DirMask) != 0 || t.Dir() == 0 {
		return false
	}
	switch t.Kind() {
	case Control, Audio, String:
		return true
	}
	return false
}

// String renders t as e.g. "control|input|output".
func (t Type) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	switch t.Kind() {
	case Control:
		parts = append(parts, "control")
	case Audio:
		parts = append(parts, "audio")
	case String:
		parts = append(parts, "string")
	case 0:
	default:
		parts = append(parts, "kind?")
	}
	if t&Input != 0 {
		parts = append(parts, "input")
	}
	if t&Output != 0 {
		parts = append(parts, "output")
	}
	return strings.Join(parts, "|")
}

// ParseKind maps "control", "audio" or "string" to its Type bit.
func ParseKind(s string) (Type, bool) {
	switch s {
	case "control":
		return Control, true
	case "audio":
		return Audio, true
	case "string":
		return String, true
	}
	return 0, false
}

// ParseDir maps "in", "out" or "inout" to direction bits.
func ParseDir(s string) (Type, bool) {
	switch s {
	case "in", "input":
		return Input, true
	case "out", "output":
		return Output, true
	case "inout", "":
		return Input | Output, true
	}
	return 0, false
}

// MetaKind is the interpretation of a control channel's value range.
type MetaKind int

const (
	// MetaNone clears metadata.
	MetaNone MetaKind = iota
	// MetaInt is an integer range.
	MetaInt
	// MetaLin is a linear range.
	MetaLin
	// MetaExp is an exponential range; min and max share a sign.
	MetaExp
)

// String returns the metadata kind name.
func (k MetaKind) String() string {
	switch k {
	case MetaNone:
		return "none"
	case MetaInt:
		return "int"
	case MetaLin:
		return "lin"
	case MetaExp:
		return "exp"
	}
	return "unknown"
}

// ParseMetaKind maps "int", "lin", "exp" or "none" to a MetaKind.
func ParseMetaKind(s string) (MetaKind, bool) {
	switch s {
	case "none", "":
		return MetaNone, true
	case "int":
		return MetaInt, true
	case "lin":
		return MetaLin, true
	case "exp":
		return MetaExp, true
	}
	return MetaNone, false
}

// Metadata describes the expected range of a control channel.
type Metadata struct {
	Kind    MetaKind
	Default float64
	Min     float64
	Max     float64
}

// ListEntry is one row of a channel list snapshot.
type ListEntry struct {
	Name string
	Type Type
}
