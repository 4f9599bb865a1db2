package channel

import (
	"fmt"
	"math"
	"sort"

	"github.com/roach88/orcsym/internal/budget"
	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/regerr"
)

// sampleBytes is the size of one sample in the budget accounting.
const sampleBytes = 8

// Channel is one named endpoint on the bus.
type Channel struct {
	name    string
	typ     Type
	samples []float64 // control and audio data
	text    []byte    // string data, NUL terminated
	meta    *Metadata
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Type returns the channel type including accumulated direction bits.
func (c *Channel) Type() Type { return c.typ }

// Kind returns the data kind.
func (c *Channel) Kind() Type { return c.typ.Kind() }

// Samples returns the sample buffer of a control or audio channel, nil for
// string channels. The slice aliases the channel's storage.
func (c *Channel) Samples() []float64 { return c.samples }

// Text returns the raw byte buffer of a string channel, nil otherwise.
// The slice aliases the channel's storage.
func (c *Channel) Text() []byte { return c.text }

// SetString stores s into a string channel, truncating it to leave room
// for the terminator. It reports false for other kinds.
func (c *Channel) SetString(s string) bool {
	if c.text == nil {
		return false
	}
	n := copy(c.text[:len(c.text)-1], s)
	c.text[n] = 0
	for i := n + 1; i < len(c.text); i++ {
		c.text[i] = 0
	}
	return true
}

// String returns the current value of a string channel up to its
// terminator, or "" for other kinds.
func (c *Channel) String() string {
	for i, b := range c.text {
		if b == 0 {
			return string(c.text[:i])
		}
	}
	return string(c.text)
}

// bytes returns the budget charge of the channel.
func (c *Channel) bytes() int64 {
	return int64(len(c.name)) + int64(len(c.samples))*sampleBytes + int64(len(c.text))
}

// Bus is the channel registry of an engine instance.
//
// Bus is not safe for concurrent mutation.
type Bus struct {
	channels     namehash.Table[*Channel]
	blockSize    int
	stringMaxLen int
	budget       *budget.Budget
}

// Option configures a Bus.
type Option func(*Bus)

// WithBudget charges channel buffers to b.
func WithBudget(b *budget.Budget) Option {
	return func(bus *Bus) {
		if b != nil {
			bus.budget = b
		}
	}
}

// NewBus creates an empty bus. blockSize is the number of samples in an
// audio channel; stringMaxLen is the byte size of a string channel,
// terminator included.
func NewBus(blockSize, stringMaxLen int, opts ...Option) *Bus {
	if blockSize < 1 {
		blockSize = 1
	}
	if stringMaxLen < 1 {
		stringMaxLen = 1
	}
	b := &Bus{
		blockSize:    blockSize,
		stringMaxLen: stringMaxLen,
		budget:       budget.New(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ValidName reports whether name starts with a letter and continues with
// letters, digits, '_' or '.'.
func ValidName(name string) bool {
	if name == "" || !isAlpha(name[0]) {
		return false
	}
	for i := 1; i < len(name); i++ {
		c := name[i]
		if !isAlpha(c) && !isDigit(c) && c != '_' && c != '.' {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Find returns the named channel without creating it.
func (b *Bus) Find(name string) (*Channel, bool) {
	return b.channels.Lookup(name)
}

// GetOrCreate returns the named channel, creating it if needed.
//
// Errors:
//   - *ConflictError: the channel exists with another kind, or typ is zero
//     and the channel exists (probe)
//   - NotFound: typ is zero and the channel does not exist
//   - InvalidArgument: typ is not a valid type field
//   - InvalidName: name does not follow the channel name syntax
//   - OutOfMemory: the memory budget cannot cover the buffer
func (b *Bus) GetOrCreate(name string, typ Type) (*Channel, error) {
	const op = "channel.GetOrCreate"
	if ch, ok := b.channels.Lookup(name); ok {
		if (ch.typ^typ)&KindMask != 0 {
			return nil, &ConflictError{Name: ch.name, Existing: ch.typ}
		}
		ch.typ |= typ & DirMask
		return ch, nil
	}
	if typ == 0 {
		return nil, regerr.New(regerr.NotFound, op, name, "channel does not exist")
	}
	if !typ.Valid() {
		return nil, regerr.New(regerr.InvalidArgument, op, name, fmt.Sprintf("invalid channel type 0x%x", int(typ)))
	}
	if !ValidName(name) {
		return nil, regerr.New(regerr.InvalidName, op, name, "invalid channel name")
	}

	ch := &Channel{name: string([]byte(name)), typ: typ}
	switch typ.Kind() {
	case Control:
		ch.samples = make([]float64, 1)
	case Audio:
		ch.samples = make([]float64, b.blockSize)
	case String:
		ch.text = make([]byte, b.stringMaxLen)
	}
	if err := b.budget.Reserve(ch.bytes()); err != nil {
		return nil, regerr.Wrap(regerr.OutOfMemory, op, name, err)
	}
	b.channels.Insert(ch.name, ch)
	return ch, nil
}

// Probe returns the type of an existing channel without changing it.
func (b *Bus) Probe(name string) (Type, error) {
	_, err := b.GetOrCreate(name, 0)
	if t, ok := ExistingType(err); ok {
		return t, nil
	}
	return 0, err
}

// List returns a snapshot of every channel sorted by name. The snapshot is
// owned by the caller.
func (b *Bus) List() []ListEntry {
	list := make([]ListEntry, 0, b.channels.Len())
	b.channels.Each(func(name string, ch *Channel) bool {
		list = append(list, ListEntry{Name: name, Type: ch.typ})
		return true
	})
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Len returns the number of channels.
func (b *Bus) Len() int {
	return b.channels.Len()
}

// controlChannel finds name and checks that it is a control channel.
func (b *Bus) controlChannel(op, name string) (*Channel, error) {
	ch, ok := b.channels.Lookup(name)
	if !ok {
		return nil, regerr.New(regerr.NotFound, op, name, "channel does not exist")
	}
	if ch.typ.Kind() != Control {
		return nil, regerr.New(regerr.WrongType, op, name, "not a control channel")
	}
	return ch, nil
}

// SetControlMetadata assigns range metadata to a control channel.
// MetaNone clears existing metadata. MetaInt rounds the values first.
//
// Errors: NotFound, WrongType (not a control channel), InvalidArgument
// (unknown kind), InvalidRange (min >= max, default outside [min, max], or
// an exponential range whose bounds do not share a sign).
func (b *Bus) SetControlMetadata(name string, kind MetaKind, def, min, max float64) error {
	const op = "channel.SetControlMetadata"
	ch, err := b.controlChannel(op, name)
	if err != nil {
		return err
	}
	switch kind {
	case MetaNone:
		ch.meta = nil
		return nil
	case MetaInt:
		def, min, max = math.Round(def), math.Round(min), math.Round(max)
	case MetaLin, MetaExp:
	default:
		return regerr.New(regerr.InvalidArgument, op, name, fmt.Sprintf("unknown metadata kind %d", int(kind)))
	}
	if min >= max || def < min || def > max || (kind == MetaExp && min*max <= 0) {
		return regerr.New(regerr.InvalidRange, op, name,
			fmt.Sprintf("invalid %s range default=%g min=%g max=%g", kind, def, min, max))
	}
	ch.meta = &Metadata{Kind: kind, Default: def, Min: min, Max: max}
	return nil
}

// GetControlMetadata returns the metadata of a control channel. The bool
// is false when the channel is a control channel without metadata.
func (b *Bus) GetControlMetadata(name string) (Metadata, bool, error) {
	ch, err := b.controlChannel("channel.GetControlMetadata", name)
	if err != nil {
		return Metadata{}, false, err
	}
	if ch.meta == nil {
		return Metadata{}, false, nil
	}
	return *ch.meta, true, nil
}

// Reset destroys every channel and returns its bytes to the budget.
func (b *Bus) Reset() {
	b.channels.Each(func(_ string, ch *Channel) bool {
		b.budget.Release(ch.bytes())
		return true
	})
	b.channels.Reset()
}
