package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orcsym/internal/budget"
	"github.com/roach88/orcsym/internal/regerr"
)

func newTestBus() *Bus {
	return NewBus(16, 32)
}

func TestGetOrCreate_BufferSizes(t *testing.T) {
	b := newTestBus()

	ctl, err := b.GetOrCreate("amp", Control|Input)
	require.NoError(t, err)
	assert.Len(t, ctl.Samples(), 1)
	assert.Nil(t, ctl.Text())

	aud, err := b.GetOrCreate("left", Audio|Output)
	require.NoError(t, err)
	assert.Len(t, aud.Samples(), 16)

	str, err := b.GetOrCreate("title", String|Input)
	require.NoError(t, err)
	assert.Len(t, str.Text(), 32)
	assert.Nil(t, str.Samples())
}

func TestGetOrCreate_DirectionBitsAccumulate(t *testing.T) {
	b := newTestBus()

	in, err := b.GetOrCreate("A", Control|Input)
	require.NoError(t, err)
	out, err := b.GetOrCreate("A", Control|Output)
	require.NoError(t, err)

	assert.Same(t, in, out)
	assert.Same(t, &in.Samples()[0], &out.Samples()[0], "buffer address must be stable")
	assert.Equal(t, Control|Input|Output, out.Type())
	assert.Equal(t, 1, b.Len())
}

func TestGetOrCreate_KindConflict(t *testing.T) {
	b := newTestBus()
	_, err := b.GetOrCreate("A", Control|Input)
	require.NoError(t, err)

	ch, err := b.GetOrCreate("A", Audio|Input)
	require.Error(t, err)
	assert.Nil(t, ch)
	assert.True(t, regerr.IsConflict(err))

	existing, ok := ExistingType(err)
	require.True(t, ok)
	assert.Equal(t, Control, existing.Kind())
	assert.Equal(t, Control|Input, existing, "conflict must not mutate the channel")
}

func TestGetOrCreate_Probe(t *testing.T) {
	b := newTestBus()
	_, err := b.GetOrCreate("freq", Control|Output)
	require.NoError(t, err)

	_, err = b.GetOrCreate("freq", 0)
	existing, ok := ExistingType(err)
	require.True(t, ok)
	assert.Equal(t, Control|Output, existing)

	_, err = b.GetOrCreate("missing", 0)
	require.Error(t, err)
	assert.True(t, regerr.IsNotFound(err), "missing channel must be distinguishable from a conflict")
	_, isConflict := ExistingType(err)
	assert.False(t, isConflict)
	assert.Equal(t, 1, b.Len(), "probing must not create channels")

	typ, err := b.Probe("freq")
	require.NoError(t, err)
	assert.Equal(t, Control|Output, typ)
}

func TestGetOrCreate_InvalidType(t *testing.T) {
	b := newTestBus()
	for _, typ := range []Type{
		Control,                 // no direction
		Input,                   // no kind
		Control | Audio | Input, // two kinds
		Control | Input | 0x40,  // stray bit
	} {
		_, err := b.GetOrCreate("x", typ)
		assert.True(t, regerr.Is(err, regerr.InvalidArgument), "type %s", typ)
	}
	assert.Equal(t, 0, b.Len())
}

func TestGetOrCreate_InvalidName(t *testing.T) {
	b := newTestBus()
	for _, name := range []string{"", "1abc", "_x", "a b", "a-b"} {
		_, err := b.GetOrCreate(name, Control|Input)
		assert.True(t, regerr.Is(err, regerr.InvalidName), "name %q", name)
	}
	for _, name := range []string{"a", "Mix.L", "send_2", "x.y.z"} {
		_, err := b.GetOrCreate(name, Control|Input)
		assert.NoError(t, err, "name %q", name)
	}
}

func TestGetOrCreate_OutOfMemory(t *testing.T) {
	bud := budget.New(100)
	b := NewBus(16, 32, WithBudget(bud))

	_, err := b.GetOrCreate("a", Audio|Input) // 1 + 128 bytes
	require.Error(t, err)
	assert.True(t, regerr.IsOutOfMemory(err))
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, int64(0), bud.Used())

	_, err = b.GetOrCreate("k", Control|Input)
	require.NoError(t, err)
	assert.Equal(t, int64(9), bud.Used())
}

func TestGetOrCreate_ExistingDoesNotAllocate(t *testing.T) {
	b := newTestBus()
	_, err := b.GetOrCreate("kpitch", Control|Input)
	require.NoError(t, err)

	allocs := testing.AllocsPerRun(100, func() {
		_, _ = b.GetOrCreate("kpitch", Control|Input)
	})
	assert.Zero(t, allocs)
}

func TestList_SortedSnapshot(t *testing.T) {
	b := newTestBus()
	for _, n := range []string{"zeta", "alpha", "Mid", "beta"} {
		_, err := b.GetOrCreate(n, Control|Input)
		require.NoError(t, err)
	}
	_, err := b.GetOrCreate("beta", Control|Output)
	require.NoError(t, err)

	list := b.List()
	require.Len(t, list, 4)
	assert.Equal(t, []ListEntry{
		{Name: "Mid", Type: Control | Input},
		{Name: "alpha", Type: Control | Input},
		{Name: "beta", Type: Control | Input | Output},
		{Name: "zeta", Type: Control | Input},
	}, list)

	// The snapshot is owned by the caller.
	list[0].Name = "changed"
	assert.Equal(t, "Mid", b.List()[0].Name)
}

func TestStringChannel(t *testing.T) {
	b := NewBus(4, 8)
	ch, err := b.GetOrCreate("msg", String|Input)
	require.NoError(t, err)

	assert.True(t, ch.SetString("hello"))
	assert.Equal(t, "hello", ch.String())

	assert.True(t, ch.SetString("much too long"))
	assert.Equal(t, "much to", ch.String(), "truncated to leave room for the terminator")

	assert.True(t, ch.SetString("hi"))
	assert.Equal(t, "hi", ch.String())

	ctl, err := b.GetOrCreate("k", Control|Input)
	require.NoError(t, err)
	assert.False(t, ctl.SetString("x"))
	assert.Equal(t, "", ctl.String())
}

func TestReset(t *testing.T) {
	bud := budget.New(0)
	b := NewBus(4, 8, WithBudget(bud))
	_, err := b.GetOrCreate("a", Audio|Input)
	require.NoError(t, err)
	_, err = b.GetOrCreate("s", String|Output)
	require.NoError(t, err)

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Empty(t, b.List())
	assert.Equal(t, int64(0), bud.Used())
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "control|input|output", (Control | Input | Output).String())
	assert.Equal(t, "audio|output", (Audio | Output).String())
	assert.Equal(t, "none", Type(0).String())
}
