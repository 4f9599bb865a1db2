package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/orcsym/internal/engine"
)

// createTestStore opens a fresh database under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSnapshot(engineID string, seq int64) engine.Snapshot {
	return engine.Snapshot{
		EngineID: engineID,
		Seq:      seq,
		Instruments: []engine.InstrumentRow{
			{Number: 1, Request: engine.RequestNumbered},
			{Number: 2, Name: "lead", Request: "ascending"},
			{Number: 5, Name: "bass", Request: "explicit(5)"},
			{Number: 6, Name: "pad", Request: "top"},
		},
		Channels: []engine.ChannelRow{
			{Name: "amp", Type: "control|input", Meta: &engine.MetaRow{Kind: "lin", Default: 0.5, Max: 1}},
			{Name: "left", Type: "audio|output"},
		},
		Globals: []engine.GlobalRow{
			{Name: "#CLEANUP", Size: 1},
			{Name: "_RTAUDIO", Size: 21},
		},
		Plugins: []engine.PluginRow{
			{Name: "filters", Library: "libfilters.so", Path: "/p/libfilters.so", State: "loaded", Opcodes: []string{"lpf", "hpf"}},
			{Name: "broken", Library: "libbroken.so", Path: "/p/libbroken.so", State: "failed", Opcodes: []string{"crash"}, Error: "boom"},
			{Name: "idle", Library: "libidle.so", Path: "/p/libidle.so", State: "not-loaded", Opcodes: []string{}},
		},
	}
}
