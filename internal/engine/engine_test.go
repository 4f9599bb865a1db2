package engine

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orcsym/internal/channel"
	"github.com/roach88/orcsym/internal/config"
	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/plugin"
	"github.com/roach88/orcsym/internal/regerr"
	"github.com/roach88/orcsym/internal/resolve"
	"github.com/roach88/orcsym/internal/testutil"
)

const bootstrapBytes = 21 + 16 + 1

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.LibraryPattern = "lib%s.so"
	cfg.CaseInsensitiveFiles = false
	return cfg
}

func newEngine(t *testing.T, cfg config.Config, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{
		WithIDGenerator(NewFixedGenerator("engine-1")),
		WithClock(func() time.Time { return fixedTime }),
	}, opts...)
	e, err := New(cfg, opts...)
	require.NoError(t, err)
	return e
}

func TestNew_BootstrapGlobals(t *testing.T) {
	e := newEngine(t, testConfig())

	rt := e.Globals().Query(GlobalRTAudio)
	require.Len(t, rt, 21)
	assert.Equal(t, "PortAudio\x00", string(rt[:10]))

	clock := e.Globals().Query(GlobalRTClock)
	require.Len(t, clock, 16)
	assert.Equal(t, uint64(fixedTime.UnixNano()), binary.LittleEndian.Uint64(clock))

	cleanup := e.Globals().Query(GlobalCleanup)
	require.Len(t, cleanup, 1)
	assert.Zero(t, cleanup[0])

	assert.Equal(t, int64(bootstrapBytes), e.Budget().Used())
	assert.Equal(t, "engine-1", e.ID())
}

func TestNew_DefaultIDIsUUIDv7(t *testing.T) {
	e, err := New(testConfig())
	require.NoError(t, err)

	parsed, err := uuid.Parse(e.ID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.BlockSize = 0
	_, err := New(cfg)
	assert.ErrorContains(t, err, "block_size")
}

func TestNew_MemoryLimitTooSmallForBootstrap(t *testing.T) {
	cfg := testConfig()
	cfg.MemoryLimit = 30
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, regerr.IsOutOfMemory(err))
}

func TestEngine_ComponentsAreWired(t *testing.T) {
	cfg := testConfig()
	cfg.BlockSize = 64
	cfg.InstrumentGrowth = 8
	cfg.AssignmentOrder = "ascending-first"
	e := newEngine(t, cfg)

	ch, err := e.Channels().GetOrCreate("left", channel.Audio|channel.Output)
	require.NoError(t, err)
	assert.Len(t, ch.Samples(), 64)

	reg := e.Instruments()
	assert.Equal(t, 8, reg.Table().Max())
	require.NoError(t, reg.DefineNumbered(1, nil))
	require.NoError(t, reg.Register("top", nil, instr.ReclaimFromTop()))
	require.NoError(t, reg.Register("low", nil, instr.Ascending()))
	require.NoError(t, reg.Register("low2", nil, instr.Ascending()))
	require.NoError(t, reg.AssignNumbers())
	assert.Equal(t, 4, reg.Lookup("top"), "ascending-first from config")

	n, err := e.Resolver().InstrumentAtInit(resolve.Name("low"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	interned, ok := e.Pool().Lookup("top")
	require.True(t, ok)
	assert.Equal(t, "top", interned)
}

func TestEngine_MemoryLimitAppliesToChannels(t *testing.T) {
	cfg := testConfig()
	cfg.MemoryLimit = bootstrapBytes + 11
	e := newEngine(t, cfg)

	_, err := e.Channels().GetOrCreate("amp", channel.Control|channel.Input)
	require.NoError(t, err)
	_, err = e.Channels().GetOrCreate("amp2", channel.Control|channel.Input)
	assert.True(t, regerr.IsOutOfMemory(err))
	assert.Equal(t, 1, e.Channels().Len(), "failed creation leaves no channel")

	err = e.Globals().Create("g", 1)
	assert.True(t, regerr.IsOutOfMemory(err))
}

func TestEngine_MaxInstrumentAppliesToRegistry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxInstrument = 8
	e := newEngine(t, cfg)
	assert.Equal(t, 8, e.Instruments().MaxNumber())

	err := e.Instruments().DefineNumbered(9, "too high")
	assert.Equal(t, regerr.InvalidArgument, regerr.CodeOf(err))
	require.NoError(t, e.Instruments().DefineNumbered(8, "last"))
}

func TestEngine_FindOpcodeWithoutPlugins(t *testing.T) {
	e := newEngine(t, testConfig())
	require.NoError(t, e.Opcodes().AddOpcode(opcode.Def{Name: "oscil"}))

	i, err := e.FindOpcode("oscil")
	require.NoError(t, err)
	assert.Equal(t, 1, i)
	assert.Nil(t, e.Plugins())
	assert.NoError(t, e.LoadAllPlugins())
}

// pluginDir writes a descriptor and empty library files.
func pluginDir(t *testing.T, descriptor string, libs ...string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, plugin.DescriptorName), []byte(descriptor), 0o644))
	for _, lib := range libs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, lib), nil, 0o755))
	}
	return dir
}

func withFakeLoader(setup func(*testutil.FakeLoader)) (Option, **testutil.FakeLoader) {
	var fl *testutil.FakeLoader
	return WithLoaderFactory(func(t *opcode.Table) plugin.Loader {
		fl = testutil.NewFakeLoader(t)
		setup(fl)
		return fl
	}), &fl
}

func TestEngine_DeferredPlugins(t *testing.T) {
	cfg := testConfig()
	cfg.PluginDir = pluginDir(t, "libfoo: opA opB\nlibbar: opC\n", "libfoo.so", "libbar.so", "libeager.so")
	opt, flp := withFakeLoader(func(fl *testutil.FakeLoader) {
		fl.Provide("libfoo.so", "opA", "opB").Provide("libbar.so", "opC").Provide("libeager.so", "opE")
	})
	e := newEngine(t, cfg, opt)
	fl := *flp

	require.NotNil(t, e.Plugins())
	assert.Equal(t, 1, fl.LoadCount("libeager.so"), "untracked libraries load eagerly")
	assert.Equal(t, 0, fl.LoadCount("libfoo.so"))
	assert.NotZero(t, e.Opcodes().Find("opE"))

	i, err := e.FindOpcode("opA")
	require.NoError(t, err)
	assert.NotZero(t, i)
	_, err = e.FindOpcode("opB")
	require.NoError(t, err)
	assert.Equal(t, 1, fl.LoadCount("libfoo.so"))
	assert.Equal(t, 0, fl.LoadCount("libbar.so"))

	snap := e.Snapshot()
	require.Len(t, snap.Plugins, 2)
	assert.Equal(t, "loaded", snap.Plugins[0].State)
	assert.Equal(t, "not-loaded", snap.Plugins[1].State)

	require.NoError(t, e.LoadAllPlugins())
	assert.Nil(t, e.Plugins())
	assert.Equal(t, 1, fl.LoadCount("libbar.so"))

	snap = e.Snapshot()
	require.Len(t, snap.Plugins, 2)
	assert.Equal(t, "loaded", snap.Plugins[1].State)
}

func TestEngine_FatalPluginFailure(t *testing.T) {
	cfg := testConfig()
	cfg.PluginDir = pluginDir(t, "libfoo: opA\n", "libfoo.so")
	opt, _ := withFakeLoader(func(fl *testutil.FakeLoader) {
		fl.Fail("libfoo.so", errors.New("wrong ELF class"))
	})
	e := newEngine(t, cfg, opt)

	_, err := e.FindOpcode("opA")
	assert.Equal(t, regerr.Fatal, regerr.StatusOf(err))
	assert.Equal(t, "failed", e.Snapshot().Plugins[0].State)
}

func TestNew_BadDescriptor(t *testing.T) {
	cfg := testConfig()
	cfg.PluginDir = pluginDir(t, "opA libfoo:\n")
	_, err := New(cfg, WithLoader(testutil.NewFakeLoader(nil)))
	require.Error(t, err)
	assert.True(t, plugin.IsParseError(err))
}

func TestEngine_Reset(t *testing.T) {
	cfg := testConfig()
	cfg.PluginDir = pluginDir(t, "libfoo: opA\n", "libfoo.so")
	opt, flp := withFakeLoader(func(fl *testutil.FakeLoader) {
		fl.Provide("libfoo.so", "opA")
	})
	e := newEngine(t, cfg, opt)

	require.NoError(t, e.Instruments().Register("lead", nil, instr.Ascending()))
	require.NoError(t, e.Instruments().AssignNumbers())
	require.NoError(t, e.UserOpcodes().Define("Chorus", 2))
	require.NoError(t, e.Globals().Create("gbuf", 64))
	_, err := e.Channels().GetOrCreate("amp", channel.Control|channel.Input)
	require.NoError(t, err)
	_, err = e.FindOpcode("opA")
	require.NoError(t, err)

	require.NoError(t, e.Reset())

	assert.Equal(t, "engine-1", e.ID())
	assert.Equal(t, 0, e.Instruments().Len())
	assert.False(t, e.Instruments().Assigned())
	assert.Equal(t, 0, e.UserOpcodes().Len())
	assert.Nil(t, e.Globals().Query("gbuf"))
	assert.Equal(t, 0, e.Channels().Len())
	assert.Equal(t, 0, e.Opcodes().Len())
	assert.Equal(t, int64(bootstrapBytes), e.Budget().Used())
	assert.Equal(t, []string{GlobalCleanup, GlobalRTAudio, GlobalRTClock}, e.Globals().Names())

	// the plugin directory is scanned again and opA loads on demand
	require.NotNil(t, e.Plugins())
	i, err := e.FindOpcode("opA")
	require.NoError(t, err)
	assert.NotZero(t, i)
	assert.Equal(t, 2, (*flp).LoadCount("libfoo.so"))

	require.NoError(t, e.Instruments().Register("lead", nil, instr.Ascending()))
	require.NoError(t, e.Instruments().AssignNumbers())
	assert.Equal(t, 1, e.Instruments().Lookup("lead"))
}

func TestEngine_Snapshot(t *testing.T) {
	e := newEngine(t, testConfig())
	reg := e.Instruments()
	require.NoError(t, reg.DefineNumbered(1, nil))
	require.NoError(t, reg.Register("pinned", nil, instr.Explicit(3)))
	require.NoError(t, reg.Register("lead", nil, instr.Ascending()))
	require.NoError(t, reg.AssignNumbers())
	require.NoError(t, reg.DefineNumbered(4, nil))
	require.NoError(t, e.UserOpcodes().Define("Chorus", 4))

	_, err := e.Channels().GetOrCreate("amp", channel.Control|channel.Input)
	require.NoError(t, err)
	require.NoError(t, e.Channels().SetControlMetadata("amp", channel.MetaLin, 0.5, 0, 1))
	_, err = e.Channels().GetOrCreate("left", channel.Audio|channel.Output)
	require.NoError(t, err)

	snap := e.Snapshot()
	assert.Equal(t, "engine-1", snap.EngineID)
	assert.Equal(t, int64(1), snap.Seq)
	assert.Equal(t, []InstrumentRow{
		{Number: 1, Request: RequestNumbered},
		{Number: 2, Name: "lead", Request: "ascending"},
		{Number: 3, Name: "pinned", Request: "explicit(3)"},
		{Number: 4, Name: "Chorus", Request: RequestOpcode},
	}, snap.Instruments)

	require.Len(t, snap.Channels, 2)
	assert.Equal(t, "amp", snap.Channels[0].Name)
	assert.Equal(t, "control|input", snap.Channels[0].Type)
	assert.Equal(t, &MetaRow{Kind: "lin", Default: 0.5, Min: 0, Max: 1}, snap.Channels[0].Meta)
	assert.Nil(t, snap.Channels[1].Meta)

	assert.Equal(t, []GlobalRow{
		{Name: GlobalCleanup, Size: 1},
		{Name: GlobalRTAudio, Size: 21},
		{Name: GlobalRTClock, Size: 16},
	}, snap.Globals)
	assert.Empty(t, snap.Plugins)

	assert.Equal(t, int64(2), e.Snapshot().Seq)
}

func TestEngine_ResetRewritesClockGlobal(t *testing.T) {
	clock := testutil.NewStepClock(fixedTime, time.Second)
	e := newEngine(t, testConfig(), WithClock(clock.Now))

	stamp := func() int64 {
		return int64(binary.LittleEndian.Uint64(e.Globals().Query(GlobalRTClock)))
	}
	assert.Equal(t, fixedTime.UnixNano(), stamp())

	require.NoError(t, e.Reset())
	assert.Equal(t, fixedTime.Add(time.Second).UnixNano(), stamp())
	assert.Equal(t, 2, clock.Calls())
}
