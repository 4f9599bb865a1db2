package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/orcsym/internal/opcode"
	"github.com/roach88/orcsym/internal/regerr"
	"github.com/roach88/orcsym/internal/testutil"
)

type fixture struct {
	reg    *Registry
	table  *opcode.Table
	loader *testutil.FakeLoader
}

func newFixture(t *testing.T, data string) *fixture {
	t.Helper()
	tbl := opcode.NewTable()
	l := testutil.NewFakeLoader(tbl).
		Provide("libfoo.so", "opA", "opB").
		Provide("libbar.so", "opC")
	r := parse(t, data, WithOpcodeTable(tbl), WithLoader(l))
	return &fixture{reg: r, table: tbl, loader: l}
}

func TestCheckFile(t *testing.T) {
	f := newFixture(t, "libfoo: opA opB libbar: opC")

	assert.True(t, f.reg.CheckFile("libfoo.so"))
	assert.True(t, f.reg.CheckFile("bar"))
	assert.False(t, f.reg.CheckFile("libbaz.so"))
	assert.False(t, f.reg.CheckFile(""))

	st, ok := f.reg.State("foo")
	require.True(t, ok)
	assert.Equal(t, NotLoaded, st)
}

func TestResolve_LoadsOnce(t *testing.T) {
	f := newFixture(t, "libfoo: opA opB libbar: opC")
	require.True(t, f.reg.CheckFile("libfoo.so"))

	i, err := f.reg.Resolve("opA")
	require.NoError(t, err)
	assert.NotZero(t, i)
	assert.Equal(t, f.table.Find("opA"), i)
	assert.Equal(t, 1, f.loader.LoadCount("libfoo.so"))

	_, err = f.reg.Resolve("opA")
	require.NoError(t, err)
	j, err := f.reg.Resolve("opB")
	require.NoError(t, err)
	assert.NotZero(t, j)
	assert.Equal(t, 1, f.loader.LoadCount("libfoo.so"), "no further load attempt")
	assert.Equal(t, 0, f.loader.LoadCount("libbar.so"))

	st, _ := f.reg.State("foo")
	assert.Equal(t, Loaded, st)
}

func TestResolve_UntrackedFileIsNotLoaded(t *testing.T) {
	f := newFixture(t, "libfoo: opA")

	i, err := f.reg.Resolve("opA")
	require.NoError(t, err)
	assert.Zero(t, i)
	assert.Empty(t, f.loader.Calls())
}

func TestResolve_Misses(t *testing.T) {
	f := newFixture(t, "libfoo: opA")
	require.NoError(t, f.table.AddOpcode(opcode.Def{Name: "oscil"}))

	i, err := f.reg.Resolve("oscil")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	i, err = f.reg.Resolve("nothere")
	require.NoError(t, err)
	assert.Zero(t, i)

	i, err = f.reg.Resolve("")
	require.NoError(t, err)
	assert.Zero(t, i)
}

func TestResolve_LoadedLibraryWithoutOpcode(t *testing.T) {
	f := newFixture(t, "libbar: opC opShadow")
	require.True(t, f.reg.CheckFile("libbar.so"))

	i, err := f.reg.Resolve("opShadow")
	require.NoError(t, err)
	assert.Zero(t, i, "library loaded but did not register the opcode")

	i, err = f.reg.Resolve("opC")
	require.NoError(t, err)
	assert.NotZero(t, i)
	assert.Equal(t, 1, f.loader.LoadCount("libbar.so"))
}

func TestResolve_BenignFailure(t *testing.T) {
	for _, cause := range []error{ErrLibraryNotFound, fs.ErrNotExist} {
		t.Run(cause.Error(), func(t *testing.T) {
			f := newFixture(t, "libfoo: opA opB")
			f.loader.Fail("libfoo.so", fmt.Errorf("open: %w", cause))
			require.True(t, f.reg.CheckFile("libfoo.so"))

			i, err := f.reg.Resolve("opA")
			assert.NoError(t, err)
			assert.Zero(t, i)

			i, err = f.reg.Resolve("opB")
			assert.NoError(t, err)
			assert.Zero(t, i)
			assert.Equal(t, 1, f.loader.LoadCount("libfoo.so"), "failed files are never retried")

			st, _ := f.reg.State("foo")
			assert.Equal(t, Failed, st)
		})
	}
}

func TestResolve_FatalFailure(t *testing.T) {
	f := newFixture(t, "libfoo: opA opB")
	boom := errors.New("undefined symbol")
	f.loader.Fail("libfoo.so", boom)
	require.True(t, f.reg.CheckFile("libfoo.so"))

	_, err := f.reg.Resolve("opA")
	require.Error(t, err)
	assert.Equal(t, regerr.LoadFailure, regerr.CodeOf(err))
	assert.Equal(t, regerr.Fatal, regerr.StatusOf(err))
	assert.ErrorIs(t, err, boom)

	_, err = f.reg.Resolve("opB")
	assert.Equal(t, regerr.LoadFailure, regerr.CodeOf(err))
	assert.Equal(t, 1, f.loader.LoadCount("libfoo.so"))

	files := f.reg.Files()
	assert.Equal(t, Failed, files[0].State)
	assert.Error(t, files[0].Err)
}

func TestResolve_OutOfMemoryFailure(t *testing.T) {
	f := newFixture(t, "libfoo: opA")
	f.loader.Fail("libfoo.so", regerr.New(regerr.OutOfMemory, "load", "", "no memory"))
	require.True(t, f.reg.CheckFile("libfoo.so"))

	_, err := f.reg.Resolve("opA")
	assert.True(t, regerr.IsOutOfMemory(err))
}

func TestLoadAll(t *testing.T) {
	f := newFixture(t, "libfoo: opA opB libbar: opC libskip: opD")
	require.True(t, f.reg.CheckFile("libfoo.so"))
	require.True(t, f.reg.CheckFile("libbar.so"))

	require.NoError(t, f.reg.LoadAll())
	assert.True(t, f.reg.Closed())
	assert.NotZero(t, f.table.Find("opA"))
	assert.NotZero(t, f.table.Find("opC"))
	assert.Equal(t, 0, f.loader.LoadCount("libskip.so"), "untracked files are not loaded")

	final := f.reg.Files()
	require.Len(t, final, 3)
	assert.Equal(t, Loaded, final[0].State)
	assert.Equal(t, Loaded, final[1].State)
	assert.Equal(t, Untracked, final[2].State)

	// closed registry only consults the live table
	assert.False(t, f.reg.CheckFile("libskip.so"))
	i, err := f.reg.Resolve("opD")
	require.NoError(t, err)
	assert.Zero(t, i)
	assert.NotZero(t, mustResolve(t, f.reg, "opA"))
	assert.Empty(t, f.reg.Opcodes())
	require.NoError(t, f.reg.LoadAll())
}

func TestLoadAll_SkipsAlreadyLoaded(t *testing.T) {
	f := newFixture(t, "libfoo: opA")
	require.True(t, f.reg.CheckFile("libfoo.so"))
	mustResolve(t, f.reg, "opA")

	require.NoError(t, f.reg.LoadAll())
	assert.Equal(t, 1, f.loader.LoadCount("libfoo.so"))
}

func TestLoadAll_AggregatesMostSevere(t *testing.T) {
	f := newFixture(t, "liba: x1 libb: x2 libc: x3 libd: x4")
	f.loader.
		Fail("liba.so", ErrLibraryNotFound).
		Fail("libb.so", errors.New("bad elf")).
		Fail("libc.so", regerr.New(regerr.OutOfMemory, "load", "", "no memory")).
		Provide("libd.so", "x4")
	for _, lib := range []string{"liba.so", "libb.so", "libc.so", "libd.so"} {
		require.True(t, f.reg.CheckFile(lib))
	}

	err := f.reg.LoadAll()
	assert.True(t, regerr.IsOutOfMemory(err))
	assert.Len(t, f.loader.Calls(), 4, "failures do not stop other libraries")
	assert.NotZero(t, f.table.Find("x4"))
}

func TestLoadAll_FatalOnly(t *testing.T) {
	f := newFixture(t, "liba: x1 libb: x2")
	f.loader.Fail("liba.so", ErrLibraryNotFound).Fail("libb.so", errors.New("bad elf"))
	require.True(t, f.reg.CheckFile("liba"))
	require.True(t, f.reg.CheckFile("libb"))

	err := f.reg.LoadAll()
	assert.Equal(t, regerr.LoadFailure, regerr.CodeOf(err))
}

func TestLoadAll_BenignOnly(t *testing.T) {
	f := newFixture(t, "liba: x1")
	f.loader.Fail("liba.so", ErrLibraryNotFound)
	require.True(t, f.reg.CheckFile("liba"))

	assert.NoError(t, f.reg.LoadAll())
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"libfoo.so", "libeager.so", "README.md", DescriptorName} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "libdir.so"), 0o755))

	tbl := opcode.NewTable()
	l := testutil.NewFakeLoader(tbl).Provide("libfoo.so", "opA").Provide("libeager.so", "opE")
	r, err := Parse(dir, []byte("libfoo: opA libgone: opG"), unixOpts(WithOpcodeTable(tbl), WithLoader(l))...)
	require.NoError(t, err)

	require.NoError(t, ScanDir(dir, r))
	assert.Equal(t, 1, l.LoadCount("libeager.so"))
	assert.Equal(t, 0, l.LoadCount("libfoo.so"), "tracked libraries are deferred")
	assert.NotZero(t, tbl.Find("opE"))

	st, _ := r.State("foo")
	assert.Equal(t, NotLoaded, st)
	st, _ = r.State("gone")
	assert.Equal(t, Untracked, st)

	mustResolve(t, r, "opA")
	assert.Equal(t, 1, l.LoadCount("libfoo.so"))
}

func TestScanDir_WithoutRegistry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"liba.so", "libb.so"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	l := testutil.NewFakeLoader(nil).Fail("libb.so", errors.New("bad elf"))

	err := ScanDir(dir, nil, unixOpts(WithLoader(l))...)
	assert.Equal(t, regerr.LoadFailure, regerr.CodeOf(err))
	assert.Len(t, l.Calls(), 2)
}

func TestScanDir_MissingDirectory(t *testing.T) {
	l := testutil.NewFakeLoader(nil)
	err := ScanDir(filepath.Join(t.TempDir(), "nope"), nil, unixOpts(WithLoader(l))...)
	assert.NoError(t, err)
	assert.Empty(t, l.Calls())
}

func TestGoLoader_MissingLibraryIsBenign(t *testing.T) {
	l := NewGoLoader(opcode.NewTable())
	err := l.Load(filepath.Join(t.TempDir(), "libnope.so"))
	assert.ErrorIs(t, err, ErrLibraryNotFound)
	assert.Zero(t, severity(err))
}

func TestLoadState_String(t *testing.T) {
	assert.Equal(t, "untracked", Untracked.String())
	assert.Equal(t, "not-loaded", NotLoaded.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "failed", Failed.String())
}

func mustResolve(t *testing.T, r *Registry, name string) int {
	t.Helper()
	i, err := r.Resolve(name)
	require.NoError(t, err)
	require.NotZero(t, i, name)
	return i
}
