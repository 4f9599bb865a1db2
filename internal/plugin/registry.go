package plugin

import (
	"github.com/roach88/orcsym/internal/namehash"
	"github.com/roach88/orcsym/internal/opcode"
)

// LoadState is the lifecycle state of a library listed in the descriptor.
type LoadState int

const (
	// Untracked files are listed in the descriptor but were not seen on disk.
	Untracked LoadState = iota
	// NotLoaded files were seen by CheckFile and are eligible for loading.
	NotLoaded
	// Loaded files were loaded successfully and are never reloaded.
	Loaded
	// Failed files failed to load and are never retried.
	Failed
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case Untracked:
		return "untracked"
	case NotLoaded:
		return "not-loaded"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

type fileRecord struct {
	short string
	lib   string // library file name, a suffix of path
	path  string
	state LoadState
	err   error // non-benign load failure
	first int   // opcode range in Registry.ops
	count int
	next  *fileRecord
}

type opRecord struct {
	name string
	file *fileRecord
	next *opRecord
}

// Registry is the deferred-load database built from one descriptor.
type Registry struct {
	settings

	dir     string
	files   []fileRecord
	ops     []opRecord
	strs    arena
	fileIdx [namehash.Buckets]*fileRecord
	opIdx   [namehash.Buckets]*opRecord

	closed bool
	final  []FileInfo
}

// FileInfo describes a library listed in the descriptor.
type FileInfo struct {
	Name    string
	Library string
	Path    string
	State   LoadState
	Opcodes []string
	Err     error
}

// OpcodeInfo describes an opcode listed in the descriptor.
type OpcodeInfo struct {
	Name string
	File string
}

func (r *Registry) findFile(short string) *fileRecord {
	for f := r.fileIdx[namehash.Hash(short)]; f != nil; f = f.next {
		if namehash.Equal(f.short, short) {
			return f
		}
	}
	return nil
}

func (r *Registry) findOpcode(name string) *opRecord {
	for o := r.opIdx[namehash.Hash(name)]; o != nil; o = o.next {
		if namehash.Equal(o.name, name) {
			return o
		}
	}
	return nil
}

// Dir returns the plugin directory.
func (r *Registry) Dir() string {
	return r.dir
}

// Table returns the live opcode table the registry resolves into.
func (r *Registry) Table() *opcode.Table {
	return r.table
}

// Closed reports whether the registry has been discarded.
func (r *Registry) Closed() bool {
	return r.closed
}

// NumFiles returns the number of libraries listed.
func (r *Registry) NumFiles() int {
	return len(r.files)
}

// NumOpcodes returns the number of opcodes listed.
func (r *Registry) NumOpcodes() int {
	return len(r.ops)
}

// CheckFile marks the library named base as eligible for loading and
// reports whether the descriptor lists it. base is a file name without a
// directory, either the library file name ("libfoo.so") or the short name.
// Loaded and failed libraries keep their state.
func (r *Registry) CheckFile(base string) bool {
	if r.closed || base == "" {
		return false
	}
	f := r.findFile(r.shortName(base))
	if f == nil {
		return false
	}
	if f.state == Untracked {
		f.state = NotLoaded
	}
	return true
}

// State returns the load state of the library with the given short name.
func (r *Registry) State(short string) (LoadState, bool) {
	if r.closed {
		return Untracked, false
	}
	f := r.findFile(r.normalize(short))
	if f == nil {
		return Untracked, false
	}
	return f.state, true
}

// Owner returns the short name of the library providing opcode name.
func (r *Registry) Owner(name string) (string, bool) {
	if r.closed {
		return "", false
	}
	o := r.findOpcode(name)
	if o == nil {
		return "", false
	}
	return o.file.short, true
}

// Resolve returns the live table index of opcode name, or 0 if it cannot
// be found. On a live table miss an eligible library providing name is
// loaded first.
//
// A library is loaded at most once. An absent library is benign: it is
// marked Failed and Resolve returns 0. Any other load failure is returned
// as a LoadFailure (or OutOfMemory) error, again on every later Resolve of
// one of the library's opcodes, and must be treated as fatal by the caller.
func (r *Registry) Resolve(name string) (int, error) {
	if name == "" {
		return 0, nil
	}
	if i := r.table.Find(name); i != 0 || r.closed {
		return i, nil
	}
	o := r.findOpcode(name)
	if o == nil {
		return 0, nil
	}
	f := o.file
	switch f.state {
	case NotLoaded:
		if err := r.load("plugin.Resolve", f); err != nil {
			return 0, err
		}
	case Failed:
		return 0, f.err
	case Untracked, Loaded:
		return 0, nil
	}
	return r.table.Find(name), nil
}

// load loads f and records the outcome. Benign failures return nil.
func (r *Registry) load(op string, f *fileRecord) error {
	r.log.Debug("loading plugin library", "library", f.lib, "path", f.path)
	err := r.loader.Load(f.path)
	if err == nil {
		f.state = Loaded
		return nil
	}
	f.state = Failed
	if benign(err) {
		r.log.Warn("plugin library not found", "library", f.lib, "path", f.path, "error", err)
		return nil
	}
	f.err = loadError(op, f.path, err)
	r.log.Error("plugin library failed to load", "library", f.lib, "path", f.path, "error", err)
	return f.err
}

// LoadAll loads every eligible library, continuing past failures, and then
// closes the registry. It returns the most severe failure encountered:
// OutOfMemory outranks LoadFailure, and absent libraries are not reported.
func (r *Registry) LoadAll() error {
	if r.closed {
		return nil
	}
	var worst error
	rank := 0
	for i := range r.files {
		f := &r.files[i]
		if f.state != NotLoaded {
			continue
		}
		if err := r.load("plugin.LoadAll", f); severity(err) > rank {
			worst, rank = err, severity(err)
		}
	}
	r.Close()
	return worst
}

// Close discards the registry. Files keeps reporting the final states;
// every other query behaves as if the descriptor were empty and Resolve
// consults the live table only.
func (r *Registry) Close() {
	if r.closed {
		return
	}
	r.final = r.Files()
	r.closed = true
	r.files = nil
	r.ops = nil
	r.strs = arena{}
	r.fileIdx = [namehash.Buckets]*fileRecord{}
	r.opIdx = [namehash.Buckets]*opRecord{}
}

// Files returns the listed libraries in descriptor order.
func (r *Registry) Files() []FileInfo {
	if r.closed {
		return r.final
	}
	out := make([]FileInfo, len(r.files))
	for i := range r.files {
		f := &r.files[i]
		names := make([]string, f.count)
		for j := range names {
			names[j] = r.ops[f.first+j].name
		}
		out[i] = FileInfo{
			Name:    f.short,
			Library: f.lib,
			Path:    f.path,
			State:   f.state,
			Opcodes: names,
			Err:     f.err,
		}
	}
	return out
}

// Opcodes returns the listed opcodes in descriptor order.
func (r *Registry) Opcodes() []OpcodeInfo {
	out := make([]OpcodeInfo, len(r.ops))
	for i := range r.ops {
		out[i] = OpcodeInfo{Name: r.ops[i].name, File: r.ops[i].file.short}
	}
	return out
}
