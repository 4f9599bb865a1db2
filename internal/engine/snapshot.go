package engine

import (
	"github.com/roach88/orcsym/internal/channel"
	"github.com/roach88/orcsym/internal/instr"
	"github.com/roach88/orcsym/internal/plugin"
)

// Snapshot is a point-in-time report of an engine's symbol state.
type Snapshot struct {
	EngineID    string
	Seq         int64
	Instruments []InstrumentRow
	Channels    []ChannelRow
	Globals     []GlobalRow
	Plugins     []PluginRow
}

// InstrumentRow is one occupied slot of the instrument-number table.
type InstrumentRow struct {
	Number  int    `json:"number"`
	Name    string `json:"name,omitempty"`
	Request string `json:"request"`
}

// ChannelRow is one channel of the bus.
type ChannelRow struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Meta *MetaRow `json:"meta,omitempty"`
}

// MetaRow is the control metadata of a channel.
type MetaRow struct {
	Kind    string  `json:"kind"`
	Default float64 `json:"default"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// GlobalRow is one global variable.
type GlobalRow struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// PluginRow is one library of the plugin descriptor.
type PluginRow struct {
	Name    string   `json:"name"`
	Library string   `json:"library"`
	Path    string   `json:"path"`
	State   string   `json:"state"`
	Opcodes []string `json:"opcodes"`
	Error   string   `json:"error,omitempty"`
}

// Requests recorded for slots that were not assigned by name.
const (
	RequestNumbered = "numbered"
	RequestOpcode   = "opcode"
)

// Snapshot captures the current state. Every call gets a new Seq.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{EngineID: e.id, Seq: e.clock.Next()}

	requests := make(map[string]instr.Request)
	for _, a := range e.instr.Assignments() {
		requests[a.Name] = a.Request
	}
	udos := make(map[int]string, e.udos.Len())
	for _, name := range e.udos.Names() {
		udos[e.udos.Lookup(name)] = name
	}
	e.instr.Table().Each(func(n int, slot *instr.Slot) bool {
		row := InstrumentRow{Number: n, Name: slot.Name, Request: RequestNumbered}
		if req, ok := requests[slot.Name]; ok && slot.Name != "" {
			row.Request = req.String()
		} else if name, ok := udos[n]; ok {
			row.Name, row.Request = name, RequestOpcode
		}
		s.Instruments = append(s.Instruments, row)
		return true
	})

	for _, ch := range e.bus.List() {
		row := ChannelRow{Name: ch.Name, Type: ch.Type.String()}
		if ch.Type.Kind() == channel.Control {
			if meta, ok, err := e.bus.GetControlMetadata(ch.Name); err == nil && ok {
				row.Meta = &MetaRow{Kind: meta.Kind.String(), Default: meta.Default, Min: meta.Min, Max: meta.Max}
			}
		}
		s.Channels = append(s.Channels, row)
	}

	for _, name := range e.globals.Names() {
		s.Globals = append(s.Globals, GlobalRow{Name: name, Size: len(e.globals.QueryUnchecked(name))})
	}

	files := e.pluginFinal
	if e.plugins != nil {
		files = e.plugins.Files()
	}
	for _, f := range files {
		s.Plugins = append(s.Plugins, pluginRow(f))
	}
	return s
}

func pluginRow(f plugin.FileInfo) PluginRow {
	row := PluginRow{
		Name:    f.Name,
		Library: f.Library,
		Path:    f.Path,
		State:   f.State.String(),
		Opcodes: f.Opcodes,
	}
	if f.Err != nil {
		row.Error = f.Err.Error()
	}
	return row
}
