package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/orcsym/internal/engine"
)

// ErrNoSnapshot is returned when an engine has no stored snapshot.
var ErrNoSnapshot = errors.New("no snapshot")

// LatestSeq returns the highest stored seq for an engine.
// Returns ErrNoSnapshot if the engine has none.
func (s *Store) LatestSeq(ctx context.Context, engineID string) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM snapshots WHERE engine_id = ?
	`, engineID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	if !seq.Valid {
		return 0, fmt.Errorf("latest seq %s: %w", engineID, ErrNoSnapshot)
	}
	return seq.Int64, nil
}

// ReadSnapshot reassembles a stored snapshot.
// Returns ErrNoSnapshot if (engineID, seq) was never written.
func (s *Store) ReadSnapshot(ctx context.Context, engineID string, seq int64) (engine.Snapshot, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM snapshots WHERE engine_id = ? AND seq = ?
	`, engineID, seq).Scan(&found)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	if found == 0 {
		return engine.Snapshot{}, fmt.Errorf("read snapshot %s/%d: %w", engineID, seq, ErrNoSnapshot)
	}

	snap := engine.Snapshot{EngineID: engineID, Seq: seq}
	if snap.Instruments, err = s.ReadInstruments(ctx, engineID, seq); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Channels, err = s.ReadChannels(ctx, engineID, seq); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Globals, err = s.ReadGlobals(ctx, engineID, seq); err != nil {
		return engine.Snapshot{}, err
	}
	if snap.Plugins, err = s.ReadPlugins(ctx, engineID, seq); err != nil {
		return engine.Snapshot{}, err
	}
	return snap, nil
}

// ReadInstruments returns the instrument rows of a snapshot ordered by number.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadInstruments(ctx context.Context, engineID string, seq int64) ([]engine.InstrumentRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT number, name, request
		FROM instruments
		WHERE engine_id = ? AND seq = ?
		ORDER BY number ASC
	`, engineID, seq)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	out := []engine.InstrumentRow{}
	for rows.Next() {
		var r engine.InstrumentRow
		if err := rows.Scan(&r.Number, &r.Name, &r.Request); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instruments: %w", err)
	}
	return out, nil
}

// ReadChannels returns the channel rows of a snapshot ordered by name.
func (s *Store) ReadChannels(ctx context.Context, engineID string, seq int64) ([]engine.ChannelRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, type, meta_kind, meta_default, meta_min, meta_max
		FROM channels
		WHERE engine_id = ? AND seq = ?
		ORDER BY name COLLATE BINARY ASC
	`, engineID, seq)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	out := []engine.ChannelRow{}
	for rows.Next() {
		var (
			r           engine.ChannelRow
			kind        sql.NullString
			def, lo, hi sql.NullFloat64
		)
		if err := rows.Scan(&r.Name, &r.Type, &kind, &def, &lo, &hi); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if kind.Valid {
			r.Meta = &engine.MetaRow{Kind: kind.String, Default: def.Float64, Min: lo.Float64, Max: hi.Float64}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w", err)
	}
	return out, nil
}

// ReadGlobals returns the global rows of a snapshot ordered by name.
func (s *Store) ReadGlobals(ctx context.Context, engineID string, seq int64) ([]engine.GlobalRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, size
		FROM globals
		WHERE engine_id = ? AND seq = ?
		ORDER BY name COLLATE BINARY ASC
	`, engineID, seq)
	if err != nil {
		return nil, fmt.Errorf("query globals: %w", err)
	}
	defer rows.Close()

	out := []engine.GlobalRow{}
	for rows.Next() {
		var r engine.GlobalRow
		if err := rows.Scan(&r.Name, &r.Size); err != nil {
			return nil, fmt.Errorf("scan global: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate globals: %w", err)
	}
	return out, nil
}

// ReadPlugins returns the plugin rows of a snapshot in descriptor order,
// each with its opcodes in descriptor order.
func (s *Store) ReadPlugins(ctx context.Context, engineID string, seq int64) ([]engine.PluginRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, library, path, state, error
		FROM plugins
		WHERE engine_id = ? AND seq = ?
		ORDER BY position ASC
	`, engineID, seq)
	if err != nil {
		return nil, fmt.Errorf("query plugins: %w", err)
	}

	out := []engine.PluginRow{}
	for rows.Next() {
		var r engine.PluginRow
		if err := rows.Scan(&r.Name, &r.Library, &r.Path, &r.State, &r.Error); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan plugin: %w", err)
		}
		r.Opcodes = []string{}
		out = append(out, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate plugins: %w", err)
	}

	// The single connection is free again once the plugin rows are closed.
	ops, err := s.db.QueryContext(ctx, `
		SELECT plugin, opcode
		FROM plugin_opcodes
		WHERE engine_id = ? AND seq = ?
		ORDER BY plugin ASC, position ASC
	`, engineID, seq)
	if err != nil {
		return nil, fmt.Errorf("query plugin opcodes: %w", err)
	}
	defer ops.Close()

	for ops.Next() {
		var (
			plugin int
			name   string
		)
		if err := ops.Scan(&plugin, &name); err != nil {
			return nil, fmt.Errorf("scan plugin opcode: %w", err)
		}
		if plugin < 0 || plugin >= len(out) {
			return nil, fmt.Errorf("plugin opcode %q: dangling plugin position %d", name, plugin)
		}
		out[plugin].Opcodes = append(out[plugin].Opcodes, name)
	}
	if err := ops.Err(); err != nil {
		return nil, fmt.Errorf("iterate plugin opcodes: %w", err)
	}
	return out, nil
}
