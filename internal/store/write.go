package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/orcsym/internal/engine"
)

// WriteSnapshot inserts a snapshot and all of its rows in one transaction.
// Returns whether a new snapshot was inserted; writing an existing
// (EngineID, Seq) again leaves the stored rows untouched and returns false.
func (s *Store) WriteSnapshot(ctx context.Context, snap engine.Snapshot) (inserted bool, err error) {
	if snap.EngineID == "" {
		return false, fmt.Errorf("write snapshot: empty engine id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	res, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (engine_id, seq) VALUES (?, ?)
		ON CONFLICT(engine_id, seq) DO NOTHING
	`, snap.EngineID, snap.Seq)
	if err != nil {
		return false, fmt.Errorf("write snapshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write snapshot: rows affected: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	key := rowKey{engineID: snap.EngineID, seq: snap.Seq}
	if err := writeInstruments(ctx, tx, key, snap.Instruments); err != nil {
		return false, err
	}
	if err := writeChannels(ctx, tx, key, snap.Channels); err != nil {
		return false, err
	}
	if err := writeGlobals(ctx, tx, key, snap.Globals); err != nil {
		return false, err
	}
	if err := writePlugins(ctx, tx, key, snap.Plugins); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write snapshot: commit: %w", err)
	}
	return true, nil
}

type rowKey struct {
	engineID string
	seq      int64
}

func writeInstruments(ctx context.Context, tx *sql.Tx, key rowKey, rows []engine.InstrumentRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO instruments (engine_id, seq, number, name, request)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write instruments: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, key.engineID, key.seq, r.Number, r.Name, r.Request); err != nil {
			return fmt.Errorf("write instrument %d: %w", r.Number, err)
		}
	}
	return nil
}

func writeChannels(ctx context.Context, tx *sql.Tx, key rowKey, rows []engine.ChannelRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channels (engine_id, seq, name, type, meta_kind, meta_default, meta_min, meta_max)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write channels: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		var kind sql.NullString
		var def, lo, hi sql.NullFloat64
		if r.Meta != nil {
			kind = sql.NullString{String: r.Meta.Kind, Valid: true}
			def = sql.NullFloat64{Float64: r.Meta.Default, Valid: true}
			lo = sql.NullFloat64{Float64: r.Meta.Min, Valid: true}
			hi = sql.NullFloat64{Float64: r.Meta.Max, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, key.engineID, key.seq, r.Name, r.Type, kind, def, lo, hi); err != nil {
			return fmt.Errorf("write channel %q: %w", r.Name, err)
		}
	}
	return nil
}

func writeGlobals(ctx context.Context, tx *sql.Tx, key rowKey, rows []engine.GlobalRow) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO globals (engine_id, seq, name, size) VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write globals: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, key.engineID, key.seq, r.Name, r.Size); err != nil {
			return fmt.Errorf("write global %q: %w", r.Name, err)
		}
	}
	return nil
}

func writePlugins(ctx context.Context, tx *sql.Tx, key rowKey, rows []engine.PluginRow) error {
	for i, r := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO plugins (engine_id, seq, position, name, library, path, state, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, key.engineID, key.seq, i, r.Name, r.Library, r.Path, r.State, r.Error)
		if err != nil {
			return fmt.Errorf("write plugin %q: %w", r.Name, err)
		}
		for j, op := range r.Opcodes {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO plugin_opcodes (engine_id, seq, plugin, position, opcode)
				VALUES (?, ?, ?, ?, ?)
			`, key.engineID, key.seq, i, j, op)
			if err != nil {
				return fmt.Errorf("write plugin %q opcode %q: %w", r.Name, op, err)
			}
		}
	}
	return nil
}
