// Package store provides SQLite-backed storage for engine snapshots.
//
// A snapshot is keyed by (engine_id, seq) and holds the instrument-number
// table, the channel bus, the global variables and the plugin file states
// captured by engine.Snapshot. Snapshots are written once; writing the same
// key again is a no-op.
//
// # Ordering
//
// Reads never depend on rowid or insertion order:
//   - instruments: ORDER BY number ASC
//   - channels, globals: ORDER BY name COLLATE BINARY ASC
//   - plugins: ORDER BY position ASC (descriptor order)
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
