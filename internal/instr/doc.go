// Package instr implements the named-instrument registry and the
// instrument-number table of an engine instance.
//
// The orchestra compiler registers every instrument while it parses, then
// calls AssignNumbers exactly once. From then on the table is the only path
// by which the performance goroutine reaches an instrument body.
//
// # Number assignment
//
// Each registration carries a Request:
//
//   - Explicit(n) claims slot n at registration time and fails right away if
//     the slot is taken.
//   - ReclaimFromTop() entries are placed above the highest slot in use when
//     their tier runs, one after another in declaration order.
//   - Ascending() entries (the default) fill the lowest free slots, starting
//     from slot 1, in declaration order.
//
// Explicit requests always win. With the default TopFirst order the
// reclaim-from-top tier runs before the ascending tier; AscendingFirst
// reproduces the legacy ordering where ascending entries are placed first
// and the top tier then lands above them. Whenever a cursor passes the
// table's capacity the table grows by a fixed increment.
//
// # Invariants
//
//   - at most one instrument per slot; slot numbers are >= 1
//   - names are unique within the registry
//   - Lookup returns 0 for every name until AssignNumbers has run
package instr
