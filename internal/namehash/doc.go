// Package namehash implements the 8-bit name hash shared by every orcsym
// registry, plus a 256-bucket chained table keyed by it.
//
// The hash folds each byte of a name through a fixed substitution table:
// starting from 0, h = table[c ^ h] for every byte c. The table gives a
// deterministic 256-way fan-out without per-call allocation, so lookups
// can run at control rate on the performance goroutine.
//
// # Invariants
//
//   - Hash("") == 0
//   - table values must never change; persisted bucket layouts and test
//     vectors depend on them
//   - names are unique within a Table; Insert rejects duplicates
package namehash
