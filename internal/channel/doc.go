// Package channel implements the named channel bus that exposes control,
// audio and string values to a host application.
//
// A channel is created lazily the first time it is requested and lives
// until the bus is reset with the engine. Its buffer is allocated once, so
// the *Channel and slices returned by GetOrCreate stay valid and can be
// cached by opcodes and hosts.
//
// # Type field
//
// A channel type is a bit field holding exactly one data kind (Control,
// Audio, String) and at least one direction (Input, Output). Requesting an
// existing channel with the same kind ORs the direction bits in; requesting
// it with a different kind fails with a ConflictError naming the existing
// type. A zero type probes an existing channel without touching it.
//
// # Real-time use
//
// GetOrCreate on an existing channel performs a hash lookup and no
// allocation. Creation, metadata changes and List belong to setup.
package channel
