// Package engine owns the symbol state of one engine instance.
//
// An Engine bundles every registry the orchestra compiler and opcodes work
// against: the string pool, the named instrument registry and its number
// table, the live opcode table with its deferred plugin registry, the
// user-defined opcode table, the global variable store and the channel bus.
// Nothing is process-global; two engines never share state.
//
// LIFECYCLE:
//
//  1. New builds every component from a config.Config, creates the
//     bootstrap global variables and loads the plugin directory.
//  2. Compilation registers instruments, channels and globals, then calls
//     Instruments().AssignNumbers().
//  3. Performance only looks things up.
//  4. Reset tears everything down in dependency order and rebuilds the
//     bootstrap state, leaving the engine ready for a new orchestra.
//
// THREADING:
//
// One compilation goroutine followed by one performance goroutine. There is
// no internal locking. Plugin libraries are only loaded from New, Reset,
// FindOpcode during setup and LoadAllPlugins, never during performance.
package engine
