// Package plugin implements deferred loading of opcode plugin libraries.
//
// A plugin directory may carry an opcodes.dir descriptor listing each
// library and the opcodes it implements:
//
//	libfoo: opA opB
//	libbar: opC
//
// Parsing the descriptor builds a Registry without touching any library.
// Libraries found on disk are marked eligible with CheckFile; the first
// Resolve of one of their opcodes loads the library through a Loader and
// re-resolves the name against the live opcode table. LoadAll loads every
// eligible library and discards the registry.
//
// A Registry is built once during setup and is not safe for concurrent use.
// Library loading performs blocking I/O and must never run on the
// performance goroutine.
package plugin
