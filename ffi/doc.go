// Package ffi hands shared references to C code.
//
// C memory cannot hold Go pointers, so Export moves a strong reference into
// a registry and returns an opaque uintptr id that C may store (as a void*
// or integer). C code then manages its references through plain C function
// pointers:
//
//	retain(id)  -> strong count after the increment, 0 if id is unknown
//	release(id) -> strong count after the decrement
//	count(id)   -> current strong count
//
// Each retain adds a manual strong count via ptr.Unsafe. The release that
// balances the original export drops the registry's reference and
// unregisters the id; after that the id is dead.
//
// The C function pointers come from RetainCallback, ReleaseCallback and
// CountCallback and are only available where purego supports callbacks.
package ffi
