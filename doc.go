// Package ownership provides deterministic lifetime management for heap
// objects: an exclusive owner, an atomically reference-counted shared handle
// and a weak observer that can be promoted back to a shared handle.
//
// The garbage collector still reclaims memory. What this library adds is a
// single, well-defined moment at which an object is destroyed: the last
// owning handle runs the object's deleter exactly once, regardless of how
// many goroutines are cloning and dropping handles concurrently.
//
// # Architecture Overview
//
//	ownership/           Root package with the Destroyer hook
//	├── refcount/        Packed strong/weak atomic counter block
//	├── ptr/             Scope, Ref, WeakRef, Unsafe, casts, comparison
//	├── errors/          Structured contract-violation errors
//	├── resource/        Handle tables that own Refs on behalf of foreign code
//	├── host/            wazero host module exposing a resource table to WASM
//	├── ffi/             C-callable retain/release callbacks (purego)
//	├── metrics/         Prometheus collector for lifecycle statistics
//	└── cmd/ownctl/      Walkthroughs, leak and stress runner
//
// # Quick Start
//
//	w := ptr.MakeRef(Widget{Name: "gear"})
//	defer w.Drop()
//
//	c := w.Clone()         // strong count 2
//	c.Drop()               // strong count 1
//
//	weak := w.Weak()       // weak count 1, strong count unchanged
//	defer weak.Drop()
//
//	if locked := weak.Lock(); locked.Valid() {
//	    defer locked.Drop()
//	    fmt.Println(locked.Raw().Name)
//	}
//
// # Destruction
//
// Objects whose pointer type implements Destroyer have Destroy called when
// the last owner lets go. Base-typed handles built with ptr.NewRefFrom or
// ptr.NewScopeFrom remember the concrete type, so the most derived Destroy
// runs even when the handle only exposes an embedded base.
//
// # Handles
//
// Every handle is a pointer and represents one ownership unit. Copying the Go
// pointer does not copy ownership: use Clone for a new strong reference and
// Move to transfer one. Drop is idempotent per handle.
package ownership
