// Package ptr provides the ownership handles.
//
// Three handle kinds manage one heap object each:
//
//	Scope[T]    sole owner, no counter, move-only
//	Ref[T]      strong reference sharing a refcount.Counter
//	WeakRef[T]  observer that keeps the counter alive but not the object
//
// Unsafe[T] is a non-owning view for code that must balance counts by hand,
// typically across a foreign runtime boundary (see the resource, host and ffi
// packages).
//
// # Handle identity
//
// A *Ref[T] is one handle. Copying the Go pointer does not create another
// handle; Clone does. Move transfers the handle's contents to a new handle and
// leaves the source empty. Drop is the destructor and is idempotent per
// handle. A single handle must not be used from several goroutines at once;
// distinct handles sharing one object may be used concurrently.
//
// # Deletion
//
// The object is destroyed exactly once, by whichever handle drops the last
// strong reference. The default deleter calls Destroy when the concrete
// pointer implements ownership.Destroyer. The counter block is released when
// both strong and weak counts reach zero.
//
// # Embedding as inheritance
//
//	type Base struct{ name string }
//	type Derived struct {
//	    Base
//	    extra int
//	}
//
//	r := ptr.NewRefFrom(&Derived{}, func(d *Derived) *Base { return &d.Base })
//	d := ptr.DynamicCast[Derived](r) // finds the owned *Derived
//
// # Contract violations
//
// Misuse never returns an error. It is reported through the violation handler
// (see SetViolationHandler), logged, and counted in Stats. With SetDebug(true)
// or OWNERSHIP_DEBUG=1 violations panic with an *errors.Error and handles that
// are garbage collected without Drop are reported as leaks.
package ptr
