package ptr

import (
	"github.com/wippyai/ownership/errors"
)

// Ref is a strong reference. Every live, non-empty Ref holds one strong
// count on a shared counter block; the object is destroyed when the last one
// is dropped.
type Ref[T any] struct {
	_ noCopy
	handle[T]
	guard leakGuard
}

// NewRef takes shared ownership of p with the default deleter, allocating a
// counter block with strong=1. A nil p yields an empty Ref.
func NewRef[T any](p *T) *Ref[T] {
	return NewRefWithDeleter(p, nil)
}

// NewRefWithDeleter is NewRef with a custom deleter. A nil del selects the
// default deleter.
func NewRefWithDeleter[T any](p *T, del func(*T)) *Ref[T] {
	if p == nil {
		return &Ref[T]{}
	}
	return newRef(handle[T]{ptr: p, rc: newBlock(), del: newDeleter(p, del)})
}

// MakeRef moves v to the heap and shares it.
func MakeRef[T any](v T) *Ref[T] {
	return NewRef(&v)
}

// NewRefFrom shares a Derived through a Base-typed Ref. upcast selects the
// Base view; the deleter stays bound to *Derived, and DynamicCast can
// recover the *Derived later.
func NewRefFrom[Base, Derived any](d *Derived, upcast func(*Derived) *Base) *Ref[Base] {
	if d == nil {
		return &Ref[Base]{}
	}
	b := upcast(d)
	if b == nil {
		violate(errors.InvalidInput(errors.PhaseRef, "upcast returned nil for "+typeName[*Derived]()))
		return &Ref[Base]{}
	}
	return newRef(handle[Base]{ptr: b, rc: newBlock(), del: newDeleter(d, nil)})
}

// RefFromScope moves the object owned by s into shared ownership, keeping
// its deleter. s is left empty.
func RefFromScope[T any](s *Scope[T]) *Ref[T] {
	if s.empty() {
		return &Ref[T]{}
	}
	p, del := s.ptr, s.del
	s.ptr, s.del = nil, nil
	s.track()
	return newRef(handle[T]{ptr: p, rc: newBlock(), del: del})
}

func newRef[T any](h handle[T]) *Ref[T] {
	r := &Ref[T]{handle: h}
	r.track()
	return r
}

func (r *Ref[T]) track() {
	watch(&r.guard, r, errors.PhaseRef, r.addr(), r.del)
}

func (r *Ref[T]) isEmpty() bool {
	return r == nil || r.empty()
}

// Clone returns a new handle to the same object, incrementing the strong
// count. Cloning an empty Ref yields an empty Ref.
func (r *Ref[T]) Clone() *Ref[T] {
	if r.isEmpty() {
		return &Ref[T]{}
	}
	r.rc.IncrementStrong()
	return newRef(r.handle)
}

// Move transfers the reference to a new handle without touching the count.
// r is left empty.
func (r *Ref[T]) Move() *Ref[T] {
	if r.isEmpty() {
		return &Ref[T]{}
	}
	h := r.take()
	r.track()
	return newRef(h)
}

// Assign makes r another reference to src's object, releasing whatever r
// held before.
func (r *Ref[T]) Assign(src *Ref[T]) {
	if r == src {
		return
	}
	var next handle[T]
	if !src.isEmpty() {
		src.rc.IncrementStrong()
		next = src.handle
	}
	old := r.handle
	r.handle = next
	r.track()
	old.dropStrong(errors.PhaseRef, "Assign")
}

// AssignMove moves src's reference into r, releasing whatever r held before.
// src is left empty.
func (r *Ref[T]) AssignMove(src *Ref[T]) {
	if r == src {
		return
	}
	var next handle[T]
	if !src.isEmpty() {
		next = src.take()
		src.track()
	}
	old := r.handle
	r.handle = next
	r.track()
	old.dropStrong(errors.PhaseRef, "AssignMove")
}

// Reset releases the reference and leaves r empty.
func (r *Ref[T]) Reset() {
	if r.isEmpty() {
		return
	}
	old := r.take()
	r.track()
	old.dropStrong(errors.PhaseRef, "Reset")
}

// Drop releases the reference. Calling Drop again is a no-op.
func (r *Ref[T]) Drop() {
	r.Reset()
}

// Swap exchanges the contents of two handles. Counts are unchanged.
func (r *Ref[T]) Swap(other *Ref[T]) {
	if r == other {
		return
	}
	r.handle, other.handle = other.handle, r.handle
	r.track()
	other.track()
}

// Weak returns a weak handle observing r's object.
func (r *Ref[T]) Weak() *WeakRef[T] {
	return NewWeak(r)
}

// RefCount returns the strong count, 0 for an empty handle.
func (r *Ref[T]) RefCount() uint32 {
	if r == nil {
		return 0
	}
	return r.strong()
}

// WeakCount returns the number of weak handles observing the object.
func (r *Ref[T]) WeakCount() uint32 {
	if r == nil {
		return 0
	}
	return r.weak()
}

// Unique reports whether r is the only strong reference.
func (r *Ref[T]) Unique() bool {
	return r.RefCount() == 1
}

func (r *Ref[T]) Raw() *T {
	if r == nil {
		return nil
	}
	return r.ptr
}

func (r *Ref[T]) Valid() bool {
	return !r.isEmpty()
}

// Deref returns the object for member access. An empty Ref returns nil, or
// panics in debug mode.
func (r *Ref[T]) Deref() *T {
	if r.isEmpty() {
		emptyDeref[T](errors.PhaseRef)
		return nil
	}
	return r.ptr
}

func (r *Ref[T]) Address() Address {
	return AddressOf(r.Raw())
}

func (r *Ref[T]) String() string {
	return r.Address().String()
}
