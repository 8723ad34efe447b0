package ptr

import (
	"unsafe"

	"github.com/wippyai/ownership/errors"
)

// Scope is the sole owner of one object. It has no counter: the object is
// destroyed when the scope is dropped, reset or assigned over.
//
// Scopes are move-only. Transfer ownership with Move, Assign or ScopeFrom.
type Scope[T any] struct {
	_     noCopy
	ptr   *T
	del   *deleter
	guard leakGuard
}

// NewScope takes ownership of p with the default deleter.
// A nil p yields an empty scope.
func NewScope[T any](p *T) *Scope[T] {
	return NewScopeWithDeleter(p, nil)
}

// NewScopeWithDeleter takes ownership of p; del runs when the scope lets go
// of it. A nil del selects the default deleter.
func NewScopeWithDeleter[T any](p *T, del func(*T)) *Scope[T] {
	if p == nil {
		return &Scope[T]{}
	}
	return newScope(p, newDeleter(p, del))
}

// MakeScope moves v to the heap and owns it.
func MakeScope[T any](v T) *Scope[T] {
	return NewScope(&v)
}

// NewScopeFrom owns a Derived through a Base-typed scope. upcast selects the
// Base view, usually the address of an embedded field. The deleter stays
// bound to *Derived.
func NewScopeFrom[Base, Derived any](d *Derived, upcast func(*Derived) *Base) *Scope[Base] {
	if d == nil {
		return &Scope[Base]{}
	}
	b := upcast(d)
	if b == nil {
		violate(errors.InvalidInput(errors.PhaseScope, "upcast returned nil for "+typeName[*Derived]()))
		return &Scope[Base]{}
	}
	return newScope(b, newDeleter(d, nil))
}

// ScopeFrom moves ownership out of src into a Base-typed scope.
// src is left empty.
func ScopeFrom[Base, Derived any](src *Scope[Derived], upcast func(*Derived) *Base) *Scope[Base] {
	if src.empty() {
		return &Scope[Base]{}
	}
	b := upcast(src.ptr)
	if b == nil {
		violate(errors.InvalidInput(errors.PhaseScope, "upcast returned nil for "+typeName[*Derived]()))
		return &Scope[Base]{}
	}
	del := src.del
	src.ptr, src.del = nil, nil
	src.track()
	return newScope(b, del)
}

func newScope[T any](p *T, del *deleter) *Scope[T] {
	s := &Scope[T]{ptr: p, del: del}
	s.track()
	return s
}

func (s *Scope[T]) empty() bool {
	return s == nil || s.ptr == nil
}

func (s *Scope[T]) track() {
	watch(&s.guard, s, errors.PhaseScope, uintptr(unsafe.Pointer(s.ptr)), s.del)
}

// Move transfers ownership to a new scope and empties s.
func (s *Scope[T]) Move() *Scope[T] {
	if s.empty() {
		return &Scope[T]{}
	}
	p, del := s.ptr, s.del
	s.ptr, s.del = nil, nil
	s.track()
	return newScope(p, del)
}

// Assign destroys the current object, if any, and takes ownership from src.
// src is left empty.
func (s *Scope[T]) Assign(src *Scope[T]) {
	if s == src {
		return
	}
	var p *T
	var del *deleter
	if !src.empty() {
		p, del = src.ptr, src.del
		src.ptr, src.del = nil, nil
		src.track()
	}
	s.replace(p, del)
}

// Reset destroys the current object, if any, and leaves s empty.
func (s *Scope[T]) Reset() {
	s.replace(nil, nil)
}

// ResetTo destroys the current object, if any, and takes ownership of p with
// the default deleter. Resetting to the pointer already owned is a no-op.
func (s *Scope[T]) ResetTo(p *T) {
	if p != nil && p == s.ptr {
		return
	}
	var del *deleter
	if p != nil {
		del = newDeleter(p, nil)
	}
	s.replace(p, del)
}

func (s *Scope[T]) replace(p *T, del *deleter) {
	if s == nil {
		return
	}
	oldPtr, oldDel := s.ptr, s.del
	s.ptr, s.del = p, del
	s.track()
	if oldPtr != nil {
		oldDel.destroy(errors.PhaseScope)
	}
}

// Drop destroys the owned object. Calling Drop again is a no-op.
func (s *Scope[T]) Drop() {
	s.Reset()
}

// Release gives up ownership without destroying the object and returns it.
// The caller becomes responsible for its cleanup.
func (s *Scope[T]) Release() *T {
	if s.empty() {
		return nil
	}
	p, del := s.ptr, s.del
	s.ptr, s.del = nil, nil
	s.track()
	del.abandon()
	return p
}

// Swap exchanges the objects owned by s and other.
func (s *Scope[T]) Swap(other *Scope[T]) {
	if s == other {
		return
	}
	s.ptr, other.ptr = other.ptr, s.ptr
	s.del, other.del = other.del, s.del
	s.track()
	other.track()
}

func (s *Scope[T]) Raw() *T {
	if s == nil {
		return nil
	}
	return s.ptr
}

func (s *Scope[T]) Valid() bool {
	return !s.empty()
}

// Deref returns the owned object for member access. An empty scope returns
// nil, or panics in debug mode.
func (s *Scope[T]) Deref() *T {
	if s.empty() {
		emptyDeref[T](errors.PhaseScope)
		return nil
	}
	return s.ptr
}

func (s *Scope[T]) Address() Address {
	return AddressOf(s.Raw())
}

func (s *Scope[T]) String() string {
	return s.Address().String()
}
