package ptr

import (
	"github.com/wippyai/ownership/errors"
)

// Unsafe is a non-owning view of a Ref's counter block for code that must
// manage counts by hand, such as a handle table exposed to a foreign
// runtime. It holds no count of its own and has no destructor: every manual
// increment must be matched by exactly one decrement.
//
// An Unsafe can only be built from a Ref with NewUnsafe; there is no
// conversion back other than Adopt.
type Unsafe[T any] struct {
	h handle[T]
}

// NewUnsafe returns a view of r's object. No count is changed.
func NewUnsafe[T any](r *Ref[T]) Unsafe[T] {
	if r.isEmpty() {
		return Unsafe[T]{}
	}
	return Unsafe[T]{h: r.handle}
}

// IncrementStrong adds a strong reference and returns the new count. It
// refuses to bring an expired object back and reports a violation instead.
func (u Unsafe[T]) IncrementStrong() uint32 {
	if u.h.empty() {
		return 0
	}
	n, ok := u.h.rc.TryIncrementStrong()
	if !ok {
		violate(errors.New(errors.PhaseUnsafe, errors.KindExpired).
			Op("IncrementStrong").
			GoType(u.h.del.name()).
			Detail("strong count is zero").
			Build())
		return 0
	}
	return n
}

// TryIncrementStrong adds a strong reference unless the object has expired.
func (u Unsafe[T]) TryIncrementStrong() (uint32, bool) {
	if u.h.empty() {
		return 0, false
	}
	return u.h.rc.TryIncrementStrong()
}

// DecrementStrong drops a strong reference. Reaching zero destroys the
// object and, if no weak references remain, releases the block.
func (u Unsafe[T]) DecrementStrong() uint32 {
	if u.h.empty() {
		return 0
	}
	return releaseStrong(errors.PhaseUnsafe, "DecrementStrong", u.h.rc, u.h.del)
}

// IncrementWeak adds a weak reference and returns the new weak count.
func (u Unsafe[T]) IncrementWeak() uint32 {
	if u.h.empty() {
		return 0
	}
	if u.h.rc.Released() {
		violate(errors.New(errors.PhaseUnsafe, errors.KindExpired).
			Op("IncrementWeak").
			GoType(u.h.del.name()).
			Detail("counter block already released").
			Build())
		return 0
	}
	return u.h.rc.IncrementWeak()
}

// DecrementWeak drops a weak reference and returns the new weak count.
func (u Unsafe[T]) DecrementWeak() uint32 {
	if u.h.empty() {
		return 0
	}
	return releaseWeak(errors.PhaseUnsafe, "DecrementWeak", u.h.rc, u.h.del)
}

func (u Unsafe[T]) RefCount() uint32 {
	return u.h.strong()
}

func (u Unsafe[T]) WeakCount() uint32 {
	return u.h.weak()
}

func (u Unsafe[T]) Expired() bool {
	return u.h.strong() == 0
}

func (u Unsafe[T]) Raw() *T {
	return u.h.ptr
}

func (u Unsafe[T]) Valid() bool {
	return !u.h.empty()
}

// Adopt wraps one strong count previously added with IncrementStrong in a
// Ref, handing its release back to automatic management.
func (u Unsafe[T]) Adopt() *Ref[T] {
	if u.h.empty() {
		return &Ref[T]{}
	}
	if u.h.strong() == 0 {
		violate(errors.New(errors.PhaseUnsafe, errors.KindExpired).
			Op("Adopt").
			GoType(u.h.del.name()).
			Detail("no strong count to adopt").
			Build())
		return &Ref[T]{}
	}
	return newRef(u.h)
}

// AdoptWeak wraps one weak count previously added with IncrementWeak in a
// WeakRef.
func (u Unsafe[T]) AdoptWeak() *WeakRef[T] {
	if u.h.empty() {
		return &WeakRef[T]{}
	}
	if u.h.weak() == 0 {
		violate(errors.New(errors.PhaseUnsafe, errors.KindUnderflow).
			Op("AdoptWeak").
			GoType(u.h.del.name()).
			Detail("no weak count to adopt").
			Build())
		return &WeakRef[T]{}
	}
	return newWeak(u.h)
}

func (u Unsafe[T]) Address() Address {
	return AddressOf(u.h.ptr)
}

func (u Unsafe[T]) String() string {
	return u.Address().String()
}
