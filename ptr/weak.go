package ptr

import (
	"github.com/wippyai/ownership/errors"
)

// WeakRef observes an object without keeping it alive. It keeps the counter
// block alive so Expired and Lock stay answerable after the object is gone.
//
// Raw keeps returning the last pointer after expiry; use Lock to access the
// object safely.
type WeakRef[T any] struct {
	_ noCopy
	handle[T]
	guard leakGuard
}

// NewWeak returns a weak handle observing r's object. The strong count is
// not touched. An empty r yields an empty WeakRef.
func NewWeak[T any](r *Ref[T]) *WeakRef[T] {
	if r.isEmpty() {
		return &WeakRef[T]{}
	}
	r.rc.IncrementWeak()
	return newWeak(r.handle)
}

// WeakCast converts a weak handle, incrementing the weak count. conv sees a
// pointer that may already be stale and must only compute an address.
func WeakCast[To, From any](w *WeakRef[From], conv func(*From) *To) *WeakRef[To] {
	if w.isEmpty() {
		return &WeakRef[To]{}
	}
	p := conv(w.ptr)
	if p == nil {
		stats.castFailures.Add(1)
		return &WeakRef[To]{}
	}
	w.rc.IncrementWeak()
	return newWeak(handle[To]{ptr: p, rc: w.rc, del: w.del})
}

func newWeak[T any](h handle[T]) *WeakRef[T] {
	w := &WeakRef[T]{handle: h}
	w.track()
	return w
}

func (w *WeakRef[T]) track() {
	watch(&w.guard, w, errors.PhaseWeak, w.addr(), w.del)
}

func (w *WeakRef[T]) isEmpty() bool {
	return w == nil || w.empty()
}

// Clone returns another weak handle to the same object.
func (w *WeakRef[T]) Clone() *WeakRef[T] {
	if w.isEmpty() {
		return &WeakRef[T]{}
	}
	w.rc.IncrementWeak()
	return newWeak(w.handle)
}

// Move transfers the observation to a new handle; w is left empty.
func (w *WeakRef[T]) Move() *WeakRef[T] {
	if w.isEmpty() {
		return &WeakRef[T]{}
	}
	h := w.take()
	w.track()
	return newWeak(h)
}

// Assign makes w observe src's object.
func (w *WeakRef[T]) Assign(src *WeakRef[T]) {
	if w == src {
		return
	}
	var next handle[T]
	if !src.isEmpty() {
		src.rc.IncrementWeak()
		next = src.handle
	}
	w.replace(next, "Assign")
}

// AssignMove moves src's observation into w, releasing whatever w observed
// before. src is left empty.
func (w *WeakRef[T]) AssignMove(src *WeakRef[T]) {
	if w == src {
		return
	}
	var next handle[T]
	if !src.isEmpty() {
		next = src.take()
		src.track()
	}
	w.replace(next, "AssignMove")
}

// AssignRef makes w observe r's object.
func (w *WeakRef[T]) AssignRef(r *Ref[T]) {
	var next handle[T]
	if !r.isEmpty() {
		r.rc.IncrementWeak()
		next = r.handle
	}
	w.replace(next, "AssignRef")
}

func (w *WeakRef[T]) replace(next handle[T], op string) {
	old := w.handle
	w.handle = next
	w.track()
	old.dropWeak(errors.PhaseWeak, op)
}

// Reset stops observing and leaves w empty.
func (w *WeakRef[T]) Reset() {
	if w.isEmpty() {
		return
	}
	w.replace(handle[T]{}, "Reset")
}

// Drop stops observing. Calling Drop again is a no-op.
func (w *WeakRef[T]) Drop() {
	w.Reset()
}

func (w *WeakRef[T]) Swap(other *WeakRef[T]) {
	if w == other {
		return
	}
	w.handle, other.handle = other.handle, w.handle
	w.track()
	other.track()
}

// Lock promotes w to a strong reference. It returns an empty Ref when the
// object has expired; an expired object is never resurrected.
func (w *WeakRef[T]) Lock() *Ref[T] {
	if w.isEmpty() {
		return &Ref[T]{}
	}
	if _, ok := w.rc.TryIncrementStrong(); !ok {
		stats.lockFailures.Add(1)
		return &Ref[T]{}
	}
	return newRef(w.handle)
}

// Expired reports whether the object has been destroyed. An empty handle
// is expired.
func (w *WeakRef[T]) Expired() bool {
	return w.RefCount() == 0
}

// RefCount returns the strong count of the observed object.
func (w *WeakRef[T]) RefCount() uint32 {
	if w == nil {
		return 0
	}
	return w.strong()
}

func (w *WeakRef[T]) WeakCount() uint32 {
	if w == nil {
		return 0
	}
	return w.weak()
}

// Unique reports whether exactly one strong reference keeps the object alive.
func (w *WeakRef[T]) Unique() bool {
	return w.RefCount() == 1
}

// Raw returns the observed pointer, which may be stale.
func (w *WeakRef[T]) Raw() *T {
	if w == nil {
		return nil
	}
	return w.ptr
}

// Valid reports whether w observes anything, alive or not.
func (w *WeakRef[T]) Valid() bool {
	return !w.isEmpty()
}

func (w *WeakRef[T]) Address() Address {
	return AddressOf(w.Raw())
}

func (w *WeakRef[T]) String() string {
	return w.Address().String()
}
