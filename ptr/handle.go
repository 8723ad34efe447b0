package ptr

import (
	"unsafe"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/refcount"
)

// handle is the triple shared by Ref, WeakRef and Unsafe. The pointer and
// the counter are independent: an aliased handle points at a sub-object
// while counting against its parent.
//
// ptr and rc are either both nil or both set.
type handle[T any] struct {
	ptr *T
	rc  *refcount.Counter
	del *deleter
}

func (h *handle[T]) empty() bool {
	return h.rc == nil
}

func (h *handle[T]) addr() uintptr {
	return uintptr(unsafe.Pointer(h.ptr))
}

// take empties h and returns its previous contents.
func (h *handle[T]) take() handle[T] {
	old := *h
	*h = handle[T]{}
	return old
}

func (h *handle[T]) strong() uint32 {
	if h.rc == nil {
		return 0
	}
	return h.rc.Strong()
}

func (h *handle[T]) weak() uint32 {
	if h.rc == nil {
		return 0
	}
	return h.rc.Weak()
}

func (h handle[T]) dropStrong(phase errors.Phase, op string) {
	if h.rc != nil {
		releaseStrong(phase, op, h.rc, h.del)
	}
}

func (h handle[T]) dropWeak(phase errors.Phase, op string) {
	if h.rc != nil {
		releaseWeak(phase, op, h.rc, h.del)
	}
}
