package resource

import (
	"sync"

	"github.com/wippyai/ownership/errors"
)

// LocalBackend is in-memory slot storage with handle recycling.
// Freed handles are reused last-in first-out.
type LocalBackend[E any] struct {
	entries  []slot[E]
	freeList []Handle
	live     int
	mu       sync.RWMutex
	closed   bool
}

type slot[E any] struct {
	value E
	valid bool
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend[E any]() *LocalBackend[E] {
	return &LocalBackend[E]{
		entries:  make([]slot[E], 0, 64),
		freeList: make([]Handle, 0, 16),
	}
}

// Create stores a value and returns its handle.
func (b *LocalBackend[E]) Create(value E) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, errors.Closed(errors.PhaseTable, "backend")
	}

	s := slot[E]{value: value, valid: true}
	b.live++

	if len(b.freeList) > 0 {
		handle := b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = s
		return handle, nil
	}

	b.entries = append(b.entries, s)
	return Handle(len(b.entries)), nil
}

// lookup returns the slot for handle. The caller holds b.mu.
func (b *LocalBackend[E]) lookup(handle Handle) *slot[E] {
	if handle == 0 || int(handle) > len(b.entries) {
		return nil
	}
	s := &b.entries[handle-1]
	if !s.valid {
		return nil
	}
	return s
}

// Get retrieves a value by handle.
func (b *LocalBackend[E]) Get(handle Handle) (E, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if s := b.lookup(handle); s != nil {
		return s.value, true
	}
	var zero E
	return zero, false
}

// Update runs fn on the stored value under the write lock.
func (b *LocalBackend[E]) Update(handle Handle, fn func(*E) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := b.lookup(handle)
	if s == nil {
		return errors.InvalidHandle(errors.PhaseTable, uint32(handle))
	}
	return fn(&s.value)
}

// Drop removes the value if check (when non-nil) accepts it, and returns it.
func (b *LocalBackend[E]) Drop(handle Handle, check func(*E) error) (E, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero E
	s := b.lookup(handle)
	if s == nil {
		return zero, errors.InvalidHandle(errors.PhaseTable, uint32(handle))
	}
	if check != nil {
		if err := check(&s.value); err != nil {
			return zero, err
		}
	}

	value := s.value
	*s = slot[E]{}
	b.live--
	b.freeList = append(b.freeList, handle)
	return value, nil
}

// Drain removes and returns every stored value. With seal set the backend
// stops accepting new values.
func (b *LocalBackend[E]) Drain(seal bool) []E {
	b.mu.Lock()
	defer b.mu.Unlock()

	values := make([]E, 0, b.live)
	for i := range b.entries {
		if b.entries[i].valid {
			values = append(values, b.entries[i].value)
		}
	}

	b.entries = b.entries[:0]
	b.freeList = b.freeList[:0]
	b.live = 0
	if seal {
		b.closed = true
		b.entries, b.freeList = nil, nil
	}
	return values
}

// Closed reports whether Drain(true) has been called.
func (b *LocalBackend[E]) Closed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

// Len returns the number of stored values.
func (b *LocalBackend[E]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.live
}

// Each calls fn for every stored value while holding the read lock.
// fn must not call back into the backend.
func (b *LocalBackend[E]) Each(fn func(Handle, E) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, s := range b.entries {
		if s.valid {
			if !fn(Handle(i+1), s.value) {
				break
			}
		}
	}
}
