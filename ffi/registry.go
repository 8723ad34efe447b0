package ffi

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

// exported is the type-erased view of one registry entry.
type exported interface {
	retain() uint32
	release() uint32
	strong() uint32
	drop()
}

type exportedRef[T any] struct {
	ref *ptr.Ref[T]
}

func (e *exportedRef[T]) retain() uint32  { return ptr.NewUnsafe(e.ref).IncrementStrong() }
func (e *exportedRef[T]) release() uint32 { return ptr.NewUnsafe(e.ref).DecrementStrong() }
func (e *exportedRef[T]) strong() uint32  { return e.ref.RefCount() }
func (e *exportedRef[T]) drop()           { e.ref.Drop() }

type entry struct {
	ref  exported
	refs uint32 // references held by C, including the export itself
}

var (
	mu      sync.Mutex
	entries = make(map[uintptr]*entry)
	nextID  uintptr = 1
)

// Export moves one strong reference from r into the registry and returns
// an id C code can hold. An empty r yields 0.
func Export[T any](r *ptr.Ref[T]) uintptr {
	if !r.Valid() {
		return 0
	}
	mu.Lock()
	defer mu.Unlock()
	id := nextID
	nextID++
	entries[id] = &entry{ref: &exportedRef[T]{ref: r.Move()}, refs: 1}
	Logger().Debug("reference exported", zap.Uintptr("id", id))
	return id
}

// Retain adds a C-side reference to id and returns the new strong count.
func Retain(id uintptr) uint32 {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[id]
	if !ok {
		Logger().Warn("retain of unknown id", zap.Error(unknownID(id)))
		return 0
	}
	n := e.ref.retain()
	if n != 0 {
		e.refs++
	}
	return n
}

// Release drops a C-side reference to id and returns the remaining strong
// count. The last release unregisters id.
func Release(id uintptr) uint32 {
	mu.Lock()
	e, ok := entries[id]
	if !ok {
		mu.Unlock()
		Logger().Warn("release of unknown id", zap.Error(unknownID(id)))
		return 0
	}
	e.refs--
	if e.refs > 0 {
		n := e.ref.release()
		mu.Unlock()
		return n
	}
	delete(entries, id)
	mu.Unlock()

	n := e.ref.strong() - 1
	e.ref.drop()
	Logger().Debug("export released", zap.Uintptr("id", id), zap.Uint32("strong", n))
	return n
}

// StrongCount returns the strong count of the object behind id.
func StrongCount(id uintptr) uint32 {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := entries[id]; ok {
		return e.ref.strong()
	}
	return 0
}

// Lookup returns a new strong reference to the object behind id. It fails
// if id is unknown or was exported with a different element type.
func Lookup[T any](id uintptr) (*ptr.Ref[T], error) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := entries[id]
	if !ok {
		return nil, unknownID(id)
	}
	er, ok := e.ref.(*exportedRef[T])
	if !ok {
		return nil, errors.TypeMismatch(errors.PhaseFFI, "*ptr.Ref", "id exported with a different element type")
	}
	return er.ref.Clone(), nil
}

// Count returns the number of live ids.
func Count() int {
	mu.Lock()
	defer mu.Unlock()
	return len(entries)
}

// unknownID reports an id that is not registered. Ids are full uintptr
// values, so they travel in Value rather than the 32-bit Handle field.
func unknownID(id uintptr) *errors.Error {
	return errors.New(errors.PhaseFFI, errors.KindInvalidHandle).
		Value(id).
		Detail("unknown id %#x", id).
		Build()
}
