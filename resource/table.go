package resource

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

// Table maps integer handles to strong references. Each entry owns one
// ptr.Ref; borrows add a manual strong count through ptr.Unsafe so a
// borrowed object outlives a concurrent drop of its entry.
type Table[T any] struct {
	id        uuid.UUID
	name      string
	store     *LocalBackend[entry[T]]
	observers []subscription
	nextSub   uint64
	obsMu     sync.RWMutex
}

type subscription struct {
	id uint64
	o  Observer
}

type entry[T any] struct {
	ref     *ptr.Ref[T]
	borrows uint32
}

// NewTable creates an empty table. name appears in logs and metrics; an
// empty name defaults to the element type.
func NewTable[T any](name string) *Table[T] {
	if name == "" {
		name = fmt.Sprintf("%T", (*T)(nil))
	}
	return &Table[T]{
		id:    uuid.New(),
		name:  name,
		store: NewLocalBackend[entry[T]](),
	}
}

// ID returns the table's unique instance ID.
func (t *Table[T]) ID() uuid.UUID { return t.id }

// Name returns the table's name.
func (t *Table[T]) Name() string { return t.name }

// Insert moves r into the table and returns its handle. It returns 0 and
// leaves r untouched if r is empty or the table is closed.
func (t *Table[T]) Insert(r *ptr.Ref[T]) Handle {
	if !r.Valid() {
		return 0
	}
	addr := r.Address()
	owned := r.Move()
	h, err := t.store.Create(entry[T]{ref: owned})
	if err != nil {
		r.AssignMove(owned)
		Logger().Debug("insert into closed table", zap.String("table", t.name))
		return 0
	}
	t.emit(EventCreated, h, addr, 0)
	return h
}

// Get returns the object behind h without changing any count. The pointer
// is only valid while the entry stays in the table.
func (t *Table[T]) Get(h Handle) (*T, bool) {
	e, ok := t.store.Get(h)
	if !ok {
		return nil, false
	}
	return e.ref.Raw(), true
}

// Ref returns a new strong reference to the object behind h.
func (t *Table[T]) Ref(h Handle) (*ptr.Ref[T], error) {
	var out *ptr.Ref[T]
	err := t.store.Update(h, func(e *entry[T]) error {
		out = e.ref.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clone adds a second handle to the object behind h.
func (t *Table[T]) Clone(h Handle) (Handle, error) {
	r, err := t.Ref(h)
	if err != nil {
		return 0, err
	}
	addr := r.Address()
	nh, err := t.store.Create(entry[T]{ref: r})
	if err != nil {
		r.Drop()
		return 0, err
	}
	t.emit(EventCreated, nh, addr, 0)
	return nh, nil
}

// Borrow lends the object behind h. The object stays alive until the
// matching ReturnBorrow, and the handle cannot be taken or removed
// meanwhile.
func (t *Table[T]) Borrow(h Handle) (*T, error) {
	var (
		p       *T
		borrows uint32
	)
	err := t.store.Update(h, func(e *entry[T]) error {
		u := ptr.NewUnsafe(e.ref)
		if u.IncrementStrong() == 0 {
			return errors.Expired(errors.PhaseTable, uint32(h))
		}
		e.borrows++
		p, borrows = u.Raw(), e.borrows
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.emit(EventBorrowed, h, ptr.AddressOf(p), borrows)
	return p, nil
}

// ReturnBorrow ends one borrow of h.
func (t *Table[T]) ReturnBorrow(h Handle) error {
	var (
		addr    ptr.Address
		borrows uint32
	)
	err := t.store.Update(h, func(e *entry[T]) error {
		if e.borrows == 0 {
			return errors.New(errors.PhaseTable, errors.KindUnderflow).
				Op("ReturnBorrow").
				Handle(uint32(h)).
				Detail("no outstanding borrow").
				Build()
		}
		e.borrows--
		ptr.NewUnsafe(e.ref).DecrementStrong()
		addr, borrows = e.ref.Address(), e.borrows
		return nil
	})
	if err != nil {
		return err
	}
	t.emit(EventBorrowReturned, h, addr, borrows)
	return nil
}

func noBorrows[T any](h Handle) func(*entry[T]) error {
	return func(e *entry[T]) error {
		if e.borrows > 0 {
			return errors.OutstandingBorrow(errors.PhaseTable, uint32(h), e.borrows)
		}
		return nil
	}
}

// Take removes h and hands its reference to the caller. It fails while h
// has outstanding borrows.
func (t *Table[T]) Take(h Handle) (*ptr.Ref[T], error) {
	e, err := t.store.Drop(h, noBorrows[T](h))
	if err != nil {
		return nil, err
	}
	t.emit(EventTransferred, h, e.ref.Address(), 0)
	return e.ref, nil
}

// Remove removes h and drops its reference.
func (t *Table[T]) Remove(h Handle) error {
	e, err := t.store.Drop(h, noBorrows[T](h))
	if err != nil {
		return err
	}
	addr := e.ref.Address()
	e.ref.Drop()
	t.emit(EventDropped, h, addr, 0)
	return nil
}

// StrongCount returns the strong count of the object behind h.
func (t *Table[T]) StrongCount(h Handle) (uint32, bool) {
	var n uint32
	err := t.store.Update(h, func(e *entry[T]) error {
		n = e.ref.RefCount()
		return nil
	})
	return n, err == nil
}

// Borrows returns the number of outstanding borrows on h.
func (t *Table[T]) Borrows(h Handle) uint32 {
	e, ok := t.store.Get(h)
	if !ok {
		return 0
	}
	return e.borrows
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	return t.store.Len()
}

// Each calls fn for every handle until fn returns false. fn runs without
// the table lock held and may call back into the table.
func (t *Table[T]) Each(fn func(Handle, *T) bool) {
	type item struct {
		h Handle
		p *T
	}
	var items []item
	t.store.Each(func(h Handle, e entry[T]) bool {
		items = append(items, item{h, e.ref.Raw()})
		return true
	})
	for _, it := range items {
		if !fn(it.h, it.p) {
			return
		}
	}
}

// Clear removes every handle that has no outstanding borrows.
func (t *Table[T]) Clear() {
	var handles []Handle
	t.store.Each(func(h Handle, _ entry[T]) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		if err := t.Remove(h); err != nil {
			Logger().Debug("clear skipped handle", zap.String("table", t.name), zap.Error(err))
		}
	}
}

// Close drops every entry, including borrowed ones, and stops accepting
// inserts. Outstanding borrows are reclaimed and reported in the returned
// error.
func (t *Table[T]) Close() error {
	if t.store.Closed() {
		return nil
	}
	var result *multierror.Error
	t.store.Each(func(h Handle, e entry[T]) bool {
		if e.borrows > 0 {
			result = multierror.Append(result, errors.OutstandingBorrow(errors.PhaseTable, uint32(h), e.borrows))
		}
		return true
	})

	for _, e := range t.store.Drain(true) {
		u := ptr.NewUnsafe(e.ref)
		for range e.borrows {
			u.DecrementStrong()
		}
		e.ref.Drop()
	}

	if err := result.ErrorOrNil(); err != nil {
		Logger().Warn("table closed with outstanding borrows",
			zap.String("table", t.name),
			zap.Stringer("id", t.id),
			zap.Error(err))
		return err
	}
	return nil
}

// Subscribe adds an observer for lifecycle events. The returned function
// removes it and is safe to call more than once.
func (t *Table[T]) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{id: id, o: o})
	return func() { t.removeObserver(func(s subscription) bool { return s.id == id }) }
}

// Unsubscribe removes the first subscription of o. Observers of a
// non-comparable type, such as ObserverFunc, can only be removed with the
// function returned by Subscribe; Unsubscribe ignores them.
func (t *Table[T]) Unsubscribe(o Observer) {
	if o == nil || !reflect.TypeOf(o).Comparable() {
		return
	}
	t.removeObserver(func(s subscription) bool {
		return reflect.TypeOf(s.o).Comparable() && s.o == o
	})
}

func (t *Table[T]) removeObserver(match func(subscription) bool) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, s := range t.observers {
		if match(s) {
			t.observers = slices.Delete(t.observers, i, i+1)
			return
		}
	}
}

func (t *Table[T]) emit(typ EventType, h Handle, addr ptr.Address, borrows uint32) {
	var strong uint32
	if typ != EventDropped && typ != EventTransferred {
		strong, _ = t.StrongCount(h)
	}
	if ce := Logger().Check(zap.DebugLevel, "handle "+typ.String()); ce != nil {
		ce.Write(
			zap.String("table", t.name),
			zap.Uint32("handle", uint32(h)),
			zap.Stringer("addr", addr),
			zap.Uint32("strong", strong))
	}

	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	e := Event{
		Type:    typ,
		Table:   t.id,
		Handle:  h,
		Address: addr,
		Strong:  strong,
		Borrows: borrows,
	}
	for _, s := range t.observers {
		s.o.OnResourceEvent(e)
	}
}
