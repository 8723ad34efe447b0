package resource

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

// WeakTable holds weak handles to objects owned by a Table. Weak handles
// do not keep objects alive; Upgrade turns one back into a strong handle
// while the object still exists.
type WeakTable[T any] struct {
	id     uuid.UUID
	strong *Table[T]
	store  *LocalBackend[*ptr.WeakRef[T]]
}

// NewWeakTable creates a weak table paired with strong.
func NewWeakTable[T any](strong *Table[T]) *WeakTable[T] {
	return &WeakTable[T]{
		id:     uuid.New(),
		strong: strong,
		store:  NewLocalBackend[*ptr.WeakRef[T]](),
	}
}

// ID returns the weak table's unique instance ID.
func (w *WeakTable[T]) ID() uuid.UUID { return w.id }

// Insert moves a weak reference into the table.
func (w *WeakTable[T]) Insert(ref *ptr.WeakRef[T]) (Handle, error) {
	if !ref.Valid() {
		return 0, errors.InvalidInput(errors.PhaseTable, "empty weak reference")
	}
	owned := ref.Move()
	h, err := w.store.Create(owned)
	if err != nil {
		ref.AssignMove(owned)
		return 0, err
	}
	return h, nil
}

// Downgrade creates a weak handle observing the object behind the strong
// handle h.
func (w *WeakTable[T]) Downgrade(h Handle) (Handle, error) {
	r, err := w.strong.Ref(h)
	if err != nil {
		return 0, err
	}
	defer r.Drop()
	weak := r.Weak()
	wh, err := w.Insert(weak)
	if err != nil {
		weak.Drop()
		return 0, err
	}
	return wh, nil
}

// Upgrade adds a strong handle for the object behind weak handle wh. It
// fails with an expired error once the object is gone.
func (w *WeakTable[T]) Upgrade(wh Handle) (Handle, error) {
	weak, ok := w.store.Get(wh)
	if !ok {
		return 0, errors.InvalidHandle(errors.PhaseTable, uint32(wh))
	}
	r := weak.Lock()
	if !r.Valid() {
		return 0, errors.Expired(errors.PhaseTable, uint32(wh))
	}
	h := w.strong.Insert(r)
	if h == 0 {
		r.Drop()
		return 0, errors.Closed(errors.PhaseTable, w.strong.Name())
	}
	return h, nil
}

// Expired reports whether the object behind wh has been destroyed.
func (w *WeakTable[T]) Expired(wh Handle) (bool, error) {
	weak, ok := w.store.Get(wh)
	if !ok {
		return false, errors.InvalidHandle(errors.PhaseTable, uint32(wh))
	}
	return weak.Expired(), nil
}

// Drop removes wh and releases its weak count.
func (w *WeakTable[T]) Drop(wh Handle) error {
	weak, err := w.store.Drop(wh, nil)
	if err != nil {
		return err
	}
	weak.Drop()
	return nil
}

// Len returns the number of weak handles.
func (w *WeakTable[T]) Len() int {
	return w.store.Len()
}

// Prune drops weak handles whose objects have expired and returns how many
// were removed.
func (w *WeakTable[T]) Prune() int {
	var expired []Handle
	w.store.Each(func(h Handle, weak *ptr.WeakRef[T]) bool {
		if weak.Expired() {
			expired = append(expired, h)
		}
		return true
	})
	for _, h := range expired {
		if err := w.Drop(h); err != nil {
			Logger().Debug("prune skipped handle", zap.Uint32("handle", uint32(h)), zap.Error(err))
		}
	}
	return len(expired)
}

// Close drops every weak handle and stops accepting inserts.
func (w *WeakTable[T]) Close() error {
	for _, weak := range w.store.Drain(true) {
		weak.Drop()
	}
	return nil
}
