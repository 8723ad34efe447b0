package ptr

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/ownership"
	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/refcount"
)

// deleter is the type-erased destroy hook shared by every handle of one
// object. It is bound to the concrete pointer given at construction, so
// deleting through a base-typed handle still runs the derived hook.
type deleter struct {
	fn        func()
	obj       any
	typ       reflect.Type
	destroyed atomic.Bool
	released  atomic.Bool
}

func newDeleter[T any](p *T, fn func(*T)) *deleter {
	d := &deleter{obj: p, typ: reflect.TypeFor[*T]()}
	if fn == nil {
		d.fn = func() { ownership.Destroy(p) }
	} else {
		d.fn = func() { fn(p) }
	}
	stats.objectsCreated.Add(1)
	logLifecycle("object created", d)
	return d
}

func (d *deleter) name() string {
	if d == nil {
		return "<nil>"
	}
	return d.typ.String()
}

// destroy runs the deleter. The object reference is dropped first so the
// collector can reclaim it once the last handle pointer goes away.
func (d *deleter) destroy(phase errors.Phase) {
	if !d.destroyed.CompareAndSwap(false, true) {
		violate(errors.New(phase, errors.KindDoubleRelease).
			GoType(d.name()).
			Detail("object destroyed twice").
			Build())
		return
	}
	fn := d.fn
	d.fn, d.obj = nil, nil
	fn()
	stats.objectsDestroyed.Add(1)
	logLifecycle("object destroyed", d)
}

// abandon forgets the object without running the deleter.
func (d *deleter) abandon() {
	d.destroyed.Store(true)
	d.fn, d.obj = nil, nil
	stats.objectsReleased.Add(1)
	logLifecycle("object released", d)
}

func (d *deleter) release(phase errors.Phase) {
	if !d.released.CompareAndSwap(false, true) {
		violate(errors.DoubleRelease(phase, d.name()))
		return
	}
	stats.blocksReleased.Add(1)
	logLifecycle("block released", d)
}

func newBlock() *refcount.Counter {
	stats.blocksAllocated.Add(1)
	return refcount.New()
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}

// releaseStrong drops one strong reference and runs whatever the transition
// requires. It returns the remaining strong count.
func releaseStrong(phase errors.Phase, op string, rc *refcount.Counter, d *deleter) uint32 {
	tr := rc.ReleaseStrong()
	if tr.Underflow {
		violate(errors.New(phase, errors.KindUnderflow).
			Op(op).
			GoType(d.name()).
			Detail("strong count already zero").
			Build())
		return 0
	}
	if tr.Zero {
		d.destroy(phase)
	}
	if tr.Released {
		d.release(phase)
	}
	return tr.Count
}

// releaseWeak drops one weak reference and returns the remaining weak count.
func releaseWeak(phase errors.Phase, op string, rc *refcount.Counter, d *deleter) uint32 {
	tr := rc.ReleaseWeak()
	if tr.Underflow {
		violate(errors.New(phase, errors.KindUnderflow).
			Op(op).
			GoType(d.name()).
			Detail("weak count already zero").
			Build())
		return 0
	}
	if tr.Released {
		d.release(phase)
	}
	return tr.Count
}
