package refcount

import (
	"sync/atomic"
)

const (
	strongShift = 32
	strongOne   = uint64(1) << strongShift
	weakMask    = uint64(1)<<strongShift - 1
)

// Transition describes the effect of a single decrement.
type Transition struct {
	// Count is the value of the decremented count after the operation.
	Count uint32
	// Zero is set when this decrement moved the count from one to zero.
	Zero bool
	// Released is set when strong and weak are both zero after this
	// decrement. At most one decrement per Counter ever reports it.
	Released bool
	// Underflow is set when the count was already zero; nothing changed.
	Underflow bool
}

// Counter is an atomic strong/weak reference counter.
// The zero value is a released counter; use New.
type Counter struct {
	state atomic.Uint64
}

// New returns a counter with strong=1 and weak=0.
func New() *Counter {
	c := &Counter{}
	c.state.Store(strongOne)
	return c
}

func split(v uint64) (strong, weak uint32) {
	return uint32(v >> strongShift), uint32(v & weakMask)
}

// IncrementStrong adds a strong reference and returns the new strong count.
// The caller must already hold a strong reference.
func (c *Counter) IncrementStrong() uint32 {
	s, _ := split(c.state.Add(strongOne))
	return s
}

// IncrementWeak adds a weak reference and returns the new weak count.
func (c *Counter) IncrementWeak() uint32 {
	_, w := split(c.state.Add(1))
	return w
}

// DecrementStrong removes a strong reference and returns the new strong count.
func (c *Counter) DecrementStrong() uint32 {
	return c.ReleaseStrong().Count
}

// DecrementWeak removes a weak reference and returns the new weak count.
func (c *Counter) DecrementWeak() uint32 {
	return c.ReleaseWeak().Count
}

// ReleaseStrong removes a strong reference and reports the transition.
// When Zero is set the caller must destroy the object.
func (c *Counter) ReleaseStrong() Transition {
	for {
		old := c.state.Load()
		s, _ := split(old)
		if s == 0 {
			return Transition{Underflow: true}
		}
		next := old - strongOne
		if c.state.CompareAndSwap(old, next) {
			return Transition{
				Count:    s - 1,
				Zero:     s == 1,
				Released: next == 0,
			}
		}
	}
}

// ReleaseWeak removes a weak reference and reports the transition.
func (c *Counter) ReleaseWeak() Transition {
	for {
		old := c.state.Load()
		_, w := split(old)
		if w == 0 {
			return Transition{Underflow: true}
		}
		next := old - 1
		if c.state.CompareAndSwap(old, next) {
			return Transition{
				Count:    w - 1,
				Zero:     w == 1,
				Released: next == 0,
			}
		}
	}
}

// TryIncrementStrong adds a strong reference only if the strong count is
// currently non-zero. It returns the new count and whether it succeeded.
// A zero strong count is never incremented, so a destroyed object cannot be
// resurrected by a racing promotion.
func (c *Counter) TryIncrementStrong() (uint32, bool) {
	for {
		old := c.state.Load()
		s, _ := split(old)
		if s == 0 {
			return 0, false
		}
		if c.state.CompareAndSwap(old, old+strongOne) {
			return s + 1, true
		}
	}
}

// Strong returns the current strong count.
func (c *Counter) Strong() uint32 {
	s, _ := split(c.state.Load())
	return s
}

// Weak returns the current weak count.
func (c *Counter) Weak() uint32 {
	_, w := split(c.state.Load())
	return w
}

// Counts returns both counts from a single atomic load.
func (c *Counter) Counts() (strong, weak uint32) {
	return split(c.state.Load())
}

// Expired reports whether the strong count is zero.
func (c *Counter) Expired() bool {
	return c.Strong() == 0
}

// Released reports whether both counts are zero.
func (c *Counter) Released() bool {
	return c.state.Load() == 0
}
