// Package scenario holds the demo, leak and stress programs driven by ownctl.
package scenario

import (
	"fmt"
	"io"
	"math"

	"github.com/wippyai/ownership/ptr"
)

type sample struct {
	out    io.Writer
	f1, f2 float32
	i1     int64
}

func newSample(out io.Writer, f1, f2 float32, i1 int64) *sample {
	return &sample{out: out, f1: f1, f2: f2, i1: i1}
}

func (s *sample) Destroy() {
	fmt.Fprintf(s.out, "sample destroyed at %p\n", s)
}

type actor interface {
	DoSomething()
	DoSomethingElse()
}

// base dispatches to the concrete type that embeds it.
type base struct {
	out    io.Writer
	self   actor
	number int
}

func (b *base) DoSomething()     { b.self.DoSomething() }
func (b *base) DoSomethingElse() { b.self.DoSomethingElse() }

func (b *base) Destroy() {
	fmt.Fprintf(b.out, "base destroyed at %p\n", b)
}

type derived struct {
	base
}

func newDerived(out io.Writer, number int) *derived {
	d := &derived{base: base{out: out, number: number}}
	d.self = d
	return d
}

func (d *derived) DoSomething() {
	fmt.Fprintf(d.out, "derived.DoSomething called on %p\n", d)
}

func (d *derived) DoSomethingElse() {
	fmt.Fprintf(d.out, "derived.DoSomethingElse called on %p\n", d)
}

// Destroy runs before the base destructor, like any derived-first teardown.
func (d *derived) Destroy() {
	fmt.Fprintf(d.out, "derived destroyed at %p\n", d)
	d.base.Destroy()
}

func upcast(d *derived) *base { return &d.base }

func banner(w io.Writer, title string) {
	fmt.Fprintln(w, "----------------------------------------------------------------")
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "----------------------------------------------------------------")
	fmt.Fprintln(w)
}

// ScopeWalkthrough demonstrates exclusive ownership: move, reset,
// polymorphic destruction and Release.
func ScopeWalkthrough(w io.Writer) {
	banner(w, "Scope")

	s := ptr.NewScope(newSample(w, 23.5, 19.2, math.MaxInt64))
	fmt.Fprintf(w, "scope address: %v\n", s)

	moved := s.Move()
	fmt.Fprintf(w, "moved scope address: %v\n", moved)
	fmt.Fprintf(w, "source scope address after move: %v\n", s)

	v := moved.Deref()
	fmt.Fprintf(w, "moved F1: %g\n", v.f1)
	fmt.Fprintf(w, "moved F2: %g\n", v.f2)
	fmt.Fprintf(w, "moved I1: %d\n", v.i1)
	moved.Reset()

	b := ptr.NewScopeFrom(newDerived(w, 21), upcast)
	b.Deref().DoSomething()
	b.Deref().DoSomethingElse()
	fmt.Fprintf(w, "base number: %d\n", b.Deref().number)
	b.Reset()

	func() {
		inner := ptr.NewScope(newSample(w, 22, -65, math.MinInt64))
		defer inner.Drop()
		fmt.Fprintf(w, "inner address: %v\n", inner)
		fmt.Fprintf(w, "inner F1: %g\n", inner.Deref().f1)
		fmt.Fprintf(w, "inner F2: %g\n", inner.Deref().f2)
		fmt.Fprintf(w, "inner I1: %d\n", inner.Deref().i1)
	}()

	n := ptr.MakeScope(11)
	fmt.Fprintf(w, "int scope: %d\n", *n.Deref())
	fmt.Fprintf(w, "int scope address: %v\n", n)
	raw := n.Release()
	fmt.Fprintf(w, "int scope address after release: %v\n", n)
	fmt.Fprintf(w, "released value: %d\n", *raw)
	fmt.Fprintf(w, "released address: %v\n", ptr.AddressOf(raw))
}

// RefWalkthrough demonstrates shared ownership and reference counting.
func RefWalkthrough(w io.Writer) {
	banner(w, "Ref")

	r := ptr.NewRef(newSample(w, 23.5, 19.2, math.MaxInt64))
	fmt.Fprintf(w, "ref count: %d\n", r.RefCount())

	c := r.Clone()
	fmt.Fprintf(w, "ref count after clone: %d\n", r.RefCount())

	v := r.Deref()
	fmt.Fprintf(w, "F1: %g\n", v.f1)
	fmt.Fprintf(w, "F2: %g\n", v.f2)
	fmt.Fprintf(w, "I1: %d\n", v.i1)

	c.Reset()
	fmt.Fprintf(w, "ref count after clone reset: %d\n", r.RefCount())
	r.Reset()

	b := ptr.NewRefFrom(newDerived(w, 21), upcast)
	b.Deref().DoSomething()
	b.Deref().DoSomethingElse()
	fmt.Fprintf(w, "base number: %d\n", b.Deref().number)
	b.Drop()
}

// WeakWalkthrough demonstrates weak observation, expiry and Lock.
func WeakWalkthrough(w io.Writer) {
	banner(w, "WeakRef")

	r := ptr.NewRef(newSample(w, 23.5, 19.2, math.MaxInt64))
	fmt.Fprintf(w, "ref count: %d\n", r.RefCount())

	weak := r.Weak()
	fmt.Fprintf(w, "ref count after weak: %d\n", weak.RefCount())

	v := r.Deref()
	fmt.Fprintf(w, "F1: %g\n", v.f1)
	fmt.Fprintf(w, "F2: %g\n", v.f2)
	fmt.Fprintf(w, "I1: %d\n", v.i1)

	r.Reset()
	fmt.Fprintf(w, "ref count after reset: %d\n", r.RefCount())
	fmt.Fprintf(w, "weak count: %d\n", weak.RefCount())
	if weak.Expired() {
		fmt.Fprintln(w, "weak has expired")
	}
	weak.Reset()

	b := ptr.NewRefFrom(newDerived(w, 21), upcast)
	b.Deref().DoSomething()
	b.Deref().DoSomethingElse()
	fmt.Fprintf(w, "base number: %d\n", b.Deref().number)

	bw := b.Weak()
	if locked := bw.Lock(); locked.Valid() {
		fmt.Fprintf(w, "ref count after lock: %d\n", bw.RefCount())
		b.Reset()
		fmt.Fprintf(w, "ref count in lock after reset: %d\n", bw.RefCount())
		locked.Deref().DoSomething()
		locked.Deref().DoSomethingElse()
		fmt.Fprintf(w, "locked number: %d\n", locked.Deref().number)
		locked.Drop()
	}

	if locked := bw.Lock(); locked.Valid() {
		locked.Drop()
	} else {
		fmt.Fprintln(w, "lock failed, weak has expired")
	}
	bw.Drop()
}
