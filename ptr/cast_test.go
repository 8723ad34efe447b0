package ptr

import (
	"slices"
	"testing"
)

type shape struct {
	log  *[]string
	name string
}

func (s *shape) Destroy() {
	*s.log = append(*s.log, "shape")
}

type circle struct {
	shape
	radius float64
}

func (c *circle) Destroy() {
	*c.log = append(*c.log, "circle")
	c.shape.Destroy()
}

type square struct {
	shape
	side float64
}

type label struct {
	text string
}

type badge struct {
	circle
	*label
}

func newCircle(log *[]string) *circle {
	return &circle{shape: shape{log: log, name: "circle"}, radius: 2}
}

func upcastCircle(c *circle) *shape { return &c.shape }

func TestPolymorphicDeletion(t *testing.T) {
	var log []string
	r := NewRefFrom(newCircle(&log), upcastCircle)
	if r.Deref().name != "circle" {
		t.Fatalf("name = %q", r.Deref().name)
	}

	c := r.Clone()
	r.Drop()
	if len(log) != 0 {
		t.Fatal("destroyed while clone alive")
	}
	c.Drop()

	if want := []string{"circle", "shape"}; !slices.Equal(log, want) {
		t.Fatalf("destroy order = %v, want %v", log, want)
	}
}

func TestPolymorphicScope(t *testing.T) {
	var log []string
	s := NewScopeFrom(newCircle(&log), upcastCircle)
	s.Drop()
	if want := []string{"circle", "shape"}; !slices.Equal(log, want) {
		t.Fatalf("destroy order = %v, want %v", log, want)
	}

	log = nil
	derived := NewScope(newCircle(&log))
	base := ScopeFrom(derived, upcastCircle)
	if derived.Valid() || !base.Valid() {
		t.Fatal("ScopeFrom did not move ownership")
	}
	base.Drop()
	if want := []string{"circle", "shape"}; !slices.Equal(log, want) {
		t.Fatalf("destroy order = %v, want %v", log, want)
	}
}

func TestAliasKeepsParentAlive(t *testing.T) {
	w, destroyed := newWidget("parent")
	r := NewRef(w)
	name := Alias(r, &w.name)
	if r.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", r.RefCount())
	}

	r.Drop()
	if destroyed.Load() != 0 {
		t.Fatal("parent destroyed while alias alive")
	}
	if *name.Deref() != "parent" {
		t.Errorf("alias reads %q", *name.Deref())
	}

	name.Drop()
	if destroyed.Load() != 1 {
		t.Fatalf("destroyed = %d, want 1", destroyed.Load())
	}
}

func TestAliasEmptyOwner(t *testing.T) {
	v := 3
	if a := Alias(&Ref[widget]{}, &v); a.Valid() {
		t.Error("alias of empty owner is valid")
	}
	w, _ := newWidget("w")
	r := NewRef(w)
	defer r.Drop()
	if a := Alias[int](r, nil); a.Valid() || r.RefCount() != 1 {
		t.Error("alias of nil pointer changed state")
	}
}

func TestAliasMove(t *testing.T) {
	w, destroyed := newWidget("w")
	r := NewRef(w)
	v := AliasMove(r, &w.value)
	if r.Valid() || v.RefCount() != 1 {
		t.Fatalf("AliasMove: source valid=%v count=%d", r.Valid(), v.RefCount())
	}
	v.Drop()
	if destroyed.Load() != 1 {
		t.Fatal("object not destroyed")
	}
}

func TestDynamicCast(t *testing.T) {
	var log []string
	r := NewRefFrom(newCircle(&log), upcastCircle)
	defer r.Drop()

	down := DynamicCast[circle](r)
	if !down.Valid() || down.Deref().radius != 2 {
		t.Fatal("downcast to the owned type failed")
	}
	if r.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", r.RefCount())
	}

	up := DynamicCast[shape](down)
	if up.Raw() != r.Raw() {
		t.Error("upcast through embedding returned a different address")
	}

	before := ReadStats()
	bad := DynamicCast[square](r)
	if bad.Valid() {
		t.Fatal("cross cast to an unrelated type succeeded")
	}
	if r.RefCount() != 3 {
		t.Fatalf("failed cast changed count to %d", r.RefCount())
	}
	if ReadStats().Sub(before).CastFailures != 1 {
		t.Error("cast failure not counted")
	}

	same := DynamicCast[shape](r)
	if same.Raw() != r.Raw() {
		t.Error("identity cast changed address")
	}

	same.Drop()
	up.Drop()
	down.Drop()
	if len(log) != 0 {
		t.Fatal("destroyed early")
	}
}

func TestDynamicCastEmbeddedPointer(t *testing.T) {
	var log []string
	b := &badge{circle: *newCircle(&log), label: &label{text: "hi"}}
	r := NewRefFrom(b, func(b *badge) *shape { return &b.shape })
	defer r.Drop()

	l := DynamicCast[label](r)
	if !l.Valid() || l.Deref().text != "hi" {
		t.Fatal("cast to embedded pointer field failed")
	}
	l.Drop()

	c := DynamicCast[circle](r)
	if c.Raw() != &b.circle {
		t.Fatal("cast to embedded struct returned wrong address")
	}
	c.Drop()
}

func TestDynamicCastMove(t *testing.T) {
	var log []string
	r := NewRefFrom(newCircle(&log), upcastCircle)

	if bad := DynamicCastMove[square](r); bad.Valid() || !r.Valid() {
		t.Fatal("failed DynamicCastMove consumed the source")
	}

	c := DynamicCastMove[circle](r)
	if r.Valid() || c.RefCount() != 1 {
		t.Fatalf("DynamicCastMove: source valid=%v count=%d", r.Valid(), c.RefCount())
	}
	c.Drop()
	if want := []string{"circle", "shape"}; !slices.Equal(log, want) {
		t.Fatalf("destroy order = %v, want %v", log, want)
	}
}

func TestStaticAndReinterpretCast(t *testing.T) {
	var log []string
	r := NewRef(newCircle(&log))

	s := StaticCast(r, upcastCircle)
	if s.Raw() != &r.Raw().shape || r.RefCount() != 2 {
		t.Fatal("StaticCast did not alias")
	}

	ri := ReinterpretCast[shape](r)
	if ri.Address() != r.Address() {
		t.Error("ReinterpretCast changed address")
	}

	cc := ConstCast(r)
	if cc.Raw() != r.Raw() || r.RefCount() != 4 {
		t.Fatalf("ConstCast count = %d", r.RefCount())
	}

	moved := StaticCastMove(cc, upcastCircle)
	if cc.Valid() || r.RefCount() != 4 {
		t.Fatal("StaticCastMove did not consume")
	}
	if nilCast := StaticCast(r, func(*circle) *shape { return nil }); nilCast.Valid() || r.RefCount() != 4 {
		t.Fatal("nil StaticCast changed state")
	}

	rm := ReinterpretCastMove[shape](ConstCastMove(ri))
	if ri.Valid() || !rm.Valid() {
		t.Fatal("move casts did not transfer")
	}

	rm.Drop()
	moved.Drop()
	s.Drop()
	r.Drop()
	if want := []string{"circle", "shape"}; !slices.Equal(log, want) {
		t.Fatalf("destroy order = %v, want %v", log, want)
	}
}
