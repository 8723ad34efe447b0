package ptr

import (
	"bytes"
	"fmt"
	"slices"
	"testing"
)

func TestCompare(t *testing.T) {
	items := make([]widget, 2)
	lo := NewRefWithDeleter(&items[0], func(*widget) {})
	hi := NewRefWithDeleter(&items[1], func(*widget) {})
	defer lo.Drop()
	defer hi.Drop()
	loAlias := lo.Clone()
	defer loAlias.Drop()
	weak := lo.Weak()
	defer weak.Drop()

	tests := []struct {
		name string
		a, b Addresser
		want int
	}{
		{"same object", lo, loAlias, 0},
		{"ordered", lo, hi, -1},
		{"reversed", hi, lo, 1},
		{"raw pointer", lo, AddressOf(&items[0]), 0},
		{"weak and strong", weak, lo, 0},
		{"nil", &Ref[widget]{}, Nil, 0},
		{"nil interface", nil, Nil, 0},
		{"nil handle pointer", (*Ref[widget])(nil), Nil, 0},
		{"handle vs nil", lo, Nil, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare = %d, want %d", got, tt.want)
			}
			if got := Equal(tt.a, tt.b); got != (tt.want == 0) {
				t.Errorf("Equal = %v", got)
			}
			if got := Less(tt.a, tt.b); got != (tt.want < 0) {
				t.Errorf("Less = %v", got)
			}
		})
	}
}

func TestSortHandles(t *testing.T) {
	items := make([]widget, 3)
	refs := []*Ref[widget]{
		NewRefWithDeleter(&items[2], func(*widget) {}),
		NewRefWithDeleter(&items[0], func(*widget) {}),
		NewRefWithDeleter(&items[1], func(*widget) {}),
	}
	slices.SortFunc(refs, func(a, b *Ref[widget]) int { return Compare(a, b) })
	for i, r := range refs {
		if r.Raw() != &items[i] {
			t.Errorf("refs[%d] out of order", i)
		}
		r.Drop()
	}
}

func TestHash(t *testing.T) {
	w, _ := newWidget("h")
	r := NewRef(w)
	defer r.Drop()
	c := r.Clone()
	defer c.Drop()

	if Hash(r) != Hash(c) || Hash(r) != Hash(AddressOf(w)) {
		t.Error("equal addresses hash differently")
	}
	if Hash(Nil) != Hash(&Ref[widget]{}) {
		t.Error("empty handles hash differently from Nil")
	}

	set := map[Address]int{}
	set[r.Address()]++
	set[c.Address()]++
	if len(set) != 1 || set[AddressOf(w)] != 2 {
		t.Errorf("address map = %v", set)
	}
}

func TestFormat(t *testing.T) {
	w, _ := newWidget("f")
	r := NewRef(w)
	defer r.Drop()

	want := fmt.Sprintf("%p", w)
	if r.String() != want {
		t.Errorf("String = %q, want %q", r.String(), want)
	}

	var buf bytes.Buffer
	if _, err := Fprint(&buf, r); err != nil {
		t.Fatal(err)
	}
	if buf.String() != want {
		t.Errorf("Fprint wrote %q, want %q", buf.String(), want)
	}

	buf.Reset()
	Fprint(&buf, Nil)
	if buf.String() != "0x0" {
		t.Errorf("Fprint(Nil) = %q", buf.String())
	}
	if s := fmt.Sprint(r); s != want {
		t.Errorf("fmt.Sprint = %q", s)
	}
}
