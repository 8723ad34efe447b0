package resource

import (
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/go-multierror"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

type file struct {
	closed *atomic.Int32
	name   string
}

func (f *file) Destroy() {
	f.closed.Add(1)
}

func newFile(name string) (*ptr.Ref[file], *atomic.Int32) {
	n := &atomic.Int32{}
	return ptr.NewRef(&file{name: name, closed: n}), n
}

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func isKind(err error, kind errors.Kind) bool {
	return stderrors.Is(err, &errors.Error{Phase: errors.PhaseTable, Kind: kind})
}

func TestTable_Basic(t *testing.T) {
	table := NewTable[file]("files")
	r, closed := newFile("a.txt")

	h := table.Insert(r)
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}
	if r.Valid() {
		t.Fatal("Insert should move the reference in")
	}

	f, ok := table.Get(h)
	if !ok || f.name != "a.txt" {
		t.Fatalf("Get = %v, %v", f, ok)
	}
	if n, _ := table.StrongCount(h); n != 1 {
		t.Fatalf("StrongCount = %d, want 1", n)
	}

	if err := table.Remove(h); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if closed.Load() != 1 {
		t.Fatal("Remove did not drop the last reference")
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if err := table.Remove(h); !isKind(err, errors.KindInvalidHandle) {
		t.Fatalf("second Remove err = %v", err)
	}
}

func TestTable_InsertEmpty(t *testing.T) {
	table := NewTable[file]("")
	if h := table.Insert(&ptr.Ref[file]{}); h != 0 {
		t.Fatalf("Insert of empty ref = %d", h)
	}
	if table.Name() != "*resource.file" {
		t.Errorf("default name = %q", table.Name())
	}
}

func TestTable_Clone(t *testing.T) {
	table := NewTable[file]("files")
	r, closed := newFile("shared")
	h1 := table.Insert(r)

	h2, err := table.Clone(h1)
	if err != nil {
		t.Fatal(err)
	}
	if h2 == h1 {
		t.Fatal("Clone returned the same handle")
	}
	if n, _ := table.StrongCount(h1); n != 2 {
		t.Fatalf("StrongCount = %d, want 2", n)
	}

	table.Remove(h1)
	if closed.Load() != 0 {
		t.Fatal("object destroyed while second handle alive")
	}
	table.Remove(h2)
	if closed.Load() != 1 {
		t.Fatal("object not destroyed after last handle removed")
	}
}

func TestTable_Borrow(t *testing.T) {
	table := NewTable[file]("files")
	r, closed := newFile("borrowed")
	h := table.Insert(r)

	f, err := table.Borrow(h)
	if err != nil || f.name != "borrowed" {
		t.Fatalf("Borrow = %v, %v", f, err)
	}
	if n, _ := table.StrongCount(h); n != 2 {
		t.Fatalf("StrongCount during borrow = %d, want 2", n)
	}
	if table.Borrows(h) != 1 {
		t.Fatalf("Borrows = %d", table.Borrows(h))
	}

	if err := table.Remove(h); !isKind(err, errors.KindOutstandingBorrow) {
		t.Fatalf("Remove during borrow err = %v", err)
	}
	if _, err := table.Take(h); !isKind(err, errors.KindOutstandingBorrow) {
		t.Fatalf("Take during borrow err = %v", err)
	}

	if err := table.ReturnBorrow(h); err != nil {
		t.Fatal(err)
	}
	if err := table.ReturnBorrow(h); !isKind(err, errors.KindUnderflow) {
		t.Fatalf("extra ReturnBorrow err = %v", err)
	}
	if n, _ := table.StrongCount(h); n != 1 {
		t.Fatalf("StrongCount after return = %d, want 1", n)
	}

	if err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if closed.Load() != 1 {
		t.Fatal("object not destroyed")
	}
}

func TestTable_Take(t *testing.T) {
	table := NewTable[file]("files")
	r, closed := newFile("owned")
	h := table.Insert(r)

	out, err := table.Take(h)
	if err != nil {
		t.Fatal(err)
	}
	if table.Len() != 0 {
		t.Fatal("Take left the handle in the table")
	}
	if out.RefCount() != 1 || closed.Load() != 0 {
		t.Fatal("Take changed ownership")
	}
	out.Drop()
	if closed.Load() != 1 {
		t.Fatal("taken reference did not own the object")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable[file]("files")
	obs := &testObserver{}
	table.Subscribe(obs)

	r, _ := newFile("observed")
	addr := r.Address()
	h := table.Insert(r)
	table.Borrow(h)
	table.ReturnBorrow(h)
	out, _ := table.Take(h)
	defer out.Drop()

	want := []EventType{EventCreated, EventBorrowed, EventBorrowReturned, EventTransferred}
	if len(obs.events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(obs.events))
	}
	for i, e := range obs.events {
		if e.Type != want[i] {
			t.Errorf("event %d = %s, want %s", i, e.Type, want[i])
		}
		if e.Handle != h || e.Address != addr || e.Table != table.ID() {
			t.Errorf("event %d = %+v", i, e)
		}
	}
	if obs.events[1].Strong != 2 || obs.events[1].Borrows != 1 {
		t.Errorf("borrow event = %+v", obs.events[1])
	}

	table.Unsubscribe(obs)
	r2, _ := newFile("quiet")
	table.Insert(r2)
	if len(obs.events) != len(want) {
		t.Fatal("Observer still receiving events after Unsubscribe")
	}
	table.Clear()
}

func TestTable_Each(t *testing.T) {
	table := NewTable[file]("files")
	for _, name := range []string{"a", "b", "c"} {
		r, _ := newFile(name)
		table.Insert(r)
	}

	seen := map[string]bool{}
	table.Each(func(h Handle, f *file) bool {
		seen[f.name] = true
		return true
	})
	if len(seen) != 3 {
		t.Fatalf("Each visited %v", seen)
	}

	count := 0
	table.Each(func(Handle, *file) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Each did not stop early: %d", count)
	}

	table.Clear()
	if table.Len() != 0 {
		t.Fatalf("Len after Clear = %d", table.Len())
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable[file]("files")
	r1, closed1 := newFile("one")
	r2, closed2 := newFile("two")
	h1 := table.Insert(r1)
	h2 := table.Insert(r2)
	table.Borrow(h2)
	table.Borrow(h2)

	err := table.Close()
	var merr *multierror.Error
	if !stderrors.As(err, &merr) || len(merr.Errors) != 1 {
		t.Fatalf("Close err = %v", err)
	}
	if !isKind(merr.Errors[0], errors.KindOutstandingBorrow) {
		t.Fatalf("Close error = %v", merr.Errors[0])
	}
	if closed1.Load() != 1 || closed2.Load() != 1 {
		t.Fatal("Close did not reclaim every object")
	}

	if _, ok := table.Get(h1); ok {
		t.Fatal("Get after Close succeeded")
	}
	r3, closed3 := newFile("late")
	if h := table.Insert(r3); h != 0 {
		t.Fatal("Insert after Close succeeded")
	}
	if !r3.Valid() {
		t.Fatal("failed Insert consumed the reference")
	}
	r3.Drop()
	if closed3.Load() != 1 {
		t.Fatal("reference not restored after failed Insert")
	}
	if err := table.Close(); err != nil {
		t.Fatalf("second Close err = %v", err)
	}
	_ = h2
}

func TestTable_ConcurrentBorrow(t *testing.T) {
	table := NewTable[file]("files")
	r, closed := newFile("hot")
	h := table.Insert(r)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				if _, err := table.Borrow(h); err != nil {
					t.Error(err)
					return
				}
				if err := table.ReturnBorrow(h); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if n, _ := table.StrongCount(h); n != 1 {
		t.Fatalf("StrongCount = %d, want 1", n)
	}
	table.Remove(h)
	if closed.Load() != 1 {
		t.Fatal("object not destroyed")
	}
}

func TestTable_UnsubscribeFunc(t *testing.T) {
	table := NewTable[file]("files")
	var seen int
	fn := ObserverFunc(func(Event) { seen++ })
	unsubscribe := table.Subscribe(fn)
	other := &testObserver{}
	table.Subscribe(other)

	r, _ := newFile("a")
	table.Insert(r)
	if seen != 1 {
		t.Fatalf("seen = %d, want 1", seen)
	}

	// Not comparable: ignored rather than panicking.
	table.Unsubscribe(fn)
	table.Unsubscribe(nil)

	unsubscribe()
	unsubscribe()
	r2, _ := newFile("b")
	table.Insert(r2)
	if seen != 1 {
		t.Fatalf("func observer still subscribed: seen = %d", seen)
	}
	if len(other.events) != 2 {
		t.Fatalf("other observer got %d events, want 2", len(other.events))
	}
	table.Clear()
}
