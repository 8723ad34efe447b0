package ptr

import (
	stderrors "errors"
	"runtime"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ownership/errors"
)

func withDebug(t *testing.T) {
	t.Helper()
	prev := Debug()
	SetDebug(true)
	t.Cleanup(func() { SetDebug(prev) })
}

func TestEmptyDerefPanicsInDebug(t *testing.T) {
	withDebug(t)

	tests := []struct {
		name  string
		deref func()
		phase errors.Phase
	}{
		{"ref", func() { (&Ref[widget]{}).Deref() }, errors.PhaseRef},
		{"nil ref", func() { (*Ref[widget])(nil).Deref() }, errors.PhaseRef},
		{"scope", func() { (&Scope[widget]{}).Deref() }, errors.PhaseScope},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				err, ok := r.(*errors.Error)
				if !ok {
					t.Fatalf("recovered %v, want *errors.Error", r)
				}
				if err.Kind != errors.KindEmptyDeref || err.Phase != tt.phase {
					t.Errorf("error = %v", err)
				}
			}()
			tt.deref()
		})
	}
}

func TestEmptyDerefSilentOutsideDebug(t *testing.T) {
	prev := Debug()
	SetDebug(false)
	defer SetDebug(prev)

	if p := (&Ref[widget]{}).Deref(); p != nil {
		t.Error("Deref of empty ref returned non-nil")
	}
}

func TestViolationPanicsInDebug(t *testing.T) {
	withDebug(t)
	w, _ := newWidget("v")
	r := NewRef(w)
	u := NewUnsafe(r)
	r.Drop()

	defer func() {
		err, ok := recover().(*errors.Error)
		if !ok {
			t.Fatal("expected a structured panic")
		}
		if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseUnsafe, Kind: errors.KindUnderflow}) {
			t.Errorf("error = %v", err)
		}
	}()
	u.DecrementStrong()
}

func TestViolationLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	prev := Logger()
	SetLogger(zap.New(core))
	defer SetLogger(prev)
	got := captureViolations(t)

	before := ReadStats()
	w, _ := newWidget("logged")
	r := NewRef(w)
	u := NewUnsafe(r)
	r.Drop()
	u.DecrementWeak()

	if len(*got) != 1 {
		t.Fatalf("violations = %d, want 1", len(*got))
	}
	if ReadStats().Sub(before).Violations != 1 {
		t.Error("violation not counted")
	}
	entries := logs.FilterMessage("ownership contract violation").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	if kind := entries[0].ContextMap()["kind"]; kind != string(errors.KindUnderflow) {
		t.Errorf("logged kind = %v", kind)
	}
}

type leakProbe struct {
	_ [64]byte
}

func leakOne() {
	r := NewRef(&leakProbe{})
	_ = r.Clone()
}

func TestLeakDetection(t *testing.T) {
	withDebug(t)
	leaks := make(chan *errors.Error, 8)
	SetViolationHandler(func(err *errors.Error) {
		if err.Kind == errors.KindLeak {
			select {
			case leaks <- err:
			default:
			}
		}
	})
	defer SetViolationHandler(nil)

	leakOne()

	deadline := time.After(5 * time.Second)
	for reported := 0; reported < 2; {
		runtime.GC()
		select {
		case err := <-leaks:
			if err.GoType != "*ptr.leakProbe" {
				t.Errorf("leaked type = %q", err.GoType)
			}
			reported++
		case <-deadline:
			t.Fatalf("%d of 2 leaks reported", reported)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDroppedHandleNotReportedAsLeak(t *testing.T) {
	withDebug(t)
	before := ReadStats()

	func() {
		r := NewRef(&leakProbe{})
		c := r.Clone()
		w := r.Weak()
		s := NewScope(&leakProbe{})
		w.Drop()
		c.Drop()
		r.Drop()
		s.Drop()
	}()
	for range 3 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	if n := ReadStats().Sub(before).Leaks; n != 0 {
		t.Errorf("leaks = %d, want 0", n)
	}
}
