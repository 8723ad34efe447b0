package scenario

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/wippyai/ownership/errors"
)

func TestWalkthroughs(t *testing.T) {
	tests := []struct {
		name string
		run  func(w *bytes.Buffer)
		want []string
	}{
		{
			name: "scope",
			run:  func(w *bytes.Buffer) { ScopeWalkthrough(w) },
			want: []string{
				"source scope address after move: 0x0",
				"moved I1: 9223372036854775807",
				"derived destroyed at",
				"base number: 21",
				"int scope: 11",
				"int scope address after release: 0x0",
				"released value: 11",
			},
		},
		{
			name: "ref",
			run:  func(w *bytes.Buffer) { RefWalkthrough(w) },
			want: []string{
				"ref count: 1",
				"ref count after clone: 2",
				"ref count after clone reset: 1",
				"sample destroyed at",
				"derived.DoSomething called on",
			},
		},
		{
			name: "weak",
			run:  func(w *bytes.Buffer) { WeakWalkthrough(w) },
			want: []string{
				"ref count after weak: 1",
				"weak has expired",
				"ref count after lock: 2",
				"ref count in lock after reset: 1",
				"locked number: 21",
				"lock failed, weak has expired",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.run(&buf)
			out := buf.String()
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestWalkthroughDestroyOrder(t *testing.T) {
	var buf bytes.Buffer
	RefWalkthrough(&buf)
	out := buf.String()

	d := strings.Index(out, "derived destroyed at")
	b := strings.Index(out, "base destroyed at")
	if d < 0 || b < 0 || d > b {
		t.Fatalf("derived must be destroyed before base:\n%s", out)
	}
}

func TestLeak(t *testing.T) {
	for _, kind := range LeakKinds {
		t.Run(string(kind), func(t *testing.T) {
			report, err := Leak(kind, 1000)
			if err != nil {
				t.Fatalf("Leak failed: %v", err)
			}
			if report.Destroyed != 1000 {
				t.Errorf("Destroyed = %d, want 1000", report.Destroyed)
			}
			if report.Stats.ObjectsCreated != 1000 {
				t.Errorf("ObjectsCreated = %d, want 1000", report.Stats.ObjectsCreated)
			}
		})
	}
}

func TestLeak_InvalidInput(t *testing.T) {
	if _, err := Leak("arena", 1); !isInvalidInput(err) {
		t.Errorf("unknown kind: got %v", err)
	}
	if _, err := Leak(LeakRef, -1); err == nil {
		t.Error("negative iterations accepted")
	}
}

func isInvalidInput(err error) bool {
	return stderrors.Is(err, &errors.Error{Phase: errors.PhaseConfig, Kind: errors.KindInvalidInput})
}

func TestParseLeakKind(t *testing.T) {
	tests := []struct {
		in      string
		want    LeakKind
		wantErr bool
	}{
		{"scope", LeakScope, false},
		{" Ref ", LeakRef, false},
		{"WEAK", LeakWeak, false},
		{"unique", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLeakKind(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLeakKind(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLeakKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStress(t *testing.T) {
	var calls int
	report, err := Stress(context.Background(), StressConfig{
		Goroutines: 8,
		Rounds:     200,
		Progress:   func(round, total int) { calls++ },
	})
	if err != nil {
		t.Fatalf("Stress failed: %v", err)
	}
	if report.Rounds != 200 || report.Destroyed != 200 {
		t.Errorf("report = %+v, want 200 rounds and 200 destructions", report)
	}
	if calls != 200 {
		t.Errorf("progress called %d times, want 200", calls)
	}
	if report.Stats.LiveBlocks() != 0 {
		t.Errorf("live blocks after stress: %d", report.Stats.LiveBlocks())
	}
	if report.Promotions+report.LockMisses != report.Attempts {
		t.Errorf("promotions %d + misses %d != attempts %d", report.Promotions, report.LockMisses, report.Attempts)
	}
	// Every round ends with at least one promotion that finds the object gone.
	if report.LockMisses < int64(report.Rounds) {
		t.Errorf("LockMisses = %d, want at least %d", report.LockMisses, report.Rounds)
	}
	if report.Stats.LockFailures < uint64(report.LockMisses) {
		t.Errorf("LockFailures = %d, want at least %d", report.Stats.LockFailures, report.LockMisses)
	}
}

func TestStress_CancelledMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	report, err := Stress(ctx, StressConfig{
		Goroutines: 4,
		Rounds:     1000,
		Progress: func(round, _ int) {
			if round == 10 {
				cancel()
			}
		},
	})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if report.Rounds != 10 || report.Destroyed != 10 {
		t.Errorf("report = %+v, want 10 rounds and 10 destructions", report)
	}
	if report.Stats.LiveBlocks() != 0 {
		t.Errorf("live blocks after cancellation: %d", report.Stats.LiveBlocks())
	}
}

func TestStress_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := Stress(ctx, StressConfig{Goroutines: 2, Rounds: 10})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if report.Rounds != 0 {
		t.Errorf("Rounds = %d, want 0", report.Rounds)
	}
}

func TestStress_InvalidConfig(t *testing.T) {
	if _, err := Stress(context.Background(), StressConfig{}); !isInvalidInput(err) {
		t.Errorf("got %v", err)
	}
}
