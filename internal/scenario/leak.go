package scenario

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

// LeakKind selects the handle type a leak run exercises.
type LeakKind string

const (
	LeakScope LeakKind = "scope"
	LeakRef   LeakKind = "ref"
	LeakWeak  LeakKind = "weak"
)

// LeakKinds lists every supported kind in run order.
var LeakKinds = []LeakKind{LeakScope, LeakRef, LeakWeak}

// ParseLeakKind parses a kind name case-insensitively.
func ParseLeakKind(s string) (LeakKind, error) {
	k := LeakKind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case LeakScope, LeakRef, LeakWeak:
		return k, nil
	}
	return "", errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown leak kind %q", s))
}

// LeakReport summarizes one leak run.
type LeakReport struct {
	Kind       LeakKind
	Iterations int
	Destroyed  int64
	Stats      ptr.Stats // counter delta over the run
}

type leakProbe struct {
	destroyed *atomic.Int64
	index     int
}

func (p *leakProbe) Destroy() { p.destroyed.Add(1) }

// Leak creates and drops n objects under the given handle kind and checks
// that every one was destroyed and every counter block released. It
// assumes no other goroutine is creating handles while it runs.
func Leak(kind LeakKind, n int) (LeakReport, error) {
	if n < 0 {
		return LeakReport{}, errors.InvalidInput(errors.PhaseConfig, "iterations must not be negative")
	}

	var destroyed atomic.Int64
	before := ptr.ReadStats()

	var step func(i int)
	switch kind {
	case LeakScope:
		step = func(i int) {
			s := ptr.NewScope(&leakProbe{destroyed: &destroyed, index: i})
			_ = s.Deref().index
			s.Drop()
		}
	case LeakRef:
		step = func(i int) {
			r := ptr.NewRef(&leakProbe{destroyed: &destroyed, index: i})
			c := r.Clone()
			_ = c.Deref().index
			c.Drop()
			r.Drop()
		}
	case LeakWeak:
		step = func(i int) {
			r := ptr.NewRef(&leakProbe{destroyed: &destroyed, index: i})
			w := r.Weak()
			if l := w.Lock(); l.Valid() {
				_ = l.Deref().index
				l.Drop()
			}
			r.Drop()
			if l := w.Lock(); l.Valid() {
				l.Drop()
			}
			w.Drop()
		}
	default:
		return LeakReport{}, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown leak kind %q", kind))
	}

	for i := range n {
		step(i)
	}

	report := LeakReport{
		Kind:       kind,
		Iterations: n,
		Destroyed:  destroyed.Load(),
		Stats:      ptr.ReadStats().Sub(before),
	}
	return report, report.verify()
}

func (r LeakReport) verify() error {
	var result *multierror.Error
	phase := leakPhase(r.Kind)
	if r.Destroyed != int64(r.Iterations) {
		result = multierror.Append(result, errors.New(phase, errors.KindLeak).
			Detail("destroyed %d of %d objects", r.Destroyed, r.Iterations).Build())
	}
	if live := r.Stats.LiveObjects(); live != 0 {
		result = multierror.Append(result, errors.New(phase, errors.KindLeak).
			Detail("%d objects still live", live).Build())
	}
	if live := r.Stats.LiveBlocks(); live != 0 {
		result = multierror.Append(result, errors.New(phase, errors.KindLeak).
			Detail("%d counter blocks still live", live).Build())
	}
	if r.Stats.Violations != 0 {
		result = multierror.Append(result, errors.New(phase, errors.KindLeak).
			Detail("%d contract violations", r.Stats.Violations).Build())
	}
	return result.ErrorOrNil()
}

func leakPhase(k LeakKind) errors.Phase {
	switch k {
	case LeakScope:
		return errors.PhaseScope
	case LeakWeak:
		return errors.PhaseWeak
	default:
		return errors.PhaseRef
	}
}
