package scenario

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/ownership/errors"
	"github.com/wippyai/ownership/ptr"
)

// StressConfig controls a Stress run.
type StressConfig struct {
	// Goroutines is the number of clones dropped concurrently per round.
	// The same number of goroutines race weak promotions against those
	// drops.
	Goroutines int
	Rounds     int
	// Progress, if set, is called after each completed round.
	Progress func(round, total int)
}

// StressReport summarizes a Stress run.
type StressReport struct {
	Rounds     int
	Destroyed  int64
	Attempts   int64 // weak promotions tried
	Promotions int64 // successful weak promotions
	LockMisses int64 // weak promotions that found the object expired
	Stats      ptr.Stats
}

type stressProbe struct {
	destroyed *atomic.Int64
	round     int
}

func (p *stressProbe) Destroy() { p.destroyed.Add(1) }

// Stress runs Rounds rounds. In each round Goroutines droppers each release
// one clone of a fresh Ref while as many lockers, holding only weak
// handles, promote and release until the object expires or every dropper
// is done. A final promotion after the round must miss. Each round must
// destroy its object exactly once. It stops early when ctx is cancelled.
func Stress(ctx context.Context, cfg StressConfig) (StressReport, error) {
	if cfg.Goroutines <= 0 || cfg.Rounds <= 0 {
		return StressReport{}, errors.InvalidInput(errors.PhaseConfig, "goroutines and rounds must be positive")
	}

	var (
		report StressReport
		result *multierror.Error
		tally  lockTally
	)
	before := ptr.ReadStats()

	for round := range cfg.Rounds {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}

		destroyed, err := stressRound(ctx, round, cfg.Goroutines, &tally)
		if err != nil {
			result = multierror.Append(result, err)
		}
		report.Destroyed += destroyed
		report.Rounds++

		if cfg.Progress != nil {
			cfg.Progress(round+1, cfg.Rounds)
		}
	}

	report.Attempts = tally.attempts.Load()
	report.Promotions = tally.promotions.Load()
	report.LockMisses = tally.misses.Load()
	report.Stats = ptr.ReadStats().Sub(before)
	if report.Promotions+report.LockMisses != report.Attempts {
		result = multierror.Append(result, errors.New(errors.PhaseWeak, errors.KindLeak).
			Detail("%d promotions and %d misses for %d attempts", report.Promotions, report.LockMisses, report.Attempts).
			Build())
	}
	return report, result.ErrorOrNil()
}

type lockTally struct {
	attempts   atomic.Int64
	promotions atomic.Int64
	misses     atomic.Int64
}

// stressRound races one object's drops against weak promotions and returns
// how many times it was destroyed.
func stressRound(ctx context.Context, round, n int, tally *lockTally) (int64, error) {
	var destroyed atomic.Int64
	r := ptr.NewRef(&stressProbe{destroyed: &destroyed, round: round})
	w := r.Weak()
	defer w.Drop()

	clones := make([]*ptr.Ref[stressProbe], n)
	for i := range clones {
		clones[i] = r.Clone()
	}
	r.Drop()

	g, gctx := errgroup.WithContext(ctx)
	start := make(chan struct{})
	dropped := make(chan struct{})
	var drops sync.WaitGroup
	drops.Add(n)
	go func() {
		drops.Wait()
		close(dropped)
	}()

	for _, c := range clones {
		g.Go(func() error {
			defer drops.Done()
			<-start
			c.Drop()
			return nil
		})
	}
	for range n {
		wc := w.Clone()
		g.Go(func() error {
			defer wc.Drop()
			<-start
			for {
				if !promote(wc, tally) {
					return nil
				}
				select {
				case <-dropped:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
			}
		})
	}
	close(start)

	var result *multierror.Error
	if err := g.Wait(); err != nil {
		result = multierror.Append(result, err)
	}
	if promote(w, tally) {
		result = multierror.Append(result, errors.New(errors.PhaseWeak, errors.KindExpired).
			Detail("round %d: promoted after every owner dropped", round).Build())
	}
	if !w.Expired() {
		result = multierror.Append(result, errors.New(errors.PhaseRef, errors.KindLeak).
			Detail("round %d: object alive after every owner dropped", round).Build())
	}
	if d := destroyed.Load(); d != 1 {
		result = multierror.Append(result, errors.New(errors.PhaseRef, errors.KindDoubleRelease).
			Detail("round %d: destroyed %d times", round, d).Build())
	}
	return destroyed.Load(), result.ErrorOrNil()
}

// promote tries one weak promotion and releases it at once.
func promote(w *ptr.WeakRef[stressProbe], tally *lockTally) bool {
	tally.attempts.Add(1)
	l := w.Lock()
	if !l.Valid() {
		tally.misses.Add(1)
		return false
	}
	tally.promotions.Add(1)
	l.Drop()
	return true
}
