package ptr

import "sync/atomic"

var stats struct {
	objectsCreated   atomic.Uint64
	objectsDestroyed atomic.Uint64
	objectsReleased  atomic.Uint64
	blocksAllocated  atomic.Uint64
	blocksReleased   atomic.Uint64
	lockFailures     atomic.Uint64
	castFailures     atomic.Uint64
	violations       atomic.Uint64
	leaks            atomic.Uint64
}

// Stats is a snapshot of process-wide ownership counters.
type Stats struct {
	ObjectsCreated   uint64 // objects placed under a handle
	ObjectsDestroyed uint64 // deleters run
	ObjectsReleased  uint64 // objects handed back by Scope.Release
	BlocksAllocated  uint64
	BlocksReleased   uint64
	LockFailures     uint64 // WeakRef.Lock on an expired object
	CastFailures     uint64
	Violations       uint64
	Leaks            uint64 // handles collected without Drop (debug mode)
}

// ReadStats returns the current counters.
// Each field is loaded atomically; the snapshot as a whole is not.
func ReadStats() Stats {
	return Stats{
		ObjectsCreated:   stats.objectsCreated.Load(),
		ObjectsDestroyed: stats.objectsDestroyed.Load(),
		ObjectsReleased:  stats.objectsReleased.Load(),
		BlocksAllocated:  stats.blocksAllocated.Load(),
		BlocksReleased:   stats.blocksReleased.Load(),
		LockFailures:     stats.lockFailures.Load(),
		CastFailures:     stats.castFailures.Load(),
		Violations:       stats.violations.Load(),
		Leaks:            stats.leaks.Load(),
	}
}

// LiveObjects returns objects created but neither destroyed nor released.
func (s Stats) LiveObjects() uint64 {
	return s.ObjectsCreated - s.ObjectsDestroyed - s.ObjectsReleased
}

// LiveBlocks returns counter blocks not yet released.
func (s Stats) LiveBlocks() uint64 {
	return s.BlocksAllocated - s.BlocksReleased
}

// Sub returns the difference s - prev, field by field.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		ObjectsCreated:   s.ObjectsCreated - prev.ObjectsCreated,
		ObjectsDestroyed: s.ObjectsDestroyed - prev.ObjectsDestroyed,
		ObjectsReleased:  s.ObjectsReleased - prev.ObjectsReleased,
		BlocksAllocated:  s.BlocksAllocated - prev.BlocksAllocated,
		BlocksReleased:   s.BlocksReleased - prev.BlocksReleased,
		LockFailures:     s.LockFailures - prev.LockFailures,
		CastFailures:     s.CastFailures - prev.CastFailures,
		Violations:       s.Violations - prev.Violations,
		Leaks:            s.Leaks - prev.Leaks,
	}
}
