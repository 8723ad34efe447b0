package ptr

import (
	"os"
	"runtime"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/ownership/errors"
)

// DebugEnv is the environment variable read once at startup to enable debug
// mode.
const DebugEnv = "OWNERSHIP_DEBUG"

var (
	debugMode atomic.Bool
	handler   atomic.Pointer[ViolationHandler]
)

func init() {
	if v, ok := os.LookupEnv(DebugEnv); ok {
		on, _ := strconv.ParseBool(v)
		debugMode.Store(on)
	}
}

// SetDebug turns debug mode on or off.
//
// In debug mode contract violations panic (unless a ViolationHandler is set),
// Deref on an empty handle panics with an empty_deref error, and handles
// created while debug mode is on report a leak if they are garbage collected
// without Drop.
func SetDebug(on bool) {
	debugMode.Store(on)
}

// Debug reports whether debug mode is on.
func Debug() bool {
	return debugMode.Load()
}

// ViolationHandler receives contract violations and leak reports.
type ViolationHandler func(*errors.Error)

// SetViolationHandler installs h in place of the default policy of logging
// and, in debug mode, panicking. A nil h restores the default.
func SetViolationHandler(h ViolationHandler) {
	if h == nil {
		handler.Store(nil)
		return
	}
	handler.Store(&h)
}

func violate(err *errors.Error) {
	stats.violations.Add(1)
	Logger().Error("ownership contract violation",
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
		zap.Error(err))
	if h := handler.Load(); h != nil {
		(*h)(err)
		return
	}
	if Debug() {
		panic(err)
	}
}

func emptyDeref[T any](phase errors.Phase) {
	if Debug() {
		err := errors.EmptyDeref(phase, typeName[T]())
		stats.violations.Add(1)
		Logger().Error("ownership contract violation", zap.Error(err))
		panic(err)
	}
}

// leakGuard tracks the runtime cleanup registered for one live handle.
type leakGuard struct {
	cleanup runtime.Cleanup
	addr    uintptr
	armed   bool
}

type leakInfo struct {
	phase errors.Phase
	typ   string
	addr  uintptr
}

// watch arms or disarms the leak detector of handle h so that it matches
// the handle's current contents. It is called after every mutation.
func watch[H any](g *leakGuard, h *H, phase errors.Phase, addr uintptr, del *deleter) {
	live := addr != 0
	if g.armed && (!live || g.addr != addr) {
		g.cleanup.Stop()
		g.armed = false
	}
	if !live || g.armed || !Debug() {
		return
	}
	info := leakInfo{phase: phase, typ: del.name(), addr: addr}
	g.cleanup = runtime.AddCleanup(h, reportLeak, info)
	g.addr = addr
	g.armed = true
}

// reportLeak runs on the runtime's cleanup goroutine, so it never panics.
func reportLeak(info leakInfo) {
	stats.leaks.Add(1)
	err := errors.Leaked(info.phase, info.typ, info.addr)
	Logger().Warn("handle leaked", zap.Error(err))
	if h := handler.Load(); h != nil {
		(*h)(err)
	}
}
