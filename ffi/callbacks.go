//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"sync"

	"github.com/ebitengine/purego"
)

var (
	callbackOnce sync.Once
	retainCB     uintptr
	releaseCB    uintptr
	countCB      uintptr
)

func initCallbacks() {
	callbackOnce.Do(func() {
		retainCB = purego.NewCallback(func(_ purego.CDecl, id uintptr) uintptr {
			return uintptr(Retain(id))
		})
		releaseCB = purego.NewCallback(func(_ purego.CDecl, id uintptr) uintptr {
			return uintptr(Release(id))
		})
		countCB = purego.NewCallback(func(_ purego.CDecl, id uintptr) uintptr {
			return uintptr(StrongCount(id))
		})
	})
}

// RetainCallback returns a C function pointer with the signature
// uintptr_t (*)(uintptr_t id) that calls Retain.
func RetainCallback() uintptr {
	initCallbacks()
	return retainCB
}

// ReleaseCallback returns a C function pointer that calls Release.
func ReleaseCallback() uintptr {
	initCallbacks()
	return releaseCB
}

// CountCallback returns a C function pointer that calls StrongCount.
func CountCallback() uintptr {
	initCallbacks()
	return countCB
}
