//go:build !ios && !android && (amd64 || arm64)

package ffi

import (
	"testing"

	"github.com/ebitengine/purego"
)

func TestCallbacks(t *testing.T) {
	r, freed := newCodec("opus")
	id := Export(r)

	retain, release, count := RetainCallback(), ReleaseCallback(), CountCallback()
	if retain == 0 || release == 0 || count == 0 {
		t.Fatal("callbacks not created")
	}
	if RetainCallback() != retain {
		t.Fatal("callbacks recreated on second call")
	}

	if n, _, _ := purego.SyscallN(retain, id); n != 2 {
		t.Fatalf("retain via C = %d, want 2", n)
	}
	if n, _, _ := purego.SyscallN(count, id); n != 2 {
		t.Fatalf("count via C = %d, want 2", n)
	}
	purego.SyscallN(release, id)
	if n, _, _ := purego.SyscallN(release, id); n != 0 {
		t.Fatalf("final release via C = %d, want 0", n)
	}
	if freed.Load() != 1 {
		t.Fatal("not freed through C callbacks")
	}
}
