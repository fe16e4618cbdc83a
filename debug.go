package blink

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// debugAssert panics with the formatted message when debug checks are
// compiled in (build tag blinkdebug) and cond is false.
func debugAssert(cond bool, format string, args ...any) {
	if debugChecks && !cond {
		panic(fmt.Sprintf("blink: "+format, args...))
	}
}

// ownerGuard detects overlapping calls on a single-owner arena.
// It is only touched when debug checks are compiled in.
type ownerGuard struct {
	busy atomic.Bool
}

func (g *ownerGuard) enter() {
	if debugChecks && !g.busy.CompareAndSwap(false, true) {
		panic("blink: Arena used from two goroutines at once")
	}
}

func (g *ownerGuard) exit() {
	if debugChecks {
		g.busy.Store(false)
	}
}

// watchRelease installs a finalizer that panics if obj is collected while
// owns still reports chunks. It does nothing without debug checks.
func watchRelease[T any](obj *T, owns func(*T) bool, name string) {
	if !debugChecks {
		return
	}
	runtime.SetFinalizer(obj, func(o *T) {
		if owns(o) {
			panic("blink: " + name + " collected while still owning chunks; call Release first")
		}
	})
}
