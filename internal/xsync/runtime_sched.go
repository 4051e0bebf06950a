package xsync

import (
	_ "unsafe"
)

//go:linkname osYield runtime.osyield
func osYield()

// OsYield yields the OS thread. spinLock's backoff does not call it; its
// last-resort step is runtime.Gosched.
func OsYield() {
	osYield()
}

//go:linkname procYield runtime.procyield
func procYield(cycles uint32)

// ProcYield spins the CPU for the given cycle count (PAUSE on amd64),
// the first line of defense in a spin lock's backoff ladder.
func ProcYield(cycles uint32) {
	procYield(cycles)
}
