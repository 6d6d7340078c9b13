// Package sync provides the synchronization primitives used by the kernel
// side of minos: spinlocks shared between task context and interrupt context.
package sync

import (
	"runtime"
	"sync/atomic"
)

var (
	// yieldFn hands the scheduling slot back to the host scheduler after a
	// burst of failed acquire attempts. Mocked by tests.
	yieldFn = runtime.Gosched
)

// spinsBeforeYield is the number of failed acquire attempts after which the
// spinning task yields instead of burning its whole slot.
const spinsBeforeYield = 64

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available. Any attempt to re-acquire a lock already
// held by the current task will cause a deadlock.
//
// Spinlock also satisfies sync.Locker so it can be handed to code expecting
// the standard Lock/Unlock pair.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
func (l *Spinlock) Acquire() {
	for spins := 0; ; spins++ {
		if atomic.LoadUint32(&l.state) == 0 && l.TryToAcquire() {
			return
		}

		if spins >= spinsBeforeYield {
			yieldFn()
			spins = 0
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// Lock implements sync.Locker.
func (l *Spinlock) Lock() { l.Acquire() }

// Unlock implements sync.Locker.
func (l *Spinlock) Unlock() { l.Release() }
