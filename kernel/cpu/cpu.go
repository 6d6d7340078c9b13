// Package cpu models the virtual cores of the emulated machine. Each core
// tracks its interrupt-enable flag and whether it has entered the frozen
// terminal state. The interrupt dispatcher consults the flag before delivering
// an IRQ to a core; the fatal path uses Freeze to park a core forever.
package cpu

import "sync/atomic"

var (
	// parkFn parks the calling goroutine forever. Mocked by tests so that
	// code paths ending in Freeze can be exercised without hanging.
	parkFn = func() { select {} }
)

// Core represents a single virtual CPU core.
type Core struct {
	id          int
	intsEnabled uint32
	frozen      uint32
}

// New returns a core with the given ID. Interrupts start disabled, matching
// hardware reset state; the boot sequence enables them explicitly.
func New(id int) *Core {
	return &Core{id: id}
}

// ID returns the core identifier.
func (c *Core) ID() int {
	return c.id
}

// EnableInterrupts allows interrupt delivery to this core.
func (c *Core) EnableInterrupts() {
	atomic.StoreUint32(&c.intsEnabled, 1)
}

// DisableInterrupts blocks interrupt delivery to this core.
func (c *Core) DisableInterrupts() {
	atomic.StoreUint32(&c.intsEnabled, 0)
}

// InterruptsEnabled returns true if the core accepts interrupts.
func (c *Core) InterruptsEnabled() bool {
	return atomic.LoadUint32(&c.intsEnabled) == 1
}

// Freeze moves the core to its terminal state and parks the calling
// goroutine forever. The frozen mark is visible to other goroutines; the
// state has no outgoing transitions.
func (c *Core) Freeze() {
	atomic.StoreUint32(&c.frozen, 1)
	parkFn()
}

// Frozen returns true once the core has entered its terminal state.
func (c *Core) Frozen() bool {
	return atomic.LoadUint32(&c.frozen) == 1
}
