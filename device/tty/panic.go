package tty

import (
	"bytes"
	"runtime"
	"sync/atomic"

	"minos/kernel/cpu"
	"minos/kernel/kfmt"
)

// maxStackFrames bounds the number of return addresses printed by Panic.
const maxStackFrames = 10

var (
	// callersFn walks the current call stack. Mocked by tests.
	callersFn = runtime.Callers

	// freezeFn moves a core to its terminal state. Mocked by tests so the
	// fatal path can be exercised without parking the test goroutine.
	freezeFn = func(core *cpu.Core) { core.Freeze() }
)

// Panic is the fatal-error path. It never returns.
//
// The sequence is deliberate: interrupts are disabled first so the core
// cannot be preempted mid-diagnostic, then the locking discipline is switched
// off so the banner is never blocked behind an output lock another core might
// hold forever, then the diagnostics are printed, and only then is the
// process-wide panic flag raised. Every other core freezes at its next output
// attempt; this core freezes here. Normal -> Panicked is the only transition
// and there is no way back.
func (c *Console) Panic(msg string) {
	core := c.cfg.CurrentCore()
	core.DisableInterrupts()

	atomic.StoreUint32(&c.locking, 0)

	w := &charWriter{c: c, attr: c.defaultAttr}
	kfmt.Fprintf(w, "\n\nPANIC on cpu %d: %s\n", core.ID(), msg)

	var pcs [maxStackFrames]uintptr
	frames := callersFn(2, pcs[:])
	kfmt.Fprintf(w, "STACK:\n")
	for i := 0; i < frames; i++ {
		kfmt.Fprintf(w, " %p\n", pcs[i])
	}
	kfmt.Fprintf(w, "HLT\n")

	atomic.StoreUint32(&c.panicked, 1)
	freezeFn(core)
}

// Panicf formats its arguments and routes them to Panic.
func (c *Console) Panicf(format string, args ...interface{}) {
	var buf bytes.Buffer
	kfmt.Fprintf(&buf, format, args...)
	c.Panic(buf.String())
}
