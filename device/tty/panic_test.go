package tty

import (
	"strings"
	"testing"

	"minos/kernel/cpu"
)

func TestPanicPrintsBannerAndFreezes(t *testing.T) {
	defer func(origFreezeFn func(*cpu.Core)) { freezeFn = origFreezeFn }(freezeFn)
	defer func(origCallersFn func(int, []uintptr) int) { callersFn = origCallersFn }(callersFn)

	var frozenCore *cpu.Core
	freezeFn = func(core *cpu.Core) { frozenCore = core }
	callersFn = func(skip int, pcs []uintptr) int {
		pcs[0] = 0xdeadbeef
		pcs[1] = 0xcafebabe
		return 2
	}

	c, _, serial := newTestConsole()
	core := c.cfg.CurrentCore()

	c.Panic("disk on fire")

	out := serial.String()
	if !strings.Contains(out, "PANIC on cpu 0: disk on fire") {
		t.Fatalf("expected panic banner with core and message; got %q", out)
	}
	if !strings.Contains(out, "STACK:") || !strings.Contains(out, "0xdeadbeef") || !strings.Contains(out, "0xcafebabe") {
		t.Fatalf("expected stack trace in panic output; got %q", out)
	}
	if !strings.Contains(out, "HLT") {
		t.Fatalf("expected halt marker at end of panic output; got %q", out)
	}

	if !c.Panicked() {
		t.Error("expected panic flag to be set")
	}
	if frozenCore != core {
		t.Error("expected the panicking core to be frozen")
	}
	if core.InterruptsEnabled() {
		t.Error("expected interrupts to be disabled on the panicking core")
	}
}

func TestPanicDisablesLocking(t *testing.T) {
	defer func(origFreezeFn func(*cpu.Core)) { freezeFn = origFreezeFn }(freezeFn)
	freezeFn = func(*cpu.Core) {}

	c, _, _ := newTestConsole()

	// Park a fake writer on the output lock; panic output must still get
	// through because the fatal path stops using the lock.
	c.out.Acquire()
	defer c.out.Release()

	done := make(chan struct{})
	go func() {
		c.Panic("wedged")
		close(done)
	}()

	<-done

	if !c.Panicked() {
		t.Error("expected panic flag to be set")
	}
}

func TestOutputAfterPanicFreezesWriter(t *testing.T) {
	defer func(origFreezeFn func(*cpu.Core)) { freezeFn = origFreezeFn }(freezeFn)
	freezeFn = func(*cpu.Core) {}

	c, _, serial := newTestConsole()
	c.Panic("first fault")

	serial.Reset()
	c.Write(nil, []byte{'x'})

	if got := c.FrozenWriters(); got == 0 {
		t.Fatal("expected post-panic writer to enter the frozen state")
	}

	// The frozen writer must not have produced any output.
	if got := serial.String(); got != "" {
		t.Fatalf("expected no output from a frozen writer; got %q", got)
	}
}

func TestPanicfFormatsMessage(t *testing.T) {
	defer func(origFreezeFn func(*cpu.Core)) { freezeFn = origFreezeFn }(freezeFn)
	freezeFn = func(*cpu.Core) {}

	c, _, serial := newTestConsole()
	c.Panicf("bad cell at %d", 42)

	if !strings.Contains(serial.String(), "bad cell at 42") {
		t.Fatalf("expected formatted panic message; got %q", serial.String())
	}
}
